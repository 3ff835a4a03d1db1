package session

import (
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// Session represents the current trading session
type Session string

const (
	Premarket  Session = "premarket"
	Intraday   Session = "intraday"
	Afterhours Session = "afterhours"
	Closed     Session = "closed"
)

// Info is the scan posture the engine adopts for a session: how often
// to scan, how much risk to take, how many upstream requests per
// minute are allowed, and which pattern families may fire.
type Info struct {
	Session            Session
	ScanInterval       time.Duration
	RiskMultiplier     float64
	APIBudgetPerMinute int
	EnabledFamilies    []models.PatternFamily
}

// Enables reports whether the session allows signals from the family
func (i Info) Enables(family models.PatternFamily) bool {
	for _, f := range i.EnabledFamilies {
		if f == family {
			return true
		}
	}
	return false
}

// Family posture per session. Continuation setups need sustained
// participation, so they only trade the regular session; thin books
// outside regular hours get reversal and harmonic structure only.
var (
	premarketFamilies = []models.PatternFamily{
		models.FamilyReversal, models.FamilyBreakout, models.FamilyHarmonic,
	}
	intradayFamilies = []models.PatternFamily{
		models.FamilyReversal, models.FamilyBreakout,
		models.FamilyContinuation, models.FamilyHarmonic,
	}
	afterhoursFamilies = []models.PatternFamily{
		models.FamilyReversal, models.FamilyHarmonic,
	}
	// Closed covers replayed or off-exchange data; keep the thin-book
	// posture rather than silencing the engine entirely.
	closedFamilies = afterhoursFamilies
)

// Classifier maps wall-clock time to a trading session.
// Boundaries are minutes since midnight in the configured zone,
// normally America/New_York:
//   - Premarket: 4:00 AM - 9:30 AM ET
//   - Intraday: 9:30 AM - 4:00 PM ET
//   - Afterhours: 4:00 PM - 8:00 PM ET
//   - Closed: everything else, and all weekend
type Classifier struct {
	cfg      config.SessionConfig
	location *time.Location
}

// NewClassifier creates a classifier for the given zone. When the zone
// cannot be loaded (no tzdata) it falls back to a fixed UTC-5 offset,
// which is approximate across DST transitions.
func NewClassifier(cfg config.SessionConfig, timezone string) *Classifier {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &Classifier{cfg: cfg, location: loc}
}

// Location returns the zone the classifier resolves times in
func (c *Classifier) Location() *time.Location {
	return c.location
}

// Classify returns the session for t. Boundaries are half-open: the
// opening minute belongs to the session, the closing minute to the
// next.
func (c *Classifier) Classify(t time.Time) Session {
	local := t.In(c.location)

	weekday := local.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return Closed
	}

	minutes := local.Hour()*60 + local.Minute()
	b := c.cfg.Boundaries

	switch {
	case minutes >= b.PremarketOpen && minutes < b.MarketOpen:
		return Premarket
	case minutes >= b.MarketOpen && minutes < b.MarketClose:
		return Intraday
	case minutes >= b.MarketClose && minutes < b.AfterhoursEnd:
		return Afterhours
	default:
		return Closed
	}
}

// InfoAt returns the full scan posture for t
func (c *Classifier) InfoAt(t time.Time) Info {
	switch c.Classify(t) {
	case Premarket:
		return Info{
			Session:            Premarket,
			ScanInterval:       c.cfg.PremarketInterval,
			RiskMultiplier:     c.cfg.PremarketRisk,
			APIBudgetPerMinute: c.cfg.PremarketAPIBudget,
			EnabledFamilies:    premarketFamilies,
		}
	case Intraday:
		return Info{
			Session:            Intraday,
			ScanInterval:       c.cfg.IntradayInterval,
			RiskMultiplier:     c.cfg.IntradayRisk,
			APIBudgetPerMinute: c.cfg.IntradayAPIBudget,
			EnabledFamilies:    intradayFamilies,
		}
	case Afterhours:
		return Info{
			Session:            Afterhours,
			ScanInterval:       c.cfg.AfterhoursInterval,
			RiskMultiplier:     c.cfg.AfterhoursRisk,
			APIBudgetPerMinute: c.cfg.AfterhoursAPIBudget,
			EnabledFamilies:    afterhoursFamilies,
		}
	default:
		return Info{
			Session:            Closed,
			ScanInterval:       c.cfg.ClosedInterval,
			RiskMultiplier:     c.cfg.ClosedRisk,
			APIBudgetPerMinute: c.cfg.ClosedAPIBudget,
			EnabledFamilies:    closedFamilies,
		}
	}
}

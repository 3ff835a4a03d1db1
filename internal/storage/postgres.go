package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/pkg/logger"
)

// PostgresSignalStore implements SignalStore on PostgreSQL
type PostgresSignalStore struct {
	db *sql.DB
}

// NewPostgresSignalStore opens the pool, verifies connectivity and
// ensures the signals table exists.
func NewPostgresSignalStore(cfg config.DatabaseConfig) (*PostgresSignalStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresSignalStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Signal store initialized",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
	)

	return store, nil
}

func (s *PostgresSignalStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS trade_signals (
			id                TEXT PRIMARY KEY,
			symbol            TEXT NOT NULL,
			direction         TEXT NOT NULL,
			confidence        DOUBLE PRECISION NOT NULL,
			entry_price       DOUBLE PRECISION NOT NULL,
			stop_loss         DOUBLE PRECISION NOT NULL,
			take_profit       DOUBLE PRECISION NOT NULL,
			position_size     DOUBLE PRECISION NOT NULL,
			pattern_label     TEXT NOT NULL,
			reasoning         TEXT NOT NULL,
			risk_reward_ratio DOUBLE PRECISION NOT NULL,
			emitted_at        TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trade_signals_symbol_time
			ON trade_signals (symbol, emitted_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure signals schema: %w", err)
	}
	return nil
}

// SaveSignal inserts one emitted signal
func (s *PostgresSignalStore) SaveSignal(ctx context.Context, signal *models.TradeSignal) error {
	if signal == nil {
		return fmt.Errorf("signal cannot be nil")
	}
	if err := signal.Validate(); err != nil {
		return fmt.Errorf("invalid signal: %w", err)
	}

	query := `
		INSERT INTO trade_signals (
			id, symbol, direction, confidence, entry_price, stop_loss,
			take_profit, position_size, pattern_label, reasoning,
			risk_reward_ratio, emitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		signal.ID,
		signal.Symbol,
		string(signal.Direction),
		signal.Confidence,
		signal.EntryPrice,
		signal.StopLoss,
		signal.TakeProfit,
		signal.PositionSize,
		signal.PatternLabel,
		signal.Reasoning,
		signal.RiskRewardRatio,
		signal.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

// GetSignalsBySymbol returns the newest signals for a symbol, up to limit
func (s *PostgresSignalStore) GetSignalsBySymbol(ctx context.Context, symbol string, limit int) ([]*models.TradeSignal, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, symbol, direction, confidence, entry_price, stop_loss,
		       take_profit, position_size, pattern_label, reasoning,
		       risk_reward_ratio, emitted_at
		FROM trade_signals
		WHERE symbol = $1
		ORDER BY emitted_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.TradeSignal
	for rows.Next() {
		var sig models.TradeSignal
		var direction string
		err := rows.Scan(
			&sig.ID,
			&sig.Symbol,
			&direction,
			&sig.Confidence,
			&sig.EntryPrice,
			&sig.StopLoss,
			&sig.TakeProfit,
			&sig.PositionSize,
			&sig.PatternLabel,
			&sig.Reasoning,
			&sig.RiskRewardRatio,
			&sig.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		sig.Direction = models.Direction(direction)
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

// CountSignalsSince returns how many signals a symbol emitted at or
// after the cutoff.
func (s *PostgresSignalStore) CountSignalsSince(ctx context.Context, symbol string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM trade_signals
		WHERE symbol = $1 AND emitted_at >= $2
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, symbol, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

// Close releases the pool
func (s *PostgresSignalStore) Close() error {
	return s.db.Close()
}

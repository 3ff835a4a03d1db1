package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/history"
)

func rawCandle(symbol string, minute int) history.RawCandle {
	return history.RawCandle{
		Symbol:    symbol,
		Interval:  "1m",
		Timestamp: time.Date(2024, 3, 5, 9, 30+minute, 0, 0, time.UTC),
		Open:      "100",
		High:      "101",
		Low:       "99",
		Close:     "100.5",
		Volume:    "1000",
	}
}

func TestReplayFeedDeliversInOrder(t *testing.T) {
	candles := []history.RawCandle{
		rawCandle("AAPL", 0),
		rawCandle("AAPL", 1),
		rawCandle("AAPL", 2),
	}
	f := NewReplayFeed(candles, 0)

	ch, err := f.Start(context.Background())
	require.NoError(t, err)

	var got []history.RawCandle
	for c := range ch {
		got = append(got, c)
	}
	require.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	assert.True(t, got[1].Timestamp.Before(got[2].Timestamp))

	_, err = f.Start(context.Background())
	assert.ErrorIs(t, err, ErrFeedAlreadyStarted)
}

func TestReplayFeedCancel(t *testing.T) {
	candles := []history.RawCandle{rawCandle("AAPL", 0), rawCandle("AAPL", 1)}
	f := NewReplayFeed(candles, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := f.Start(ctx)
	require.NoError(t, err)

	cancel()
	for range ch {
	}
	require.NoError(t, f.Close())
}

func TestWebSocketFeedRequiresURL(t *testing.T) {
	f := NewWebSocketFeed(config.FeedConfig{BufferSize: 10})
	_, err := f.Start(context.Background())
	assert.ErrorIs(t, err, ErrFeedURLMissing)
}

func TestWebSocketFeedReceivesCandles(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		payload := `{"symbol":"AAPL","interval":"1m","timestamp":"2024-03-05T09:30:00Z","open":"100","high":"101","low":"99","close":"100.5","volume":"1000"}`
		conn.WriteMessage(websocket.TextMessage, []byte(payload))
		// A malformed frame must be skipped, not kill the loop
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteMessage(websocket.TextMessage, []byte(payload))

		// Hold the connection open until the client goes away
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		conn.ReadMessage()
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	f := NewWebSocketFeed(config.FeedConfig{
		WebSocketURL:      wsURL,
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 100 * time.Millisecond,
		BufferSize:        10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Start(ctx)
	require.NoError(t, err)

	var got []history.RawCandle
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case c, ok := <-ch:
			if !ok {
				t.Fatal("feed channel closed early")
			}
			got = append(got, c)
		case <-timeout:
			t.Fatal("timed out waiting for candles")
		}
	}

	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "100.5", got[0].Close)

	cancel()
	require.NoError(t, f.Close())
}

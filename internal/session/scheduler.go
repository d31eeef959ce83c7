package session

import (
	"context"
	"time"
)

// TickerScheduler paces the loop at a fixed frame rate, standing in for a
// display's frame callback. A frame that overruns its slot is followed
// immediately by the next one.
type TickerScheduler struct {
	ticker *time.Ticker
}

// NewTickerScheduler returns a scheduler ticking fps times per second.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = 30
	}
	interval := time.Duration(float64(time.Second) / float64(fps))
	return &TickerScheduler{ticker: time.NewTicker(interval)}
}

// Wait blocks until the next tick or until ctx is done.
func (s *TickerScheduler) Wait(ctx context.Context) error {
	select {
	case <-s.ticker.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the ticker.
func (s *TickerScheduler) Stop() {
	s.ticker.Stop()
}

package feed

import (
	"context"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/metrics"
)

// attemptReconnection applies the bounded-retry policy: attempt while
// under the attempt limit, and once the limit is reached back off for
// twice the regular interval, then reset the counter so retries resume.
// The service never gives up permanently.
func (s *Service) attemptReconnection(ctx context.Context) {
	log := s.log.WithComponent("reconnect")

	interval := s.cfg.Reconnect.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	maxAttempts := s.cfg.Reconnect.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	s.stateMu.Lock()
	attempts := s.connectionAttempts
	s.stateMu.Unlock()

	if attempts >= maxAttempts {
		cooldown := 2 * interval
		log.WithField("attempts", attempts).
			WithField("cooldown", cooldown.String()).
			Warn("max reconnection attempts reached, cooling down")
		if !sleepCtx(ctx, cooldown) {
			return
		}
		s.stateMu.Lock()
		s.connectionAttempts = 0
		s.stateMu.Unlock()
		return
	}

	metrics.IncrementReconnectAttempts()
	log.WithField("attempt", attempts+1).
		WithField("max_attempts", maxAttempts).
		Info("attempting reconnection")

	if s.connectAndSubscribe(ctx) {
		log.Info("reconnection succeeded")
		return
	}

	sleepCtx(ctx, interval)
}

// sleepCtx sleeps for d unless the context ends first. Reports whether
// the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

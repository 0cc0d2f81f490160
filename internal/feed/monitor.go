package feed

import (
	"context"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/logger"
)

// runMonitor checks connection health on a fixed interval and triggers
// the reconnection policy whenever the feed is down or has gone stale.
// A panic inside a check must not kill the monitor, so every cycle runs
// behind a recover.
func (s *Service) runMonitor(ctx context.Context) {
	defer s.wg.Done()

	log := s.log.WithComponent("monitor")
	interval := s.cfg.Reconnect.HealthCheckInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval.String()).Info("health monitor started")

	for {
		select {
		case <-ctx.Done():
			log.Info("health monitor stopped")
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

func (s *Service) checkHealth(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithComponent("monitor").WithField("panic", r).Error("health check panicked")
		}
	}()

	s.stateMu.Lock()
	connected := s.connected
	lastData := s.lastDataReceived
	s.stateMu.Unlock()

	connectedValue := 0.0
	if connected {
		connectedValue = 1
	}
	logger.PublishGauge(ctx, "feed", "Connected", connectedValue)

	staleAfter := s.cfg.Reconnect.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}

	stale := lastData.IsZero() || time.Since(lastData) > staleAfter
	if connected && !stale {
		return
	}

	if connected && stale {
		s.log.WithComponent("monitor").
			WithField("last_data", lastData.Format(time.RFC3339)).
			Warn("connection is stale, attempting recovery")
	} else {
		s.log.WithComponent("monitor").Warn("connection is down, attempting recovery")
	}

	s.attemptReconnection(ctx)
}

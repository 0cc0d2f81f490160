package feed

import (
	"context"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/metrics"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

// runDispatcher drains the typed quote channels into the store. Every
// batch, applied or not, refreshes the data-received timestamp: the
// provider sending anything at all means the stream is alive.
func (s *Service) runDispatcher(ctx context.Context) {
	defer s.wg.Done()

	log := s.log.WithComponent("dispatcher")
	log.Info("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			log.Info("dispatcher stopped")
			return

		case batch := <-s.channels.Options:
			s.markDataReceived()
			if len(batch.Quotes) == 0 {
				continue
			}
			applied := s.store.ApplyOptions(normalizeOptions(batch.Quotes))
			metrics.AddQuoteUpdates("options", applied)

		case batch := <-s.channels.Securities:
			s.markDataReceived()
			if len(batch.Quotes) == 0 {
				continue
			}
			applied := s.store.ApplySecurities(normalizeSecurities(batch.Quotes))
			metrics.AddQuoteUpdates("securities", applied)

		case batch := <-s.channels.Repos:
			s.markDataReceived()
			if len(batch.Quotes) == 0 {
				continue
			}
			applied := s.store.ApplyRepos(normalizeRepos(batch.Quotes))
			metrics.AddQuoteUpdates("repos", applied)

		case feedErr := <-s.channels.Errors:
			log.WithField("error", feedErr.Message).Error("feed error received")
			s.markDisconnected()
		}
	}
}

// The provider sends change as a percentage value (2.5 means 2.5%) and
// repo rates the same way; the cache stores fractions.

func normalizeOptions(quotes []models.OptionUpdate) []models.OptionUpdate {
	for i := range quotes {
		scaleDown(quotes[i].Change)
	}
	return quotes
}

func normalizeSecurities(quotes []models.SecurityUpdate) []models.SecurityUpdate {
	for i := range quotes {
		scaleDown(quotes[i].Change)
	}
	return quotes
}

func normalizeRepos(quotes []models.RepoUpdate) []models.RepoUpdate {
	for i := range quotes {
		scaleDown(quotes[i].Last)
		scaleDown(quotes[i].BidRate)
		scaleDown(quotes[i].AskRate)
	}
	return quotes
}

func scaleDown(v *float64) {
	if v != nil {
		*v /= 100
	}
}

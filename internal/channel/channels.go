package channel

import (
	"context"
	"sync"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/metrics"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/logger"
)

// Stats counts messages moved through (or dropped by) the channel set.
type Stats struct {
	OptionsSent       int64
	SecuritiesSent    int64
	ReposSent         int64
	ErrorsSent        int64
	OptionsDropped    int64
	SecuritiesDropped int64
	ReposDropped      int64
	ErrorsDropped     int64
}

// Channels carries typed quote batches from the external connection into
// the dispatcher. Sends never block the delivery side: a full buffer
// drops the message and records it in the stats.
type Channels struct {
	Options    chan models.OptionBatch
	Securities chan models.SecurityBatch
	Repos      chan models.RepoBatch
	Errors     chan models.FeedError

	stats      Stats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(quoteBuffer, errorBuffer int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Options:    make(chan models.OptionBatch, quoteBuffer),
		Securities: make(chan models.SecurityBatch, quoteBuffer),
		Repos:      make(chan models.RepoBatch, quoteBuffer),
		Errors:     make(chan models.FeedError, errorBuffer),
		log:        log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"quote_buffer": quoteBuffer,
		"error_buffer": errorBuffer,
	}).Info("quote channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Options)
	close(c.Securities)
	close(c.Repos)
	close(c.Errors)
	c.log.WithComponent("channels").Info("quote channels closed")
}

func (c *Channels) SendOptions(ctx context.Context, batch models.OptionBatch) bool {
	select {
	case c.Options <- batch:
		c.increment(func(s *Stats) { s.OptionsSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *Stats) { s.OptionsDropped++ })
		metrics.IncrementDropped("options")
		return false
	}
}

func (c *Channels) SendSecurities(ctx context.Context, batch models.SecurityBatch) bool {
	select {
	case c.Securities <- batch:
		c.increment(func(s *Stats) { s.SecuritiesSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *Stats) { s.SecuritiesDropped++ })
		metrics.IncrementDropped("securities")
		return false
	}
}

func (c *Channels) SendRepos(ctx context.Context, batch models.RepoBatch) bool {
	select {
	case c.Repos <- batch:
		c.increment(func(s *Stats) { s.ReposSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *Stats) { s.ReposDropped++ })
		metrics.IncrementDropped("repos")
		return false
	}
}

func (c *Channels) SendError(ctx context.Context, feedErr models.FeedError) bool {
	select {
	case c.Errors <- feedErr:
		c.increment(func(s *Stats) { s.ErrorsSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *Stats) { s.ErrorsDropped++ })
		metrics.IncrementDropped("errors")
		return false
	}
}

func (c *Channels) increment(fn func(*Stats)) {
	c.statsMutex.Lock()
	fn(&c.stats)
	c.statsMutex.Unlock()
}

func (c *Channels) GetStats() Stats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

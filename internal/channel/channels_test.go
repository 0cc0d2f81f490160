package channel

import (
	"context"
	"testing"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

func TestSendOptionsCountsSent(t *testing.T) {
	c := NewChannels(1, 1)
	defer c.Close()

	ctx := context.Background()
	if !c.SendOptions(ctx, models.OptionBatch{Received: time.Now()}) {
		t.Fatalf("expected send to succeed")
	}
	if stats := c.GetStats(); stats.OptionsSent != 1 {
		t.Fatalf("expected one sent option batch, got %+v", stats)
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	c := NewChannels(1, 1)
	defer c.Close()

	ctx := context.Background()
	c.SendRepos(ctx, models.RepoBatch{})
	if c.SendRepos(ctx, models.RepoBatch{}) {
		t.Fatalf("expected send to drop on full buffer")
	}
	stats := c.GetStats()
	if stats.ReposSent != 1 || stats.ReposDropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSendErrorFull(t *testing.T) {
	c := NewChannels(1, 1)
	defer c.Close()

	ctx := context.Background()
	c.SendError(ctx, models.FeedError{Message: "first"})
	if c.SendError(ctx, models.FeedError{Message: "second"}) {
		t.Fatalf("expected error send to drop on full buffer")
	}
	if stats := c.GetStats(); stats.ErrorsDropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

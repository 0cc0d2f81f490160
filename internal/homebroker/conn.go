package homebroker

import (
	"context"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

// Credentials identify an investor account at the broker.
type Credentials struct {
	BrokerID int
	DNI      string
	User     string
	Password string
}

// Conn is one streaming session with the market-data provider. A Conn is
// single-use: after Disconnect (or a transport failure) a fresh one must
// be dialed. Inbound quote batches are delivered through the channel set
// supplied to the Dialer, never through return values.
type Conn interface {
	// Connect authenticates and opens the data channel. It fails the
	// whole attempt when the login is rejected.
	Connect(ctx context.Context, creds Credentials) error

	SubscribeOptions() error
	SubscribeSecurities(board, settlement string) error
	SubscribeRepos() error

	Disconnect() error

	// GetDailyHistory fetches daily bars for one instrument variant;
	// settlement selects the delivery term ("24hs", "SPOT", "48hs").
	GetDailyHistory(ctx context.Context, symbol, settlement string, from, to time.Time) ([]models.Bar, error)
	GetIntradayHistory(ctx context.Context, symbol string) ([]models.Bar, error)
}

// Dialer produces a fresh Conn per connection attempt.
type Dialer interface {
	Dial() Conn
}

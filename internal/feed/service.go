// Package feed keeps the quote cache alive: it owns the broker
// connection, dispatches streamed quote batches into the store, watches
// connection health and reconnects when the stream goes quiet.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	appconfig "github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/config"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/channel"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/homebroker"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/metrics"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/store"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/logger"
)

// securitiesSubscriptions is the fixed board/settlement order used on
// every connection. Order matters for the provider: the panel boards
// must come after the bluechip and bond boards.
var securitiesSubscriptions = [][2]string{
	{"bluechips", "24hs"},
	{"bluechips", "SPOT"},
	{"government_bonds", "24hs"},
	{"government_bonds", "SPOT"},
	{"cedears", "24hs"},
	{"general_board", "24hs"},
	{"short_term_government_bonds", "24hs"},
	{"corporate_bonds", "24hs"},
}

// Service supervises the broker connection and feeds the store.
type Service struct {
	cfg      *appconfig.Config
	log      *logger.Log
	store    *store.Store
	channels *channel.Channels
	dialer   homebroker.Dialer
	limiter  *rate.Limiter

	// connectMu serializes connect attempts end to end so two callers
	// can never race a dial and leak a subscribed connection. stateMu
	// only guards the fields below and is never held across I/O.
	connectMu sync.Mutex

	stateMu            sync.Mutex
	conn               homebroker.Conn
	connected          bool
	lastDataReceived   time.Time
	connectionAttempts int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService wires the feed service. Start must be called before the
// store sees any data.
func NewService(cfg *appconfig.Config, st *store.Store, ch *channel.Channels, dialer homebroker.Dialer) *Service {
	rps := cfg.History.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.History.BurstSize
	if burst <= 0 {
		burst = rps
	}
	return &Service{
		cfg:      cfg,
		log:      logger.GetLogger(),
		store:    st,
		channels: ch,
		dialer:   dialer,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		// Seed the staleness clock so the monitor does not treat the
		// in-flight initial connect as a stale stream.
		lastDataReceived: time.Now(),
	}
}

// Start launches the dispatcher, the initial connection worker and the
// health monitor. It returns immediately; connection failures are
// handled by the monitor, never surfaced to the caller.
func (s *Service) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.runDispatcher(ctx)
	go s.runMonitor(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := s.log.WithComponent("feed")
		if s.connectAndSubscribe(ctx) {
			log.Info("initial connection established")
			return
		}
		log.Warn("initial connection failed, monitor will retry")
	}()
}

// Stop tears down the workers and the broker connection. Blocks until
// all goroutines have exited.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.stateMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.stateMu.Unlock()

	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			s.log.WithComponent("feed").WithError(err).Warn("disconnect on shutdown failed")
		}
	}
	metrics.SetConnected(false)
}

// ForceReconnect drops the current connection and dials a new one
// immediately, bypassing the monitor's schedule. The attempt counter
// resets first so a manual trigger always gets a full retry budget.
func (s *Service) ForceReconnect(ctx context.Context) error {
	s.log.WithComponent("feed").Info("forced reconnection requested")

	s.stateMu.Lock()
	s.connectionAttempts = 0
	s.stateMu.Unlock()

	if !s.connectAndSubscribe(ctx) {
		return fmt.Errorf("forced reconnection failed")
	}
	return nil
}

// connectAndSubscribe replaces the current connection with a freshly
// dialed one and subscribes every feed in the fixed order. Counts the
// attempt either way; on success the attempt counter resets.
func (s *Service) connectAndSubscribe(ctx context.Context) bool {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	log := s.log.WithComponent("feed")

	s.stateMu.Lock()
	old := s.conn
	s.conn = nil
	s.connected = false
	s.stateMu.Unlock()
	metrics.SetConnected(false)

	if old != nil {
		// Best effort; a dead socket often errors on close.
		if err := old.Disconnect(); err != nil {
			log.WithError(err).Debug("closing previous connection")
		}
	}

	conn := s.dialer.Dial()
	creds := homebroker.Credentials{
		BrokerID: s.cfg.HomeBroker.BrokerID,
		DNI:      s.cfg.HomeBroker.DNI,
		User:     s.cfg.HomeBroker.User,
		Password: s.cfg.HomeBroker.Password,
	}

	if err := s.subscribeAll(ctx, conn, creds); err != nil {
		log.WithError(err).Error("connection attempt failed")
		_ = conn.Disconnect()

		s.stateMu.Lock()
		s.connectionAttempts++
		attempts := s.connectionAttempts
		s.stateMu.Unlock()

		log.WithField("attempts", attempts).Warn("connection attempt recorded")
		return false
	}

	s.stateMu.Lock()
	s.conn = conn
	s.connected = true
	s.connectionAttempts = 0
	s.lastDataReceived = time.Now()
	s.stateMu.Unlock()
	metrics.SetConnected(true)

	log.Info("connected and subscribed to all feeds")
	return true
}

func (s *Service) subscribeAll(ctx context.Context, conn homebroker.Conn, creds homebroker.Credentials) error {
	if err := conn.Connect(ctx, creds); err != nil {
		return err
	}
	if err := conn.SubscribeOptions(); err != nil {
		return fmt.Errorf("subscribe options: %w", err)
	}
	for _, sub := range securitiesSubscriptions {
		if err := conn.SubscribeSecurities(sub[0], sub[1]); err != nil {
			return fmt.Errorf("subscribe %s/%s: %w", sub[0], sub[1], err)
		}
	}
	if err := conn.SubscribeRepos(); err != nil {
		return fmt.Errorf("subscribe repos: %w", err)
	}
	return nil
}

// Store exposes the quote cache for the HTTP layer.
func (s *Service) Store() *store.Store {
	return s.store
}

func (s *Service) markDataReceived() {
	s.stateMu.Lock()
	s.lastDataReceived = time.Now()
	s.stateMu.Unlock()
}

func (s *Service) markDisconnected() {
	s.stateMu.Lock()
	s.connected = false
	s.stateMu.Unlock()
	metrics.SetConnected(false)
}

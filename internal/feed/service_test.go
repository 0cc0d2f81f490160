package feed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	appconfig "github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/config"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/channel"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/homebroker"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/store"
)

type fakeConn struct {
	mu            sync.Mutex
	connectErr    error
	subscribeErr  error
	connectGate   chan struct{}
	subscriptions []string
	disconnected  bool

	historyErr map[string]error
	bars       []models.Bar
}

func (f *fakeConn) Connect(ctx context.Context, creds homebroker.Credentials) error {
	if f.connectGate != nil {
		<-f.connectGate
	}
	return f.connectErr
}

func (f *fakeConn) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

func (f *fakeConn) SubscribeOptions() error {
	return f.record("options")
}

func (f *fakeConn) SubscribeSecurities(board, settlement string) error {
	return f.record(board + "/" + settlement)
}

func (f *fakeConn) SubscribeRepos() error {
	return f.record("repos")
}

func (f *fakeConn) record(name string) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.mu.Lock()
	f.subscriptions = append(f.subscriptions, name)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Disconnect() error {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) GetDailyHistory(ctx context.Context, symbol, settlement string, from, to time.Time) ([]models.Bar, error) {
	if err := f.historyErr[symbol]; err != nil {
		return nil, err
	}
	return f.bars, nil
}

func (f *fakeConn) GetIntradayHistory(ctx context.Context, symbol string) ([]models.Bar, error) {
	if err := f.historyErr[symbol]; err != nil {
		return nil, err
	}
	return f.bars, nil
}

type fakeDialer struct {
	mu    sync.Mutex
	next  func() *fakeConn
	conns []*fakeConn
}

func (d *fakeDialer) Dial() homebroker.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	conn := d.next()
	d.conns = append(d.conns, conn)
	return conn
}

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		Reconnect: appconfig.ReconnectConfig{
			Interval:            10 * time.Millisecond,
			MaxAttempts:         3,
			HealthCheckInterval: time.Hour,
			StaleAfter:          time.Minute,
			ReceivingDataWindow: time.Minute,
		},
		History: appconfig.HistoryConfig{
			RequestsPerSecond: 100,
			BurstSize:         100,
			Timeout:           time.Second,
			MaxDays:           365,
		},
	}
}

func newTestService(dialer homebroker.Dialer) (*Service, *channel.Channels) {
	ch := channel.NewChannels(16, 4)
	st := store.New(nil, nil)
	return NewService(testConfig(), st, ch, dialer), ch
}

func TestConnectSubscribesAllFeedsInOrder(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	if !svc.connectAndSubscribe(context.Background()) {
		t.Fatal("expected connection to succeed")
	}

	want := []string{
		"options",
		"bluechips/24hs", "bluechips/SPOT",
		"government_bonds/24hs", "government_bonds/SPOT",
		"cedears/24hs", "general_board/24hs",
		"short_term_government_bonds/24hs", "corporate_bonds/24hs",
		"repos",
	}
	got := dialer.conns[0].subscriptions
	if len(got) != len(want) {
		t.Fatalf("subscriptions = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("subscription[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !svc.IsConnected() {
		t.Error("service should report connected after subscribe")
	}
}

func TestConnectFailureCountsAttempt(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn {
		return &fakeConn{connectErr: fmt.Errorf("auth rejected")}
	}}
	svc, _ := newTestService(dialer)

	if svc.connectAndSubscribe(context.Background()) {
		t.Fatal("expected connection to fail")
	}
	if svc.IsConnected() {
		t.Error("service should not report connected")
	}
	if got := svc.Status().ConnectionAttempts; got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestReconnectReplacesOldConnection(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	svc.connectAndSubscribe(context.Background())
	if err := svc.ForceReconnect(context.Background()); err != nil {
		t.Fatalf("forced reconnect: %v", err)
	}

	if len(dialer.conns) != 2 {
		t.Fatalf("dialed %d times, want 2", len(dialer.conns))
	}
	if !dialer.conns[0].disconnected {
		t.Error("previous connection should be torn down")
	}
	if dialer.conns[1].disconnected {
		t.Error("replacement connection should stay open")
	}
}

func TestSuccessResetsAttemptCounter(t *testing.T) {
	fail := true
	dialer := &fakeDialer{next: func() *fakeConn {
		if fail {
			return &fakeConn{connectErr: fmt.Errorf("down")}
		}
		return &fakeConn{}
	}}
	svc, _ := newTestService(dialer)

	svc.connectAndSubscribe(context.Background())
	svc.connectAndSubscribe(context.Background())
	if got := svc.Status().ConnectionAttempts; got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}

	fail = false
	if !svc.connectAndSubscribe(context.Background()) {
		t.Fatal("expected success")
	}
	if got := svc.Status().ConnectionAttempts; got != 0 {
		t.Errorf("attempts = %d, want 0 after success", got)
	}
}

func TestCooldownResetsAttemptsWithoutDialing(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn {
		return &fakeConn{connectErr: fmt.Errorf("down")}
	}}
	svc, _ := newTestService(dialer)

	for i := 0; i < 3; i++ {
		svc.connectAndSubscribe(context.Background())
	}
	dialsBefore := len(dialer.conns)

	svc.attemptReconnection(context.Background())

	if len(dialer.conns) != dialsBefore {
		t.Error("cooldown cycle should not dial")
	}
	if got := svc.Status().ConnectionAttempts; got != 0 {
		t.Errorf("attempts = %d, want 0 after cooldown", got)
	}
}

func TestConcurrentConnectAttemptsSerialized(t *testing.T) {
	gate := make(chan struct{})
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{connectGate: gate} }}
	svc, _ := newTestService(dialer)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.connectAndSubscribe(context.Background())
		}()
	}
	gate <- struct{}{}
	gate <- struct{}{}
	wg.Wait()

	if len(dialer.conns) != 2 {
		t.Fatalf("dials = %d, want 2", len(dialer.conns))
	}

	// Exactly one connection may survive: the current one. A second
	// live, subscribed handle means two attempts ran concurrently.
	svc.stateMu.Lock()
	current := svc.conn
	svc.stateMu.Unlock()

	live := 0
	for _, conn := range dialer.conns {
		if !conn.isDisconnected() {
			live++
			if homebroker.Conn(conn) != current {
				t.Errorf("leaked connection with %d subscriptions left behind", len(conn.subscriptions))
			}
		}
	}
	if live != 1 {
		t.Errorf("live connections = %d, want 1", live)
	}
}

func TestStaleConnectionTriggersRecovery(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	svc.connectAndSubscribe(context.Background())
	dialsBefore := len(dialer.conns)

	// Age the data past the staleness window while still connected.
	svc.stateMu.Lock()
	svc.lastDataReceived = time.Now().Add(-2 * time.Minute)
	svc.stateMu.Unlock()

	svc.checkHealth(context.Background())

	if len(dialer.conns) != dialsBefore+1 {
		t.Errorf("stale connection should trigger a reconnection attempt, dials = %d", len(dialer.conns))
	}
}

func TestFreshServiceSeedsStalenessClock(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	status := svc.Status()
	if status.LastDataReceived == nil {
		t.Fatal("last_data_received should be seeded at construction")
	}
	if status.MinutesSinceLastData > 1 {
		t.Errorf("minutes_since_last_data = %f, want near zero", status.MinutesSinceLastData)
	}
}

func TestHealthyConnectionLeftAlone(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	svc.connectAndSubscribe(context.Background())
	dialsBefore := len(dialer.conns)

	svc.checkHealth(context.Background())

	if len(dialer.conns) != dialsBefore {
		t.Errorf("healthy connection should not be redialed, dials = %d", len(dialer.conns))
	}
}

func TestDispatcherNormalizesPercentages(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, ch := newTestService(dialer)

	svc.Start()
	defer svc.Stop()

	change := 2.5
	last := 120.0
	ch.SendOptions(context.Background(), models.OptionBatch{
		Received: time.Now(),
		Quotes: []models.OptionUpdate{
			{Symbol: "GFGC40000OC", Last: &last, Change: &change},
		},
	})

	rate := 35.0
	settlement := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	ch.SendRepos(context.Background(), models.RepoBatch{
		Received: time.Now(),
		Quotes: []models.RepoUpdate{
			{Symbol: "CAUCION PESOS", Settlement: settlement, Last: &rate},
		},
	})

	deadline := time.After(time.Second)
	for {
		options := svc.Store().GetOptions("", "")
		repos := svc.Store().GetCauciones()
		if len(options) == 1 && len(repos) == 1 {
			if options[0].Change != 0.025 {
				t.Errorf("option change = %v, want 0.025", options[0].Change)
			}
			if repos[0].Last != 0.35 {
				t.Errorf("repo last = %v, want 0.35", repos[0].Last)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("store never saw the batches: %d options, %d repos", len(options), len(repos))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDispatcherErrorMarksDisconnected(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, ch := newTestService(dialer)

	svc.Start()
	defer svc.Stop()

	deadline := time.After(time.Second)
	for !svc.IsConnected() {
		select {
		case <-deadline:
			t.Fatal("service never connected")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ch.SendError(context.Background(), models.FeedError{Time: time.Now(), Message: "socket closed"})

	deadline = time.After(time.Second)
	for svc.IsConnected() {
		select {
		case <-deadline:
			t.Fatal("feed error should mark the service disconnected")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBatchIsolatesFailures(t *testing.T) {
	conn := &fakeConn{
		bars:       []models.Bar{{Date: time.Now(), Close: 100}},
		historyErr: map[string]error{"BROKEN": fmt.Errorf("no data")},
	}
	dialer := &fakeDialer{next: func() *fakeConn { return conn }}
	svc, _ := newTestService(dialer)
	svc.connectAndSubscribe(context.Background())

	results := svc.GetHistoricalBatch(context.Background(), []string{"GGAL", "BROKEN", "YPFD"}, 30, "24hs")
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if len(results["GGAL"]) != 1 {
		t.Errorf("GGAL bars = %v", results["GGAL"])
	}
	if bars, ok := results["BROKEN"]; !ok || len(bars) != 0 {
		t.Errorf("BROKEN should map to an empty slice, got %v (present=%v)", bars, ok)
	}
	if len(results["YPFD"]) != 1 {
		t.Errorf("YPFD bars = %v", results["YPFD"])
	}
}

func TestReservedWordsRejected(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)
	svc.connectAndSubscribe(context.Background())

	for _, word := range []string{"batch", "prefix", "ticker", "all", "BATCH"} {
		if _, err := svc.GetHistoricalData(context.Background(), word, 30, "24hs"); err == nil {
			t.Errorf("expected rejection of %q", word)
		}
	}
}

func TestHistoryRequiresConnection(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	if _, err := svc.GetHistoricalData(context.Background(), "GGAL", 30, "24hs"); err == nil {
		t.Error("expected error while disconnected")
	}
}

func TestFillChange(t *testing.T) {
	bars := []models.Bar{
		{Close: 100},
		{Close: 110},
		{Close: 99},
	}
	fillChange(bars)

	if bars[0].Change != nil {
		t.Error("first bar should have no change")
	}
	if bars[1].Change == nil || *bars[1].Change != 0.1 {
		t.Errorf("second bar change = %v, want 0.1", bars[1].Change)
	}
	if bars[2].Change == nil || *bars[2].Change != -0.1 {
		t.Errorf("third bar change = %v, want -0.1", bars[2].Change)
	}
}

func TestStatusSnapshot(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	status := svc.Status()
	if status.Connected {
		t.Error("fresh service should report disconnected")
	}

	svc.connectAndSubscribe(context.Background())
	status = svc.Status()
	if !status.Connected || !status.ReceivingData {
		t.Error("connected service should report healthy")
	}
	if status.LastDataReceived == nil {
		t.Error("last_data_received should be set after connect")
	}
	if status.MaxReconnectAttempts != 3 {
		t.Errorf("max attempts = %d", status.MaxReconnectAttempts)
	}
}

func TestStartStop(t *testing.T) {
	dialer := &fakeDialer{next: func() *fakeConn { return &fakeConn{} }}
	svc, _ := newTestService(dialer)

	svc.Start()
	svc.Stop()

	if svc.IsConnected() {
		t.Error("stopped service should report disconnected")
	}
}

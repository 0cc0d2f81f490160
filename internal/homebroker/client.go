package homebroker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	appconfig "github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/config"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/channel"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/logger"
)

const defaultKeepAlive = 20 * time.Second

// Client is one authenticated streaming session with the HomeBroker
// platform: an HTTP cookie session for login and history plus a
// websocket carrying quote pushes.
type Client struct {
	cfg      appconfig.HomeBrokerConfig
	channels *channel.Channels
	http     *http.Client
	log      *logger.Log

	sessionID string

	writeMu sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WSDialer produces a fresh Client per connection attempt. All clients
// share the channel set; only one is connected at a time.
type WSDialer struct {
	cfg      appconfig.HomeBrokerConfig
	channels *channel.Channels
}

func NewDialer(cfg appconfig.HomeBrokerConfig, ch *channel.Channels) *WSDialer {
	return &WSDialer{cfg: cfg, channels: ch}
}

func (d *WSDialer) Dial() Conn {
	return newClient(d.cfg, d.channels)
}

func newClient(cfg appconfig.HomeBrokerConfig, ch *channel.Channels) *Client {
	jar, _ := cookiejar.New(nil)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:       cfg,
		channels:  ch,
		http:      &http.Client{Jar: jar, Timeout: timeout},
		log:       logger.GetLogger(),
		sessionID: uuid.NewString(),
	}
}

// Connect logs in and opens the websocket data channel. The read loop
// runs on its own goroutine until Disconnect or a transport failure;
// failures surface on the error channel, never as panics.
func (c *Client) Connect(ctx context.Context, creds Credentials) error {
	log := c.log.WithComponent("homebroker").WithField("session", c.sessionID)

	if err := c.login(ctx, creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	log.Info("authenticated with broker")

	header := http.Header{}
	wsURL, err := url.Parse(c.cfg.WSURL)
	if err != nil {
		return fmt.Errorf("invalid websocket url: %w", err)
	}
	for _, cookie := range c.http.Jar.Cookies(cookieURL(wsURL)) {
		header.Add("Cookie", cookie.String())
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.WSURL, header)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	c.conn = conn

	readCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.readLoop(readCtx)
	c.startPingLoop(readCtx, defaultKeepAlive)

	log.WithField("url", c.cfg.WSURL).Info("websocket connected")
	return nil
}

// login posts the account credentials and keeps the session cookie on
// the client's jar.
func (c *Client) login(ctx context.Context, creds Credentials) error {
	form := url.Values{}
	form.Set("IpAddress", "")
	form.Set("Dni", creds.DNI)
	form.Set("Usuario", creds.User)
	form.Set("Password", creds.Password)
	form.Set("Broker", strconv.Itoa(creds.BrokerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL+"/Login/Ingresar",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("login rejected (%d): %s", resp.StatusCode, body)
	}

	var result struct {
		Success bool   `json:"Success"`
		Error   string `json:"Error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("login rejected: %s", result.Error)
	}
	return nil
}

func cookieURL(wsURL *url.URL) *url.URL {
	scheme := "https"
	if wsURL.Scheme == "ws" {
		scheme = "http"
	}
	return &url.URL{Scheme: scheme, Host: wsURL.Host}
}

// SubscribeOptions subscribes to the option quote feed.
func (c *Client) SubscribeOptions() error {
	return c.subscribe(channelOptions, nil)
}

// SubscribeSecurities subscribes one board/settlement pair of the
// securities feed.
func (c *Client) SubscribeSecurities(board, settlement string) error {
	return c.subscribe(channelSecurities, map[string]string{
		"board":      board,
		"settlement": settlement,
	})
}

// SubscribeRepos subscribes to the repo ("cauciones") feed.
func (c *Client) SubscribeRepos() error {
	return c.subscribe(channelRepos, nil)
}

func (c *Client) subscribe(feed string, args map[string]string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	msg := map[string]interface{}{
		"action":  "subscribe",
		"channel": feed,
		"req_id":  uuid.NewString(),
	}
	for k, v := range args {
		msg[k] = v
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s failed: %w", feed, err)
	}
	return nil
}

// Disconnect stops the read loop and closes the websocket. Safe to call
// on a client that never connected.
func (c *Client) Disconnect() error {
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.wg.Wait()
	return err
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.wg.Done()

	log := c.log.WithComponent("homebroker").WithField("session", c.sessionID)

	for {
		if ctx.Err() != nil {
			return
		}
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("websocket read loop ended")
				c.channels.SendError(ctx, models.FeedError{Time: time.Now(), Message: err.Error()})
			}
			return
		}
		c.handleMessage(ctx, msg, log)
	}
}

// handleMessage routes one inbound frame to its channel. Malformed
// frames are logged and dropped; they must never kill the read loop.
func (c *Client) handleMessage(ctx context.Context, msg []byte, log *logger.Entry) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.WithError(err).Warn("failed to decode inbound frame")
		return
	}

	now := time.Now()
	switch env.Channel {
	case channelOptions:
		var rows []optionRow
		if err := json.Unmarshal(env.Quotes, &rows); err != nil {
			log.WithError(err).Warn("failed to decode option quotes")
			return
		}
		batch := models.OptionBatch{Received: now, Quotes: make([]models.OptionUpdate, 0, len(rows))}
		for _, row := range rows {
			batch.Quotes = append(batch.Quotes, row.toUpdate())
		}
		c.channels.SendOptions(ctx, batch)

	case channelSecurities:
		var rows []securityRow
		if err := json.Unmarshal(env.Quotes, &rows); err != nil {
			log.WithError(err).Warn("failed to decode security quotes")
			return
		}
		batch := models.SecurityBatch{Received: now, Quotes: make([]models.SecurityUpdate, 0, len(rows))}
		for _, row := range rows {
			batch.Quotes = append(batch.Quotes, row.toUpdate())
		}
		c.channels.SendSecurities(ctx, batch)

	case channelRepos:
		var rows []repoRow
		if err := json.Unmarshal(env.Quotes, &rows); err != nil {
			log.WithError(err).Warn("failed to decode repo quotes")
			return
		}
		batch := models.RepoBatch{Received: now, Quotes: make([]models.RepoUpdate, 0, len(rows))}
		for _, row := range rows {
			if update, ok := row.toUpdate(); ok {
				batch.Quotes = append(batch.Quotes, update)
			}
		}
		c.channels.SendRepos(ctx, batch)

	case channelError:
		c.channels.SendError(ctx, models.FeedError{Time: now, Message: env.Error})

	default:
		// Subscription acks and heartbeats are ignored.
	}
}

func (c *Client) startPingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.writeMu.Lock()
				err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
				c.writeMu.Unlock()
				if err != nil {
					c.log.WithComponent("homebroker").WithError(err).Warn("failed to send websocket ping")
					return
				}
			}
		}
	}()
}

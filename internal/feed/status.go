package feed

import (
	"time"
)

// connectedWindow bounds how long a connection with zero traffic still
// counts as connected. It is deliberately wider than the staleness
// window: the monitor acts first, the status flag flips later.
const connectedWindow = 10 * time.Minute

// ConnectionStatus is the health snapshot exposed over the API.
type ConnectionStatus struct {
	Connected            bool    `json:"connected"`
	ReceivingData        bool    `json:"receiving_data"`
	LastDataReceived     *string `json:"last_data_received"`
	MinutesSinceLastData float64 `json:"minutes_since_last_data"`
	ConnectionAttempts   int     `json:"connection_attempts"`
	MaxReconnectAttempts int     `json:"max_reconnect_attempts"`
	ReconnectInterval    string  `json:"reconnect_interval"`
	HealthCheckInterval  string  `json:"health_check_interval"`
}

// IsConnected reports whether the connection flag is up and data has
// arrived within the connected window.
func (s *Service) IsConnected() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if !s.connected {
		return false
	}
	if s.lastDataReceived.IsZero() {
		return false
	}
	return time.Since(s.lastDataReceived) <= connectedWindow
}

// IsReceivingData reports whether quote traffic arrived recently enough
// to call the stream live.
func (s *Service) IsReceivingData() bool {
	window := s.cfg.Reconnect.ReceivingDataWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.lastDataReceived.IsZero() {
		return false
	}
	return time.Since(s.lastDataReceived) <= window
}

// Status builds the connection health snapshot.
func (s *Service) Status() ConnectionStatus {
	receiving := s.IsReceivingData()
	connected := s.IsConnected()

	s.stateMu.Lock()
	lastData := s.lastDataReceived
	attempts := s.connectionAttempts
	s.stateMu.Unlock()

	status := ConnectionStatus{
		Connected:            connected,
		ReceivingData:        receiving,
		ConnectionAttempts:   attempts,
		MaxReconnectAttempts: s.cfg.Reconnect.MaxAttempts,
		ReconnectInterval:    s.cfg.Reconnect.Interval.String(),
		HealthCheckInterval:  s.cfg.Reconnect.HealthCheckInterval.String(),
	}
	if !lastData.IsZero() {
		formatted := lastData.Format(time.RFC3339)
		status.LastDataReceived = &formatted
		status.MinutesSinceLastData = time.Since(lastData).Minutes()
	}
	return status
}

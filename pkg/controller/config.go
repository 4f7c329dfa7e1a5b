package controller

import "time"

// Target identifies the radio to connect to and the credentials to log in
// with. ClientName is the station name advertised in the Login packet.
type Target struct {
	Host        string
	ControlPort int
	Username    string
	Password    string
	ClientName  string
}

// MonitorConfig tunes the health monitor and reconnect loop, per
// spec.md §6's configure_monitor operation.
type MonitorConfig struct {
	Timeout       time.Duration
	CheckInterval time.Duration
	AutoReconnect bool
	MaxAttempts   int // 0 means infinite, per spec.md §4.7
	BaseDelay     time.Duration
	MaxDelay      time.Duration
}

// DefaultMonitorConfig matches the defaults named in spec.md §4.7.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Timeout:       5 * time.Second,
		CheckInterval: 1 * time.Second,
		AutoReconnect: true,
		MaxAttempts:   0,
		BaseDelay:     2 * time.Second,
		MaxDelay:      30 * time.Second,
	}
}

const (
	overallConnectTimeout    = 30 * time.Second
	subSessionBringupTimeout = 10 * time.Second
	disconnectDrainWindow    = 200 * time.Millisecond // best-effort outbound drain before a socket closes
	reconnectReleaseWait     = 5 * time.Second         // wait for the radio to release the prior session
	tokenRenewalInterval     = 60 * time.Second
)

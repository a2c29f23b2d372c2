package gatebridge

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/procflow/internal/config"
)

// Bridge defaults. The port matches bridge.port in the generated config.yaml.
const (
	DefaultHost               = "127.0.0.1"
	DefaultPort               = 8765
	DefaultMaxBodyBytes int64 = 1 << 20
)

var defaultTimeouts = Timeouts{Read: 15 * time.Second, Write: 15 * time.Second, Idle: time.Minute}

// Timeouts bounds reads, writes and keep-alive connections.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Settings configures the bridge listener.
type Settings struct {
	Enabled      bool
	Host         string
	Port         int
	MaxBodyBytes int64
	Timeouts     Timeouts
}

// envLookup matches os.LookupEnv.
type envLookup func(key string) (string, bool)

// SettingsFromConfig starts from bridge.* in config.yaml and applies
// PROCFLOW_BRIDGE_ENABLED, PROCFLOW_BRIDGE_HOST and PROCFLOW_BRIDGE_PORT.
// Invalid overrides are ignored.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{Enabled: true, Host: DefaultHost, Port: DefaultPort}
	if cfg != nil {
		s.Enabled = cfg.BridgeEnabled()
		s.Host = cfg.Project.Bridge.Host
		s.Port = cfg.Project.Bridge.Port
	}
	return s.withEnv(os.LookupEnv).withDefaults()
}

func (s Settings) withEnv(lookup envLookup) Settings {
	if raw, ok := lookup("PROCFLOW_BRIDGE_ENABLED"); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			s.Enabled = v
		}
	}
	if raw, ok := lookup("PROCFLOW_BRIDGE_HOST"); ok && strings.TrimSpace(raw) != "" {
		s.Host = raw
	}
	if raw, ok := lookup("PROCFLOW_BRIDGE_PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && validPort(port) {
			s.Port = port
		}
	}
	return s
}

// withDefaults fills zero or invalid fields. Port 0 is only reachable by
// constructing Settings directly, which tests use for an ephemeral port.
func (s Settings) withDefaults() Settings {
	if s.Host = strings.TrimSpace(s.Host); s.Host == "" {
		s.Host = DefaultHost
	}
	if !validPort(s.Port) {
		s.Port = DefaultPort
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.Timeouts.Read <= 0 {
		s.Timeouts.Read = defaultTimeouts.Read
	}
	if s.Timeouts.Write <= 0 {
		s.Timeouts.Write = defaultTimeouts.Write
	}
	if s.Timeouts.Idle <= 0 {
		s.Timeouts.Idle = defaultTimeouts.Idle
	}
	return s
}

// Address is the host:port the server binds.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL is the base URL clients use.
func (s Settings) URL() string {
	return fmt.Sprintf("http://%s", s.Address())
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// Package gatebridge serves the gate journal over HTTP so reviewers can follow
// checkpoints and breakpoints from another terminal.
//
//	GET  /health           liveness and journal position
//	GET  /gates?since=N    journal entries with seq > N
//	POST /gates            append a gate request posted by a remote run
//	GET  /metrics          Prometheus exposition
package gatebridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kingrea/procflow/internal/gate"
)

// ProtocolVersion is reported on /health.
const ProtocolVersion = "1.0.0"

// ServerStatus is the lifecycle state reported on /health.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
	StatusStopped  ServerStatus = "stopped"
)

var (
	// ErrDisabled is returned by Start when settings turn the bridge off.
	ErrDisabled = errors.New("gatebridge: server disabled")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("gatebridge: server already started")
)

// Logger is the Printf contract shared with internal/logging.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Server owns the gate journal and the listener exposing it.
type Server struct {
	settings Settings
	journal  *gate.Journal
	forward  gate.Notifier
	gatherer prometheus.Gatherer
	logger   Logger
	clock    func() time.Time

	mu      sync.RWMutex
	http    *http.Server
	addr    net.Addr
	status  ServerStatus
	started time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithJournal serves an existing journal instead of a fresh one.
func WithJournal(j *gate.Journal) Option {
	return func(s *Server) { s.journal = j }
}

// WithForward passes every accepted gate to n after it is journaled.
func WithForward(n gate.Notifier) Option {
	return func(s *Server) { s.forward = n }
}

// WithGatherer overrides the registry exposed on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func WithLogger(l Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock fixes journal and uptime timestamps in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) { s.clock = clock }
}

// NewServer builds a stopped server. Nil options fall back to defaults.
func NewServer(settings Settings, opts ...Option) *Server {
	s := &Server{settings: settings, status: StatusStarting}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.settings.MaxBodyBytes <= 0 {
		s.settings.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.forward == nil {
		s.forward = gate.Discard
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	if s.journal == nil {
		s.journal = gate.NewJournal(gate.DefaultJournalSize, gate.WithJournalClock(s.clock))
	}
	return s
}

// Journal returns the journal backing /gates. It is also a gate.Notifier, so
// a local runner can publish into it directly.
func (s *Server) Journal() *gate.Journal { return s.journal }

// Start listens on the configured address and serves in the background
// until Shutdown. Requests inherit ctx.
func (s *Server) Start(ctx context.Context) error {
	if !s.settings.Enabled {
		return ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return ErrStarted
	}
	ln, err := net.Listen("tcp", s.settings.Address())
	if err != nil {
		return fmt.Errorf("gatebridge: listen %s: %w", s.settings.Address(), err)
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.Timeouts.Read,
		WriteTimeout: s.settings.Timeouts.Write,
		IdleTimeout:  s.settings.Timeouts.Idle,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.http, s.addr, s.started, s.status = srv, ln.Addr(), s.clock(), StatusReady

	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("gatebridge: serve: %v", err)
		}
	}()
	s.logger.Printf("gatebridge: listening on %s", ln.Addr())
	return nil
}

// Shutdown drains in-flight requests. It is a no-op on a stopped server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	if srv == nil {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusDraining
	s.mu.Unlock()

	err := srv.Shutdown(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.http, s.addr, s.status = nil, nil, StatusStopped
	return err
}

// Addr is the bound address, empty while stopped.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// BaseURL prefers the bound address so port 0 settings resolve.
func (s *Server) BaseURL() string {
	if addr := s.Addr(); addr != "" {
		return "http://" + addr
	}
	return s.settings.URL()
}

func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.http == nil {
		return 0
	}
	return s.clock().Sub(s.started)
}

// Package logging is the process-wide diagnostic log. Run progress that
// reviewers read lives in the per-run logbook instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/procflow/internal/config"
)

// FileName is the log file inside .procflow/logs.
const FileName = "procflow.log"

// Path returns the log location for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, config.ProcflowDir, "logs", FileName)
}

// Logger writes "[time] message" lines to the project log and optionally
// echoes the bare message elsewhere (stderr under --verbose).
type Logger struct {
	mu   sync.Mutex
	out  io.WriteCloser
	echo io.Writer
	now  func() time.Time
}

// New opens the project log for appending.
func New(projectDir string) (*Logger, error) {
	path := Path(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return &Logger{out: f, now: time.Now}, nil
}

// Echo mirrors messages to w; nil stops mirroring.
func (l *Logger) Echo(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echo = w
}

// Printf logs one line. Trailing newlines in the message are dropped.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return
	}
	fmt.Fprintf(l.out, "[%s] %s\n", l.now().Format(time.RFC3339), msg)
	if l.echo != nil {
		io.WriteString(l.echo, msg+"\n")
	}
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

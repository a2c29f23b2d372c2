// Package logbook writes the per-run log that backs Executor.Log. Each line
// is "<RFC3339 time> <LEVEL> <message>" so the file stays greppable.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the severity of an entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelAliases = map[string]Level{
	"TRACE":   LevelDebug,
	"DEBUG":   LevelDebug,
	"INFO":    LevelInfo,
	"WARN":    LevelWarn,
	"WARNING": LevelWarn,
	"ERROR":   LevelError,
	"FATAL":   LevelError,
}

// ParseLevel maps a level name onto a Level. Unknown names are INFO.
func ParseLevel(value string) Level {
	if level, ok := levelAliases[strings.ToUpper(strings.TrimSpace(value))]; ok {
		return level
	}
	return LevelInfo
}

// Entry is one logbook line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.Time.UTC().Format(time.RFC3339), e.Level, e.Message)
}

// Logbook appends entries to a text file. A nil *Logbook drops everything.
type Logbook struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// Option customizes a Logbook.
type Option func(*Logbook)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Logbook) {
		if clock != nil {
			l.now = clock
		}
	}
}

// New prepares a logbook at path, creating parent directories.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: %w", err)
	}
	l := &Logbook{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the backing file.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes one entry. Write failures are dropped.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{Time: l.now(), Level: level, Message: strings.TrimSpace(message)}
	_ = l.write(entry.String() + "\n")
}

func (l *Logbook) write(line string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Tail returns the last n lines and the number of lines in the file.
func (l *Logbook) Tail(n int) ([]string, int) {
	if l == nil || n <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer f.Close()

	ring := make([]string, n)
	total := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ring[total%n] = scanner.Text()
		total++
	}
	if total == 0 {
		return nil, 0
	}
	if total <= n {
		return ring[:total], total
	}
	start := total % n
	return append(ring[start:], ring[:start]...), total
}

func (l *Logbook) Debug(format string, args ...any) { l.Append(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logbook) Info(format string, args ...any) { l.Append(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logbook) Warn(format string, args ...any) { l.Append(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logbook) Error(format string, args ...any) { l.Append(LevelError, fmt.Sprintf(format, args...)) }

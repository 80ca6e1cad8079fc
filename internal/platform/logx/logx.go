// internal/platform/logx/logx.go
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// EnvLevel is the environment variable consulted by New.
const EnvLevel = "SENTINEL_LOG_LEVEL"

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	levelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "off"
	}
}

func (l Level) tag() string {
	switch l {
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	default:
		return "ERR"
	}
}

// Logger is the key/value logger shared by every component.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Err(err error, kv ...any)
	With(kv ...any) Logger
	SetLevel(lvl Level)
}

// sink is shared between a logger and its scoped children so SetLevel on
// the root affects all of them.
type sink struct {
	mu  sync.Mutex
	lvl Level
	lg  *log.Logger
	now func() time.Time
}

type simpleLogger struct {
	out   *sink
	scope []string
}

// New returns a stderr logger whose level comes from SENTINEL_LOG_LEVEL.
func New() Logger {
	return NewWriter(os.Stderr, ParseLevel(os.Getenv(EnvLevel)))
}

// NewWithLevel creates a stderr logger with a fixed level.
func NewWithLevel(lvl Level) Logger {
	return NewWriter(os.Stderr, lvl)
}

// NewWriter writes to w. Used by tests and by the CLI when output is redirected.
func NewWriter(w io.Writer, lvl Level) Logger {
	return &simpleLogger{out: &sink{lvl: lvl, lg: log.New(w, "", 0), now: time.Now}}
}

// Discard drops everything.
func Discard() Logger {
	return NewWriter(io.Discard, levelOff)
}

func (s *simpleLogger) With(kv ...any) Logger {
	return &simpleLogger{
		out:   s.out,
		scope: append(append([]string{}, s.scope...), kvPairs(kv...)...),
	}
}

func (s *simpleLogger) SetLevel(lvl Level) {
	s.out.mu.Lock()
	s.out.lvl = lvl
	s.out.mu.Unlock()
}

func (s *simpleLogger) Debug(msg string, kv ...any) { s.log(LevelDebug, msg, kv...) }
func (s *simpleLogger) Info(msg string, kv ...any)  { s.log(LevelInfo, msg, kv...) }
func (s *simpleLogger) Warn(msg string, kv ...any)  { s.log(LevelWarn, msg, kv...) }

func (s *simpleLogger) Err(err error, kv ...any) {
	if err == nil {
		return
	}
	s.log(LevelError, "", append([]any{"error", err.Error()}, kv...)...)
}

func (s *simpleLogger) log(l Level, msg string, kv ...any) {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	if l < s.out.lvl {
		return
	}

	var b strings.Builder
	b.WriteString(s.out.now().Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(l.tag())
	if m := strings.TrimSpace(msg); m != "" {
		b.WriteByte(' ')
		b.WriteString(m)
	}
	for _, f := range s.scope {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	for _, f := range kvPairs(kv...) {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	s.out.lg.Println(b.String())
}

func kvPairs(kv ...any) []string {
	out := make([]string, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		var v any = "(missing)"
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		out = append(out, fmt.Sprintf("%v=%s", kv[i], quote(v)))
	}
	return out
}

// quote wraps values containing spaces so lines stay splittable on ' '.
func quote(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, " \t\n") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// ParseLevel accepts debug|info|warn|error (and short forms); unknown input is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return LevelDebug
	case "warn", "warning", "wrn":
		return LevelWarn
	case "err", "error":
		return LevelError
	default:
		return LevelInfo
	}
}

package bootstrap

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/AR-937/framevault-app/config"
	"github.com/rs/zerolog"
)

// LogOutput is the logger sink. Its format can be switched at runtime so a
// config reload applies to loggers already handed out.
type LogOutput struct {
	mu      sync.RWMutex
	out     io.Writer
	current io.Writer
}

// NewLogOutput creates a sink writing to out in the given format.
func NewLogOutput(out io.Writer, format string) *LogOutput {
	if out == nil {
		out = os.Stdout
	}
	o := &LogOutput{out: out}
	o.SetFormat(format)
	return o
}

// SetFormat switches between "json" and "console".
func (o *LogOutput) SetFormat(format string) {
	var w io.Writer = o.out
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: o.out, TimeFormat: time.RFC3339}
	}

	o.mu.Lock()
	o.current = w
	o.mu.Unlock()
}

// Write implements io.Writer.
func (o *LogOutput) Write(p []byte) (int, error) {
	o.mu.RLock()
	w := o.current
	o.mu.RUnlock()
	return w.Write(p)
}

// NewLogger creates the application logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, *LogOutput) {
	SetLogLevel(cfg.Level)
	sink := NewLogOutput(out, cfg.Format)
	return zerolog.New(sink).With().Timestamp().Logger(), sink
}

// SetLogLevel sets the global log level. Unknown levels fall back to info.
func SetLogLevel(levelStr string) {
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

package log

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level       string `mapstructure:"level"`
	Pretty      bool   `mapstructure:"pretty"`
	ServiceName string `mapstructure:"service_name"`
	// Output is "stdout" (default) or "stderr".
	Output string `mapstructure:"output"`
	// Caller adds file:line to every record.
	Caller bool `mapstructure:"caller"`

	// Writer overrides Output; tests capture records through it.
	Writer io.Writer `mapstructure:"-"`
}

var (
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
	once   sync.Once
)

func (c Config) writer() io.Writer {
	var w io.Writer = os.Stdout
	switch {
	case c.Writer != nil:
		w = c.Writer
	case strings.EqualFold(c.Output, "stderr"):
		w = os.Stderr
	}
	if c.Pretty {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return w
}

func New(cfg Config) zerolog.Logger {
	zctx := zerolog.New(cfg.writer()).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.ServiceName != "" {
		zctx = zctx.Str(FieldService, cfg.ServiceName)
	}
	if cfg.Caller {
		zctx = zctx.Caller()
	}
	return zctx.Logger()
}

// Init sets the process logger once. zerolog.Ctx and the stdlib logger
// (used by gorm, gocql and the kafka client) both fall back to it.
func Init(cfg Config) zerolog.Logger {
	once.Do(func() {
		global = New(cfg)
		zerolog.DefaultContextLogger = &global

		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
	return global
}

func L() zerolog.Logger {
	return global
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	switch {
	case strings.EqualFold(strings.TrimSpace(s), "warning"):
		return zerolog.WarnLevel
	case strings.EqualFold(strings.TrimSpace(s), "off"):
		return zerolog.Disabled
	case err != nil, lvl == zerolog.NoLevel:
		return zerolog.InfoLevel
	}
	return lvl
}

package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	corelogger "github.com/gridsense/tapctl/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// Zerolog implements Logger using rs/zerolog.
type Zerolog struct {
	log zerolog.Logger
}

// New returns a Logger for the given component. When APP_ENV=dev, output is
// rendered for a console; otherwise structured JSON is written to stdout.
func New(component string) Logger {
	env := strings.ToLower(os.Getenv("APP_ENV"))
	var z zerolog.Logger
	if env == "dev" {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		z = zerolog.New(writer).With().Timestamp().Str("component", component).Logger()
	} else {
		z = zerolog.New(os.Stdout).With().Timestamp().Str("component", component).Logger()
	}
	return &Zerolog{log: z}
}

func (l *Zerolog) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *Zerolog) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *Zerolog) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *Zerolog) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *Zerolog) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

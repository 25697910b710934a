// Package logger builds the process logger and reports recovered panics.
package logger

import (
	"io"
	"time"

	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"
)

const sentryFlushTimeout = 3 * time.Second

// New returns a JSON logger writing to w. Error and fatal events are also
// forwarded to Sentry, which picks SENTRY_DSN, SENTRY_ENVIRONMENT and
// SENTRY_RELEASE up from the environment. Close the returned io.Closer
// before exiting to flush pending events.
func New(w io.Writer, debug bool) (zerolog.Logger, io.Closer, error) {
	writer, err := sentryzerolog.New(sentryzerolog.Config{
		ClientOptions: sentry.ClientOptions{},
		Options: sentryzerolog.Options{
			Levels:          []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel},
			FlushTimeout:    sentryFlushTimeout,
			WithBreadcrumbs: true,
		},
	})
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	m := zerolog.MultiLevelWriter(w, writer)
	return build(m, debug), writer, nil
}

// NewLocal returns a logger that never talks to Sentry, for commands that
// exit quickly such as export.
func NewLocal(w io.Writer, debug bool) zerolog.Logger {
	return build(w, debug)
}

func build(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

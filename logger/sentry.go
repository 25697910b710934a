package logger

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// RecoveredError wraps a value recovered from a panic.
type RecoveredError struct {
	ErrorMessage string
}

func (re RecoveredError) Error() string {
	return re.ErrorMessage
}

type ReportableError struct {
	Error   error
	Request *http.Request
}

// NotifySentry reports re through the client set up by sentry.Init. It is a
// no-op when Sentry is not configured.
func NotifySentry(re ReportableError) {
	hub := sentry.CurrentHub().Clone()
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if re.Request != nil {
			scope.SetRequest(re.Request)
			scope.SetTag("path", re.Request.URL.Path)
		}
		hub.CaptureException(re.Error)
	})
	hub.Flush(2 * time.Second)
}

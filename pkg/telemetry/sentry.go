// Package telemetry wires Sentry error tracking and performance monitoring
// for the epgd and lifecycled daemons. Ported from the teacher's
// pkg/telemetry (used identically across its Go services); PII scrubbing
// specific to subscriber accounts (email, IP) is dropped since this module
// has no subscriber-facing surface — the only identity this package ever
// sees is event/channel/team IDs, not end users.
//
// Usage in main.go:
//
//	import "github.com/unyeco/sportguide/pkg/telemetry"
//
//	func main() {
//	    telemetry.InitSentry(cfg.SentryDSN, "epgd", version)
//	    defer telemetry.Flush()
//	    // ...
//	}
//
// Usage in handlers/engine code:
//
//	telemetry.CaptureError(err, map[string]string{
//	    "group_id": group.ID,
//	    "operation": "lifecycle.run",
//	})
package telemetry

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry initializes the Sentry SDK for a named service.
// Call once at process startup. dsn may be empty — Sentry will be disabled.
// serviceName identifies the Go process ("epgd", "lifecycled").
// release should be the git SHA or version tag (e.g. "v1.2.3" or "abc1234").
func InitSentry(dsn, serviceName, release string) error {
	env := os.Getenv("SPORTGUIDE_ENV")
	if env == "" {
		env = "development"
	}

	if dsn == "" {
		// Sentry disabled — not an error. Log and continue.
		fmt.Fprintf(os.Stderr, "[telemetry] SENTRY_DSN not set — Sentry disabled for %s\n", serviceName)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,

		// Sample 20% of transactions for performance monitoring.
		// Increase when budget allows — free tier: 10K transactions/month.
		TracesSampleRate: 0.2,

		// Attach stack traces to all captured messages (not just panics).
		AttachStacktrace: true,

		// Default tags applied to every event from this service.
		Tags: map[string]string{
			"service": serviceName,
		},
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}

	return nil
}

// CaptureError sends an error to Sentry with optional context tags.
// tags may include: group_id, event_id, channel_id, provider, operation.
// Safe to call when Sentry is disabled (dsn was empty).
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CaptureMessage sends a non-error message to Sentry (e.g., for important events).
func CaptureMessage(message string, level sentry.Level, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureMessage(message)
	})
}

// Flush waits for buffered Sentry events to be sent. Call with defer in main():
//
//	defer telemetry.Flush()
func Flush() {
	sentry.Flush(2 * time.Second)
}

// PanicRecoveryMiddleware is an HTTP middleware that catches panics, reports them
// to Sentry with request context, and returns a 500 response.
func PanicRecoveryMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					// Capture panic as a Sentry event with request context.
					hub := sentry.CurrentHub().Clone()
					hub.Scope().SetRequest(r)
					hub.Scope().SetTag("service", serviceName)
					hub.Scope().SetTag("panic", "true")

					var err error
					switch v := rec.(type) {
					case error:
						err = v
					default:
						err = fmt.Errorf("panic: %v", v)
					}
					hub.CaptureException(err)

					// Flush immediately so the event is sent before the response is written.
					hub.Flush(2 * time.Second)

					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SetGroupContext tags the current Sentry scope with the event group a
// lifecycle operation is running for, the analogue of the teacher's
// per-request subscriber context for a background daemon with no request
// scope of its own.
func SetGroupContext(groupID string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("group_id", groupID)
	})
}

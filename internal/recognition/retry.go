package recognition

import (
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// Retrying wraps a Recognizer and retries failed calls. An image with no
// readable text is not retried; the engine will not read it on a second
// attempt either.
type Retrying struct {
	next     Recognizer
	attempts uint
	delay    time.Duration
}

// NewRetrying wraps next. attempts counts the first call; values below 1
// are treated as 1.
func NewRetrying(next Recognizer, attempts uint, delay time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: next, attempts: attempts, delay: delay}
}

// Recognize calls the wrapped recognizer until it succeeds, returns
// ErrNoText, or runs out of attempts. The last error is returned.
func (r *Retrying) Recognize(imageData []byte, contentType string) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			return r.next.Recognize(imageData, contentType)
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrNoText)
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Recognition failed, retrying", "attempt", n+1, "error", err)
		}),
	)
}

// Close closes the wrapped recognizer
func (r *Retrying) Close() error {
	return r.next.Close()
}

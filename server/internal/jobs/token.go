package jobs

import (
	"errors"
	"sync/atomic"
)

// ErrCancelled is the terminal outcome of a user-initiated abort. It is a
// distinct outcome, not a failure: handlers map it to a dedicated status
// code and workers translate it into a "cancelled" broadcast.
var ErrCancelled = errors.New("cancelled by user")

// Token is a cooperative abort flag shared by one job-group (a single
// download, a queued batch, or a compression). Workers poll it at every
// progress tick and never mutate it.
type Token struct {
	cancelled atomic.Bool
}

func NewToken() *Token { return &Token{} }

// Cancel flips the token. Idempotent and safe from any goroutine.
func (t *Token) Cancel() { t.cancelled.Store(true) }

// Cancelled is a non-blocking read usable from any goroutine.
func (t *Token) Cancelled() bool { return t.cancelled.Load() }

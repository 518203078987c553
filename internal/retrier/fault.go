package retrier

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FaultKind classifies a failed remote call.
type FaultKind int

const (
	NonRetryable FaultKind = iota
	Retryable
	Cancelled
)

func (k FaultKind) String() string {
	switch k {
	case Retryable:
		return "retryable"
	case Cancelled:
		return "cancelled"
	default:
		return "non_retryable"
	}
}

// Fault is a classified failure of a single remote call. Status carries the
// remote status code when there was one.
type Fault struct {
	Kind   FaultKind
	Status int
	Err    error
}

func NewFault(kind FaultKind, status int, err error) *Fault {
	return &Fault{Kind: kind, Status: status, Err: err}
}

func (f *Fault) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s fault (status %d): %v", f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("%s fault: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// RetriesExhausted is returned once a retryable fault persisted through every
// allowed attempt.
type RetriesExhausted struct {
	Attempts int
	Last     error
}

func (e *RetriesExhausted) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhausted) Unwrap() error { return e.Last }

// Classifier decides whether an error returned by an operation may be retried.
type Classifier func(err error) FaultKind

// DefaultClassifier honors explicit *Fault kinds. A per-call deadline and
// network timeouts are retryable, cancellation is terminal, anything else is
// treated as non-retryable.
func DefaultClassifier(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Retryable
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Retryable
	}
	return NonRetryable
}

// IsKind reports whether err carries a *Fault of the given kind.
func IsKind(err error, kind FaultKind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == kind
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for boundary validation and registry operations.
var (
	// ErrInvalidConfig rejects bad levelCount/drawdownPct/entryPrice at the
	// boundary, before any state is created.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCorruptState marks a persisted record that fails invariant checks.
	// The equity is still loaded (Idle) but refuses activation until fixed.
	ErrCorruptState = errors.New("corrupt persisted state")

	// ErrHasOpenOrders refuses removal of an equity that still has
	// non-terminal orders recorded. Deactivate first.
	ErrHasOpenOrders = errors.New("equity has open orders")

	// ErrNotFound is returned for operations on unknown symbols.
	ErrNotFound = errors.New("equity not found")

	// ErrAlreadyExists is returned when adding a symbol twice.
	ErrAlreadyExists = errors.New("equity already exists")
)

// GatewayErrorKind splits broker failures into retryable and unretryable.
type GatewayErrorKind int

const (
	// KindTransient covers network timeouts, rate limits and 5xx responses.
	// The gateway adapter retries these with bounded backoff; if retries
	// exhaust, the equity is deferred to the next tick.
	KindTransient GatewayErrorKind = iota

	// KindFatal covers auth, permission and unknown-symbol failures. Never
	// retried; the equity moves to StatusError until operator action.
	KindFatal
)

// GatewayError wraps a broker failure with its retry classification.
type GatewayError struct {
	Kind GatewayErrorKind
	Op   string // e.g. "alpaca.Submit"
	Err  error
}

func (e *GatewayError) Error() string {
	kind := "transient"
	if e.Kind == KindFatal {
		kind = "fatal"
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable gateway failure.
func Transient(op string, err error) *GatewayError {
	return &GatewayError{Kind: KindTransient, Op: op, Err: err}
}

// Fatal wraps err as an unretryable gateway failure.
func Fatal(op string, err error) *GatewayError {
	return &GatewayError{Kind: KindFatal, Op: op, Err: err}
}

// IsFatal reports whether err is (or wraps) a fatal gateway error.
func IsFatal(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == KindFatal
}

// IsTransient reports whether err is (or wraps) a transient gateway error.
func IsTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == KindTransient
}

package volume

import (
	"errors"
	"fmt"
	"log"
)

// Kind classifies an *Error without callers needing type assertions
// against concrete error types.
type Kind uint8

const (
	// InvalidArgument marks bad indices, an out-of-range time index, or an
	// unsupported multi-component dtype. Thrown synchronously, before any
	// state change.
	InvalidArgument Kind = iota
	// InvalidGeometry marks a zero-length clip-plane normal or a
	// non-finite number in clip-plane data.
	InvalidGeometry
	// StoreFailure wraps any network/decode error surfaced by the Store.
	StoreFailure
	// Cancelled marks supersession or an explicit abort. Callers should
	// treat it as quiet: never surface it as a user-visible failure.
	Cancelled
	// InternalInvariant marks a should-not-happen condition. It is logged
	// and the engine is left in a defined idle state.
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidGeometry:
		return "InvalidGeometry"
	case StoreFailure:
		return "StoreFailure"
	case Cancelled:
		return "Cancelled"
	case InternalInvariant:
		return "InternalInvariant"
	default:
		return "Unknown"
	}
}

// Error is the engine's error type. It always carries a Kind so callers can
// branch with errors.As without depending on message text.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "setClipPlanes"
	Err  error  // wrapped cause, nil for pure validation errors
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("volume: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("volume: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, volume.Cancelled) style checks against a
// sentinel built with newErr(kind, op, nil).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsCancelled reports whether err is a quiet cancellation: supersession or
// an explicit abort.
func IsCancelled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == Cancelled
}

// debugEnabled gates non-hot-path diagnostic logging, mirroring the
// global debug-log-gate convention.
var debugEnabled bool

// SetDebug toggles diagnostic logging for listener panics, prefetch
// failures, and failures of background work (debounced clip-plane and
// viewport reselection, slab loads). Off by default.
func SetDebug(v bool) { debugEnabled = v }

func debugf(format string, args ...any) {
	if debugEnabled {
		log.Printf("volume: "+format, args...)
	}
}

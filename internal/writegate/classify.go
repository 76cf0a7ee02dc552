package writegate

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

// Kind is the error taxonomy reported to subscribers.
type Kind string

const (
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUnavailable      Kind = "unavailable"
	KindCanceled         Kind = "canceled"
	KindInvalid          Kind = "invalid"
	KindUnknown          Kind = "unknown"
)

// ErrInvalid can be wrapped by Apply functions that reject their payload.
var ErrInvalid = errors.New("invalid write")

// Classify maps store errors onto a Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, data.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, data.ErrNotFound):
		return KindNotFound
	case errors.Is(err, data.ErrConflict):
		return KindConflict
	case errors.Is(err, data.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrInvalid):
		return KindInvalid
	}
	return KindUnknown
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else Classify(err).
func KindOf(err error) Kind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return Classify(err)
}

package data

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Errors returned by every store implementation (Mongo and in-memory).
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("store unavailable")
)

// mongoUnauthorized is the server error code for "not authorized on db to execute command".
const mongoUnauthorized = 13

// translate maps driver errors onto the package sentinels so callers never
// need to import the driver to classify a failure.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(mongoUnauthorized) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

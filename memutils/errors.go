package memutils

import (
	"context"

	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
)

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

var (
	// ErrOutOfTiles indicates that no free run of tiles was large enough for a request. It is an
	// expected outcome under memory pressure: evicting tiles and retrying is a valid response.
	ErrOutOfTiles error = errors.New("tile heap has no free run large enough")
	// ErrInvalidArgument indicates a caller error. Operations returning it have not mutated any state.
	ErrInvalidArgument error = errors.New("invalid argument")
	// ErrNotMapped indicates that a tile coordinate has no heap tile bound to it
	ErrNotMapped error = errors.New("tile is not mapped")
	// ErrBackend indicates that the graphics backend failed an operation. Any heap or mapping
	// changes made by the failed operation have been rolled back.
	ErrBackend error = errors.New("graphics backend operation failed")
	// ErrFenceTimeout indicates that a wait for GPU completion ended before the fence was reached.
	// Ring and fence state are exactly as they were before the wait.
	ErrFenceTimeout error = errors.New("timed out waiting for fence")
	// ErrDestroyed indicates use of an object after it was destroyed
	ErrDestroyed error = errors.New("object has been destroyed")
)

// BackendError wraps err with the context of the backend operation that failed and marks it
// with ErrBackend
func BackendError(err error, format string, args ...interface{}) error {
	return cerrors.Mark(cerrors.Wrapf(err, format, args...), ErrBackend)
}

// FenceWaitError classifies an error returned from a fence wait. Context expiry and
// cancellation are marked with ErrFenceTimeout, anything else with ErrBackend.
func FenceWaitError(err error, value uint64) error {
	if cerrors.Is(err, context.DeadlineExceeded) || cerrors.Is(err, context.Canceled) {
		return cerrors.Mark(cerrors.Wrapf(err, "fence value %d was not reached", value), ErrFenceTimeout)
	}
	return BackendError(err, "waiting for fence value %d", value)
}

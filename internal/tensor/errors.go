package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ShapeError reports a rank or dimension mismatch between the tensors handed to an operation and
// the operation's declared parameters. It is always raised before any tensor is modified.
type ShapeError struct {
	Op  string
	Msg string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: shape error: %s", e.Op, e.Msg)
}

// PreconditionError reports a violated caller contract: kernel larger than the input, non-positive
// strides, parameter tensors of the wrong size, indices that would land outside a view.
type PreconditionError struct {
	Op  string
	Msg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Msg)
}

// ShapeErrorf returns a *ShapeError for op with a stack trace attached.
func ShapeErrorf(op, format string, args ...any) error {
	return errors.WithStack(&ShapeError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// PreconditionErrorf returns a *PreconditionError for op with a stack trace attached.
func PreconditionErrorf(op, format string, args ...any) error {
	return errors.WithStack(&PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// IsShapeError reports whether err wraps a *ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// IsPreconditionError reports whether err wraps a *PreconditionError.
func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

package cpu

import (
	"github.com/born-ml/nnconv/internal/tensor"
	"github.com/gomlx/exceptions"
)

// guard runs a kernel body and turns a panic escaping it (an index past a view, a BLAS length
// check) into a PreconditionError for op. Arguments are validated before kernels start, so a
// panic here means a view whose strides disagree with its storage.
func guard(op string, body func()) error {
	exception := exceptions.Try(body)
	if exception == nil {
		return nil
	}
	if err, ok := exception.(error); ok {
		return tensor.PreconditionErrorf(op, "kernel aborted: %v", err)
	}
	return tensor.PreconditionErrorf(op, "kernel aborted: %v", exception)
}

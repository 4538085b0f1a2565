package generation

import (
	"context"
	"errors"
	"net"

	"github.com/sony/gobreaker"
)

// Classify maps an attempt error to its failure kind.
func Classify(err error) FailureKind {
	var netErr net.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return FailureCircuitOpen
	case errors.Is(err, ErrPromptTooLong):
		return FailurePromptTooLong
	case errors.Is(err, ErrModelUnavailable):
		return FailureModelUnavailable
	case errors.Is(err, ErrEmptyResponse):
		return FailureEmpty
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		return FailureTimeout
	default:
		return FailureTransport
	}
}

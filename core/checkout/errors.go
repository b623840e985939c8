package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrAuth          = errors.New("user not authenticated")
	ErrEmptyCart     = errors.New("no items to checkout")
	ErrOrderNotFound = errors.New("no order bound to the payment session")
)

// GatewayError is returned when the payment provider could not be reached
// or answered with a non successful status.
type GatewayError struct {
	Status int
	Detail string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("payment gateway: %s", e.Detail)
	}
	return fmt.Sprintf("payment gateway responded %d: %s", e.Status, e.Detail)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NotCompletedError is returned when the provider answered a capture with an
// outcome other than completed.
type NotCompletedError struct {
	SessionID string
	Outcome   string
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("payment[%s] captured with status[%s] different from '%s'", e.SessionID, e.Outcome, OutcomeCompleted)
}

func asGatewayError(err error) *GatewayError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return &GatewayError{Detail: err.Error(), Err: err}
}

package pipeline

import "fmt"

// DeliveryError means the notification could not be delivered. The operator
// has been alerted.
type DeliveryError struct {
	Cause error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Cause)
}

func (e *DeliveryError) Unwrap() error { return e.Cause }

func (e *DeliveryError) Kind() string { return "delivery" }

// UnexpectedError is any failure outside the known taxonomy, panics included.
// The operator has been alerted.
type UnexpectedError struct {
	Stage string
	Cause error
	Stack []byte
}

func (e *UnexpectedError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("unexpected error: %v", e.Cause)
	}
	return fmt.Sprintf("unexpected error in %s: %v", e.Stage, e.Cause)
}

func (e *UnexpectedError) Unwrap() error { return e.Cause }

func (e *UnexpectedError) Kind() string { return "unexpected" }

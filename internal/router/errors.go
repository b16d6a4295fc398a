package router

import "fmt"

// DecodeError reports a service reply whose payload could not be decoded.
type DecodeError struct {
	Topic string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode reply on %s: %v", e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// HandlerError wraps an error returned by an application handler.
type HandlerError struct {
	Topic string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s: %v", e.Topic, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PanicError carries a panic recovered from an application handler.
type PanicError struct {
	Topic string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler for %s panicked: %v", e.Topic, e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

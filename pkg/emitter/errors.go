package emitter

import (
	"errors"

	"github.com/rmacdonaldsmith/emitter-go/internal/router"
)

var (
	// ErrNoDefaultKey is returned when an operation is called without a key
	// and the client has no default key
	ErrNoDefaultKey = errors.New("no key given and no default key configured")
	// ErrEmptyChannel is returned when the channel is empty
	ErrEmptyChannel = errors.New("channel cannot be empty")
	// ErrNilHandler is returned when a required handler is nil
	ErrNilHandler = errors.New("handler cannot be nil")
	// ErrClosed is returned for operations on a closed client
	ErrClosed = errors.New("client is closed")
)

// Errors delivered to the OnError callback.
type (
	DecodeError  = router.DecodeError
	HandlerError = router.HandlerError
	PanicError   = router.PanicError
)

package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFromStatus(t *testing.T) {
	err := ErrorFromStatus(StatusNotFound)
	assert.Equal(t, StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Contains(t, err.Error(), "404")

	unknown := ErrorFromStatus(418)
	assert.Equal(t, "unknown error", unknown.Message)
}

func TestError_IsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("keygen failed: %w", NewError(StatusUnauthorized, "bad key"))

	assert.True(t, errors.Is(wrapped, ErrUnauthorized))

	var e *Error
	if assert.True(t, errors.As(wrapped, &e)) {
		assert.Equal(t, "bad key", e.Message)
	}
}

func TestNewError_DefaultMessage(t *testing.T) {
	assert.Equal(t, ErrForbidden.Message, NewError(StatusForbidden, "").Message)
}

func TestAccess(t *testing.T) {
	assert.Equal(t, "rw", AccessReadWrite.String())
	assert.Equal(t, "rwslpex", (AccessReadWrite | AccessStoreLoad | AccessPresence | AccessExtend | AccessExecute).String())
	assert.Equal(t, "", Access(0).String())
	assert.Equal(t, AccessRead|AccessPresence, ParseAccess("pr?"))
}

package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewValidation("content cannot be empty")
	assert.Equal(t, "VALIDATION: content cannot be empty", err.Error())

	cause := stderrors.New("broken pipe")
	err = NewTransport("write failed", cause)
	assert.Equal(t, "TRANSPORT: write failed: broken pipe", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidation("v")))
	assert.True(t, IsNotFound(NewNotFound("n")))
	assert.True(t, IsTransport(NewTransport("t", nil)))
	assert.True(t, IsDecode(NewDecode("d", nil)))
	assert.True(t, IsDroppedSend(NewDroppedSend("s")))
	assert.True(t, IsInternal(NewInternal("i", nil)))

	assert.False(t, IsValidation(NewDecode("d", nil)))
	assert.False(t, IsDecode(stderrors.New("plain")))
	assert.False(t, IsTransport(nil))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))

	// Wrapping an AppError preserves its type.
	wrapped := Wrap(NewDecode("malformed frame", nil), "handling inbound")
	assert.True(t, IsDecode(wrapped))
	assert.Contains(t, wrapped.Error(), "handling inbound")
	assert.Contains(t, wrapped.Error(), "malformed frame")

	// Wrapping a plain error yields an internal one.
	wrapped = Wrap(stderrors.New("disk full"), "persisting")
	assert.True(t, IsInternal(wrapped))
}

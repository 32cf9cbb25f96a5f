package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("gone")))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("handler: %w", Forbidden("nope"))
	assert.Equal(t, CodePermissionDenied, CodeOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "saving attachment", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "saving attachment")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "saving attachment", MessageOf(err))
}

func TestMessageOfPlainError(t *testing.T) {
	assert.Equal(t, "boom", MessageOf(errors.New("boom")))
}

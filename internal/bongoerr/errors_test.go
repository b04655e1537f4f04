package bongoerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasMessageDistinguishesBareTagVariants(t *testing.T) {
	assert.False(t, EmptySqlStatement().HasMessage())
	assert.False(t, Deserializer().HasMessage())
	assert.True(t, Internal("boom").HasMessage())
	assert.True(t, SqlSyntax("bad token").HasMessage())
}

func TestAsWrapsForeignErrorsAsInternal(t *testing.T) {
	be := As(errors.New("disk on fire"))
	assert.Equal(t, KindInternal, be.Kind)
	assert.Contains(t, be.Message, "disk on fire")
}

func TestAsPassesThroughExistingError(t *testing.T) {
	original := SqlRuntime("division by zero")
	assert.Same(t, original, As(original))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	wrapped := Wrap(KindReadFile, cause, "reading config")
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

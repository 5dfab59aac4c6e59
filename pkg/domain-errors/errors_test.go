package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(nil, CodeInternal, "should be dropped"))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "registration not found")
	wrapped := fmt.Errorf("get registration: %w", base)

	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeUnauthorized))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestCodeOfAndMessageOf(t *testing.T) {
	err := Wrap(errors.New("pq: connection refused"), CodeDependency, "payment service unavailable")

	assert.Equal(t, CodeDependency, CodeOf(err))
	assert.Equal(t, "payment service unavailable", MessageOf(err))

	plain := errors.New("boom")
	assert.Equal(t, CodeInternal, CodeOf(plain))
	assert.Equal(t, "internal error", MessageOf(plain))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:   http.StatusBadRequest,
		CodeValidation:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeNotFound:     http.StatusNotFound,
		CodeDependency:   http.StatusBadGateway,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(cause, CodeDependency, "invoice create failed")
	assert.Contains(t, err.Error(), "timeout")
	assert.ErrorIs(t, err, cause)
}

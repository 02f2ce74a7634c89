package validation

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_CollectsFields(t *testing.T) {
	var v Error
	v.Required("first_name", "First name", "")
	v.Required("last_name", "Last name", "  ")
	v.Required("sex", "Sex", "Female")
	v.Add("injuries", "Need to specify injury")

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, "First name is required; Last name is required; Need to specify injury", err.Error())
	assert.True(t, v.Has("injuries"))
	assert.False(t, v.Has("sex"))
}

func TestError_EmptyIsNil(t *testing.T) {
	var v Error
	assert.NoError(t, v.Err())

	var nilErr *Error
	assert.NoError(t, nilErr.Err())
}

func TestHTTPError(t *testing.T) {
	var v Error
	v.Add("cause", "Cause is required")
	wrapped := fmt.Errorf("create case: %w", v.Err())

	he, ok := HTTPError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, he.Code)

	_, ok = HTTPError(errors.New("connection reset"))
	assert.False(t, ok)
}

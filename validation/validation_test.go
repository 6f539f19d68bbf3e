package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	v := Required{}

	assert.NoError(t, v.Validate("hello"))
	assert.NoError(t, v.Validate(42))

	err := v.Validate(nil)
	require.Error(t, err)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	verr.Column = "first_name"
	assert.Equal(t, "First Name is required.", verr.Error())

	assert.Error(t, v.Validate(""))
}

func TestRequiredCustomMessage(t *testing.T) {
	v := Required{BaseValidator{Msg: "gotta have it"}}

	err := v.Validate(nil)
	require.Error(t, err)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	verr.Column = "name"
	assert.Equal(t, "gotta have it", verr.Error())
}

func TestFunc(t *testing.T) {
	positive := Func(func(value interface{}) error {
		if n, ok := value.(int); ok && n > 0 {
			return nil
		}
		return &Error{Msg: "must be positive"}
	})

	assert.NoError(t, positive.Validate(3))
	assert.EqualError(t, positive.Validate(-1), "must be positive")
}

func TestErrorsAggregation(t *testing.T) {
	errs := &Errors{}
	assert.False(t, errs.Any())

	errs.Add("name", "Name is required.")
	errs.Add("email", "Email is required.")
	errs.Add("email", "Email must be valid.")

	require.True(t, errs.Any())
	assert.Equal(t, "email: Email is required.; Email must be valid.\nname: Name is required.", errs.Error())
}

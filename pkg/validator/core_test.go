package validator_test

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifycore/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Run("all rules pass", func(t *testing.T) {
		err := validator.Apply(
			validator.Required("name", "x"),
			validator.MaxLen("name", "x", 3),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure", func(t *testing.T) {
		err := validator.Apply(
			validator.Required("name", "  "),
			validator.MaxLen("title", "abcd", 3),
			validator.Check("payload", true, "never"),
		)
		require.Error(t, err)

		ve := validator.ExtractValidationErrors(err)
		require.Len(t, ve, 2)
		assert.True(t, ve.Has("name"))
		assert.True(t, ve.Has("title"))
		assert.False(t, ve.Has("payload"))
		assert.Equal(t, []string{"must be at most 3 characters long"}, ve.Get("title"))
		assert.Contains(t, err.Error(), "name: field is required")
	})
}

func TestMatches(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+$`)

	tests := []struct {
		value string
		ok    bool
	}{
		{value: "abc", ok: true},
		{value: "", ok: true},
		{value: "ABC", ok: false},
		{value: "a b", ok: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.value), func(t *testing.T) {
			err := validator.Apply(validator.Matches("f", tt.value, re, "lowercase letters"))
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestExtractValidationErrors(t *testing.T) {
	sentinel := errors.New("invalid")
	wrapped := errors.Join(sentinel, validator.ValidationErrors{{Field: "f", Message: "m"}})

	assert.True(t, validator.IsValidationError(wrapped))
	assert.Len(t, validator.ExtractValidationErrors(wrapped), 1)
	assert.ErrorIs(t, wrapped, sentinel)

	assert.Nil(t, validator.ExtractValidationErrors(sentinel))
	assert.False(t, validator.IsValidationError(nil))
}

func TestValidationErrorsEmpty(t *testing.T) {
	assert.Equal(t, "validation failed", validator.ValidationErrors{}.Error())
}

func TestEmail(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{value: "learner@example.com", ok: true},
		{value: "first.last+tag@mail.example.org", ok: true},
		{value: "", ok: true},
		{value: "not-an-email", ok: false},
		{value: "a@b", ok: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.value), func(t *testing.T) {
			err := validator.Apply(validator.Email("to", tt.value))
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

package validation_test

import (
	"strings"
	"testing"

	"github.com/effective-security/protoreview/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validProto = `syntax = "proto3";

package company.orders.events.v1;

message OrderCreatedEvent {
  string event_id = 1;
  string correlation_id = 2;
}
`

func Test_ValidateInput(t *testing.T) {
	err := validation.ValidateInput("", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Contains(t, err.Error(), "cannot be empty")

	err = validation.ValidateInput("   \n\t ", 0)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)

	err = validation.ValidateInput(strings.Repeat("x", 100), 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size (50 bytes)")

	assert.NoError(t, validation.ValidateInput(validProto, 0))
}

func Test_MaxInputSize(t *testing.T) {
	t.Setenv(validation.MaxInputSizeEnvVarName, "")
	assert.Equal(t, validation.DefaultMaxInputSize, validation.MaxInputSize())

	t.Setenv(validation.MaxInputSizeEnvVarName, "2048")
	assert.Equal(t, 2048, validation.MaxInputSize())

	t.Setenv(validation.MaxInputSizeEnvVarName, "not-a-number")
	assert.Equal(t, validation.DefaultMaxInputSize, validation.MaxInputSize())
}

func Test_CheckSyntax(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res := validation.CheckSyntax(validProto, "input.proto")
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
		assert.Empty(t, res.Warnings)
	})

	t.Run("missing_syntax_declaration", func(t *testing.T) {
		res := validation.CheckSyntax("message Foo { string a = 1; }", "input.proto")
		assert.True(t, res.Valid)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "Missing syntax declaration")
	})

	t.Run("unclosed_brace", func(t *testing.T) {
		res := validation.CheckSyntax(`syntax = "proto3";
message Foo {
  string a = 1;
`, "input.proto")
		assert.False(t, res.Valid)
		assert.Contains(t, res.ErrorMessage(), "Unclosed brace")
	})

	t.Run("extra_closing_brace", func(t *testing.T) {
		res := validation.CheckSyntax(`syntax = "proto3";
message Foo {
  string a = 1;
}
}
`, "input.proto")
		assert.False(t, res.Valid)
		assert.Contains(t, res.ErrorMessage(), "Unexpected closing brace")
	})

	t.Run("duplicate_field_number", func(t *testing.T) {
		res := validation.CheckSyntax(`syntax = "proto3";
message Foo {
  string a = 1;
  string b = 1;
}
`, "input.proto")
		assert.False(t, res.Valid)
		assert.Contains(t, res.ErrorMessage(), "duplicate field number 1 in message Foo")
	})

	t.Run("duplicate_enum_values_allowed", func(t *testing.T) {
		res := validation.CheckSyntax(`syntax = "proto3";
enum State {
  option allow_alias = true;
  STATE_UNSPECIFIED = 0;
  STATE_NONE = 0;
}
`, "input.proto")
		assert.True(t, res.Valid, res.ErrorMessage())
	})

	t.Run("comments_ignored", func(t *testing.T) {
		res := validation.CheckSyntax(`syntax = "proto3";
// message in comment {
message Foo {
  string a = 1; // trailing }
}
`, "input.proto")
		assert.True(t, res.Valid, res.ErrorMessage())
	})

	t.Run("no_definitions", func(t *testing.T) {
		res := validation.CheckSyntax(`syntax = "proto3";`, "input.proto")
		assert.True(t, res.Valid)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "No message, enum, or service definitions")
	})

	t.Run("keyword_typo", func(t *testing.T) {
		res := validation.CheckSyntax(`syntax = "proto3";
messge Foo {
}
`, "input.proto")
		assert.False(t, res.Valid)
		assert.Contains(t, res.ErrorMessage(), "'message' misspelled")
	})
}

func Test_Validate(t *testing.T) {
	assert.NoError(t, validation.Validate(validProto, 0))

	err := validation.Validate("message Foo { string a = 1; string b = 1; }", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Contains(t, err.Error(), "proto syntax error")
}

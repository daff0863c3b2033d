package skill_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

func TestParseMetadata(t *testing.T) {
	m, err := skill.ParseMetadata(`{"name":"kubernetes","version":"1.0.0","description":"d","author":"a"}`)
	require.NoError(t, err)
	assert.Equal(t, "kubernetes", m.Name)

	_, err = skill.ParseMetadata(`not json`)
	assert.True(t, apperr.Is(err, apperr.InvocationError))

	_, err = skill.ParseMetadata(`{}`)
	assert.True(t, apperr.Is(err, apperr.InvocationError))
}

func TestParseExecutionResult(t *testing.T) {
	r, err := skill.ParseExecutionResult(`{"ok":{"success":true,"output":"done"}}`)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "done", r.Output)

	r, err = skill.ParseExecutionResult(`{"err":"boom"}`)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "boom", r.ErrorMessage)

	_, err = skill.ParseExecutionResult(`{}`)
	assert.True(t, apperr.Is(err, apperr.InvocationError))

	_, err = skill.ParseExecutionResult(`not json`)
	assert.True(t, apperr.Is(err, apperr.InvocationError))
}

func TestParseValidateConfigResult(t *testing.T) {
	assert.NoError(t, skill.ParseValidateConfigResult(`{"ok":{}}`))

	err := skill.ParseValidateConfigResult(`{"err":"missing api_key"}`)
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}

func TestEncodeArgs(t *testing.T) {
	out, err := skill.EncodeArgs([]skill.KV{{Key: "namespace", Value: "prod"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"namespace":"prod"}`, out)
}

func TestBuildParameterSchemaRequiresField(t *testing.T) {
	schema, err := skill.BuildParameterSchema([]skill.ToolParameter{
		{Name: "file", Type: skill.ParamString, Required: true},
		{Name: "namespace", Type: skill.ParamString, Required: false},
	})
	require.NoError(t, err)

	err = skill.ValidateConfigAgainstSchema(schema, map[string]skill.ConfigEntry{
		"namespace": {Value: "prod"},
	})
	assert.Error(t, err)

	err = skill.ValidateConfigAgainstSchema(schema, map[string]skill.ConfigEntry{
		"file":      {Value: "a.yaml"},
		"namespace": {Value: "prod"},
	})
	assert.NoError(t, err)
}

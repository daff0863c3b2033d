package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/skill"
)

func testTool() skill.ToolDefinition {
	return skill.ToolDefinition{
		Name:        "apply",
		Description: "Apply a Kubernetes manifest",
		Parameters: []skill.ToolParameter{
			{Name: "file", Type: skill.ParamString, Description: "Path to manifest file", Required: true},
			{Name: "namespace", Type: skill.ParamString, Description: "Target namespace", Required: false},
			{Name: "dry-run", Type: skill.ParamBoolean, Description: "Perform dry run", Required: false},
		},
	}
}

func TestParseCommandBasic(t *testing.T) {
	v := NewValidator()
	parsed, err := v.ParseCommand("skill run k8s:apply --file=deploy.yaml")
	require.NoError(t, err)
	assert.Equal(t, "k8s", parsed.Skill)
	assert.Equal(t, "apply", parsed.Tool)
	val, ok := parsed.GetParam("file")
	assert.True(t, ok)
	assert.Equal(t, "deploy.yaml", val)
}

func TestParseCommandSeparateValue(t *testing.T) {
	v := NewValidator()
	parsed, err := v.ParseCommand("skill run apply --file deploy.yaml --namespace prod")
	require.NoError(t, err)
	assert.Equal(t, "apply", parsed.Tool)
	val, _ := parsed.GetParam("file")
	assert.Equal(t, "deploy.yaml", val)
	val, _ = parsed.GetParam("namespace")
	assert.Equal(t, "prod", val)
}

func TestParseCommandFlags(t *testing.T) {
	v := NewValidator()
	parsed, err := v.ParseCommand("apply --dry-run --file=test.yaml")
	require.NoError(t, err)
	assert.Contains(t, parsed.Flags, "dry-run")
	assert.True(t, parsed.HasParam("dry-run"))
}

func TestParseCommandKeyValue(t *testing.T) {
	v := NewValidator()
	parsed, err := v.ParseCommand("skill run tool namespace=default file=app.yaml")
	require.NoError(t, err)
	val, _ := parsed.GetParam("namespace")
	assert.Equal(t, "default", val)
	val, _ = parsed.GetParam("file")
	assert.Equal(t, "app.yaml", val)
}

func TestValidateExampleValid(t *testing.T) {
	v := NewValidator()
	tool := testTool()
	example := GeneratedExample{Command: "skill run k8s:apply --file=deploy.yaml", Explanation: "Apply deployment manifest", Confidence: 0.9}

	result := v.ValidateExample(example, tool)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateExampleMissingRequired(t *testing.T) {
	v := NewValidator()
	tool := testTool()
	example := GeneratedExample{Command: "skill run k8s:apply --namespace=prod", Explanation: "Apply to prod namespace", Confidence: 0.8}

	result := v.ValidateExample(example, tool)
	assert.False(t, result.Valid)
	found := false
	for _, e := range result.Errors {
		if e == "Missing required parameter: file" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateExampleEmptyExplanation(t *testing.T) {
	v := NewValidator()
	tool := testTool()
	example := GeneratedExample{Command: "skill run k8s:apply --file=test.yaml", Explanation: "  ", Confidence: 0.9}

	result := v.ValidateExample(example, tool)
	assert.False(t, result.Valid)
}

func TestDiversityIdentical(t *testing.T) {
	v := NewValidator()
	examples := []GeneratedExample{
		NewGeneratedExample("skill run apply --file=a.yaml", "Apply a"),
		NewGeneratedExample("skill run apply --file=a.yaml", "Apply a"),
	}
	assert.Less(t, v.CalculateDiversity(examples), float32(0.5))
}

func TestDiversityDifferent(t *testing.T) {
	v := NewValidator()
	examples := []GeneratedExample{
		NewGeneratedExample("skill run apply --file=deploy.yaml", "Deploy app"),
		NewGeneratedExample("skill run delete --namespace=prod --all", "Delete all in prod"),
		NewGeneratedExample("skill run get pods --output=json", "List pods as JSON"),
	}
	assert.Greater(t, v.CalculateDiversity(examples), float32(0.5))
}

func TestBatchValidation(t *testing.T) {
	v := NewValidator()
	tool := testTool()
	examples := []GeneratedExample{
		NewGeneratedExample("skill run apply --file=a.yaml", "Apply a"),
		NewGeneratedExample("skill run apply --namespace=prod", "Missing file"),
	}
	results := v.ValidateBatch(examples, tool)
	require.Len(t, results, 2)
	assert.True(t, results[0].Valid)
	assert.False(t, results[1].Valid)
}

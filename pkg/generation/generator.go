package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/llm"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

const systemPrompt = `You are a CLI tool documentation expert who generates realistic usage examples.

Your task is to create diverse, practical examples that demonstrate various use cases for command-line tools.

Guidelines:
- Generate valid commands with proper parameter syntax
- Cover common use cases, edge cases, and real-world scenarios
- Include meaningful explanations that help users understand each example
- Use realistic parameter values (not placeholders like "value1", "example")
- Ensure examples are syntactically correct and would execute successfully

Output your examples as a JSON array with "command" and "explanation" fields.`

// Config configures the example generator, matching example_generator.rs's
// GeneratorConfig defaults (5 examples per tool, validation on, 2 retries,
// 30s timeout, temperature 0.7, 2048 max tokens).
type Config struct {
	ExamplesPerTool  int
	ValidateExamples bool
	MaxRetries       int
	Timeout          time.Duration
	Temperature      float64
	MaxTokens        int
}

// DefaultConfig matches the original's Default impl.
func DefaultConfig() Config {
	return Config{
		ExamplesPerTool:  5,
		ValidateExamples: true,
		MaxRetries:       2,
		Timeout:          30 * time.Second,
		Temperature:      0.7,
		MaxTokens:        2048,
	}
}

// ExistingExample is prior documentation for a tool, used to steer the
// generator away from duplicating what already exists.
type ExistingExample struct {
	Code string
}

// Tool is the input shape the generator needs: name, description,
// parameters, and up to a few existing examples for diversity.
type Tool struct {
	Definition skill.ToolDefinition
	Examples   []ExistingExample
}

// Generator synthesizes CLI usage examples for a tool via an LLM adapter
// and validates them, grounded directly on
// example_generator.rs's ExampleGenerator.
type Generator struct {
	provider  llm.Provider
	model     string
	validator *Validator
	cfg       Config
}

// NewGenerator builds a Generator against an existing llm.Provider —
// reusing the teacher's own multi-backend LLM abstraction rather than
// introducing a second one for this component.
func NewGenerator(provider llm.Provider, model string, cfg Config) *Generator {
	return &Generator{provider: provider, model: model, validator: NewValidator(), cfg: cfg}
}

// Generate runs example synthesis for one tool and collects every
// accepted example (non-streaming), matching ExampleGenerator::generate.
func (g *Generator) Generate(ctx context.Context, tool Tool) ([]GeneratedExample, error) {
	var results []GeneratedExample
	for ev := range g.GenerateStream(ctx, tool, 1, 1) {
		if ev.Kind == EventExample && ev.Example != nil {
			results = append(results, *ev.Example)
		}
	}
	return results, nil
}

// GenerateBatch runs Generate across multiple tools, matching
// ExampleGenerator::generate_batch.
func (g *Generator) GenerateBatch(ctx context.Context, tools []Tool) (map[string][]GeneratedExample, error) {
	out := make(map[string][]GeneratedExample, len(tools))
	for _, tool := range tools {
		examples, err := g.Generate(ctx, tool)
		if err != nil {
			return nil, err
		}
		out[tool.Definition.Name] = examples
	}
	return out, nil
}

// GenerateStream runs generation for one tool and streams typed events on
// the returned channel, which is closed when generation finishes.
// Grounded directly on example_generator.rs's generate_stream.
func (g *Generator) GenerateStream(ctx context.Context, tool Tool, currentIndex, totalTools int) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		if g.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
		}

		start := time.Now()
		name := tool.Definition.Name

		events <- eventStarted(name, currentIndex, totalTools)
		events <- eventThinking(name, fmt.Sprintf("Building prompt for %d parameters...", len(tool.Definition.Parameters)))

		prompt := g.buildPrompt(tool)
		if before := llm.EstimateTokens(prompt); g.cfg.MaxTokens > 0 && before > g.cfg.MaxTokens {
			prompt = llm.TruncateToTokens(prompt, g.cfg.MaxTokens)
			events <- eventThinking(name, fmt.Sprintf("prompt truncated from ~%d to ~%d tokens to fit budget", before, llm.EstimateTokens(prompt)))
		}
		req := &llm.CompletionRequest{
			Model:       g.model,
			System:      systemPrompt,
			Messages:    []llm.Message{llm.UserMessage(prompt)},
			Temperature: g.cfg.Temperature,
			MaxTokens:   g.cfg.MaxTokens,
		}

		events <- eventThinking(name, "Generating examples with LLM...")

		var examples []GeneratedExample
		attempts := 0
		for {
			attempts++
			resp, err := g.provider.Complete(ctx, req)
			if err != nil {
				if attempts > g.cfg.MaxRetries {
					events <- eventError(name, fmt.Sprintf("LLM generation failed after %d attempts: %v", attempts, err), false)
					return
				}
				events <- eventThinking(name, fmt.Sprintf("Retrying (%d/%d): %v", attempts, g.cfg.MaxRetries, err))
				continue
			}

			events <- eventThinking(name, "Parsing LLM response...")
			parsed, perr := g.parseExamples(resp.Content)
			if perr != nil {
				if attempts > g.cfg.MaxRetries {
					events <- eventError(name, fmt.Sprintf("Failed to parse response after %d attempts: %v", attempts, perr), false)
					return
				}
				events <- eventThinking(name, fmt.Sprintf("Retrying (%d/%d): %v", attempts, g.cfg.MaxRetries, perr))
				continue
			}
			examples = parsed
			break
		}

		total := len(examples)
		validCount := 0

		for idx, example := range examples {
			if g.cfg.ValidateExamples {
				result := g.validator.ValidateExample(example, tool.Definition)
				events <- eventValidation(name, idx, result.Valid, result.Errors)
				if result.Valid {
					example.Validated = true
					example.Confidence = result.Confidence
					validCount++
					events <- eventExample(name, example)
				}
			} else {
				events <- eventExample(name, example)
				validCount++
			}
			events <- eventProgress(name, idx+1, total)
		}

		events <- eventToolCompleted(name, total, validCount, time.Since(start))
	}()

	return events
}

func (g *Generator) buildPrompt(tool Tool) string {
	return fmt.Sprintf(`Generate %d realistic CLI usage examples for the following tool:

## Tool Information
- **Name**: %s
- **Description**: %s

## Parameters
%s

%s
## Requirements
1. Each example must use valid parameter values
2. Cover diverse use cases (common operations, edge cases, real-world scenarios)
3. Include a brief explanation for each example
4. Use the format: `+"`skill run %s [options]`"+`

## Output Format
Return a JSON array with exactly %d examples:
`+"```json"+`
[
  {"command": "skill run %s --param=value", "explanation": "Brief description of what this does"},
  ...
]
`+"```"+`

Generate %d diverse, realistic examples now:`,
		g.cfg.ExamplesPerTool, tool.Definition.Name, tool.Definition.Description,
		g.formatParameters(tool), g.formatExistingExamples(tool),
		tool.Definition.Name, g.cfg.ExamplesPerTool, tool.Definition.Name, g.cfg.ExamplesPerTool)
}

func (g *Generator) formatParameters(tool Tool) string {
	if len(tool.Definition.Parameters) == 0 {
		return "No parameters defined."
	}
	var lines []string
	for _, p := range tool.Definition.Parameters {
		required := ""
		if p.Required {
			required = " (required)"
		}
		def := ""
		if p.DefaultValue != nil {
			def = fmt.Sprintf(" [default: %s]", *p.DefaultValue)
		}
		allowed := ""
		if len(p.AllowedValues) > 0 {
			allowed = fmt.Sprintf(" [values: %s]", strings.Join(p.AllowedValues, ", "))
		}
		lines = append(lines, fmt.Sprintf("- `--%s` (%s)%s%s%s: %s", p.Name, p.Type, required, def, allowed, p.Description))
	}
	return strings.Join(lines, "\n")
}

func (g *Generator) formatExistingExamples(tool Tool) string {
	if len(tool.Examples) == 0 {
		return ""
	}
	limit := len(tool.Examples)
	if limit > 3 {
		limit = 3
	}
	var lines []string
	for _, e := range tool.Examples[:limit] {
		firstLine := e.Code
		if idx := strings.IndexByte(e.Code, '\n'); idx >= 0 {
			firstLine = e.Code[:idx]
		}
		lines = append(lines, "- `"+firstLine+"`")
	}
	return "\n## Existing Examples (do not duplicate)\n" + strings.Join(lines, "\n") + "\n"
}

type parsedExample struct {
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
}

func (g *Generator) parseExamples(response string) ([]GeneratedExample, error) {
	jsonStr, err := extractJSONArray(response)
	if err != nil {
		return nil, err
	}

	var raw []parsedExample
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		n := len(jsonStr)
		if n > 100 {
			n = 100
		}
		return nil, apperr.Wrapf(err, apperr.InvocationError, "failed to parse JSON: %s", jsonStr[:n])
	}

	examples := make([]GeneratedExample, 0, len(raw))
	for _, r := range raw {
		if r.Command == "" || r.Explanation == "" {
			continue
		}
		examples = append(examples, NewGeneratedExample(r.Command, r.Explanation))
	}

	if len(examples) == 0 {
		return nil, apperr.New(apperr.InvocationError, "no valid examples found in response")
	}
	return examples, nil
}

// extractJSONArray finds a JSON array in an LLM response, either
// free-standing or inside a fenced code block, grounded directly on
// example_generator.rs's extract_json_array.
func extractJSONArray(response string) (string, error) {
	if start := strings.IndexByte(response, '['); start >= 0 {
		if end := strings.LastIndexByte(response, ']'); end > start {
			return response[start : end+1], nil
		}
	}

	if start := strings.Index(response, "```json"); start >= 0 {
		afterMarker := response[start+7:]
		if end := strings.Index(afterMarker, "```"); end >= 0 {
			content := afterMarker[:end]
			if s := strings.IndexByte(content, '['); s >= 0 {
				if e := strings.LastIndexByte(content, ']'); e >= 0 {
					return content[s : e+1], nil
				}
			}
		}
	}

	if start := strings.Index(response, "```"); start >= 0 {
		afterMarker := response[start+3:]
		contentStart := strings.IndexByte(afterMarker, '\n') + 1
		afterNewline := afterMarker[contentStart:]
		if end := strings.Index(afterNewline, "```"); end >= 0 {
			content := afterNewline[:end]
			if s := strings.IndexByte(content, '['); s >= 0 {
				if e := strings.LastIndexByte(content, ']'); e >= 0 {
					return content[s : e+1], nil
				}
			}
		}
	}

	return "", apperr.New(apperr.InvocationError, "could not find JSON array in response")
}

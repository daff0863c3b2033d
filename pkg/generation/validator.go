package generation

import (
	"strconv"
	"strings"

	"github.com/kubiyabot/skillrt/pkg/skill"
)

// ValidationResult is the outcome of validating one example against a
// tool's parameter schema, mirroring validator.rs's ValidationResult.
type ValidationResult struct {
	Valid      bool
	Errors     []string
	Warnings   []string
	Confidence float32
}

func validResult(confidence float32) ValidationResult {
	return ValidationResult{Valid: true, Confidence: confidence}
}

func invalidResult(errors []string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errors}
}

// ParsedCommand is the tokenized form of a generated CLI command.
type ParsedCommand struct {
	Skill      string
	Tool       string
	Positional []string
	Parameters map[string]string
	Flags      []string
}

// HasParam reports whether name was supplied either as a parameter or a
// bare flag.
func (p ParsedCommand) HasParam(name string) bool {
	if _, ok := p.Parameters[name]; ok {
		return true
	}
	for _, f := range p.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// GetParam returns the value of a named parameter, or "" if absent.
func (p ParsedCommand) GetParam(name string) (string, bool) {
	v, ok := p.Parameters[name]
	return v, ok
}

// Validator checks generated examples against a tool's schema and scores
// their diversity, grounded directly on validator.rs's ExampleValidator.
type Validator struct {
	DiversityThreshold float32
	Strict             bool
}

// NewValidator matches ExampleValidator::new's defaults.
func NewValidator() *Validator {
	return &Validator{DiversityThreshold: 0.7}
}

// NewStrictValidator matches ExampleValidator::strict.
func NewStrictValidator() *Validator {
	return &Validator{DiversityThreshold: 0.8, Strict: true}
}

// ValidateExample checks one example's command against tool's parameter
// schema and explanation non-emptiness.
func (v *Validator) ValidateExample(example GeneratedExample, tool skill.ToolDefinition) ValidationResult {
	parsed, err := v.ParseCommand(example.Command)
	if err != nil {
		return invalidResult([]string{"failed to parse command: " + err.Error()})
	}

	var errs, warnings []string

	if parsed.Tool != "" {
		expected := tool.Name
		lowerTool := strings.ToLower(parsed.Tool)
		lowerExpected := strings.ToLower(expected)
		if lowerTool != lowerExpected && !strings.Contains(lowerTool, lowerExpected) && !strings.Contains(lowerExpected, lowerTool) {
			warnings = append(warnings, "tool name mismatch: expected '"+expected+"', got '"+parsed.Tool+"'")
		}
	}

	for _, param := range tool.Parameters {
		if !param.Required {
			continue
		}
		if parsed.HasParam(param.Name) {
			continue
		}
		hasAlias := false
		if len(param.Name) > 0 {
			short := string(param.Name[0])
			for _, f := range parsed.Flags {
				if f == short {
					hasAlias = true
					break
				}
			}
		}
		if !hasAlias {
			errs = append(errs, "Missing required parameter: "+param.Name)
		}
	}

	for name, value := range parsed.Parameters {
		for _, param := range tool.Parameters {
			if param.Name != name {
				continue
			}
			if err := validateParamType(value, param.Type); err != nil {
				warnings = append(warnings, "parameter '"+name+"': "+err.Error())
			}
			break
		}
	}

	for name := range parsed.Parameters {
		known := false
		for _, param := range tool.Parameters {
			if param.Name == name {
				known = true
				break
			}
		}
		if !known {
			warnings = append(warnings, "unknown parameter: "+name)
		}
	}

	if strings.TrimSpace(example.Explanation) == "" {
		errs = append(errs, "example explanation is empty")
	}

	valid := len(errs) == 0 && (!v.Strict || len(warnings) == 0)

	var confidence float32
	if valid {
		penalty := 0.1 * float32(len(warnings))
		confidence = example.Confidence - penalty
		if confidence < 0.1 {
			confidence = 0.1
		}
	}

	return ValidationResult{Valid: valid, Errors: errs, Warnings: warnings, Confidence: confidence}
}

// ValidateBatch validates every example against tool and returns one
// result per example, in order.
func (v *Validator) ValidateBatch(examples []GeneratedExample, tool skill.ToolDefinition) []ValidationResult {
	results := make([]ValidationResult, len(examples))
	for i, e := range examples {
		results[i] = v.ValidateExample(e, tool)
	}
	return results
}

// CalculateDiversity scores a set of examples from 0.0 (all identical) to
// 1.0 (completely diverse) via mean pairwise Jaccard dissimilarity of
// whitespace-tokenized commands.
func (v *Validator) CalculateDiversity(examples []GeneratedExample) float32 {
	if len(examples) < 2 {
		return 1.0
	}

	var totalSimilarity float32
	var pairs int
	for i := 0; i < len(examples); i++ {
		for j := i + 1; j < len(examples); j++ {
			totalSimilarity += commandSimilarity(examples[i].Command, examples[j].Command)
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	return 1.0 - (totalSimilarity / float32(pairs))
}

// CheckDiversity reports whether a batch's diversity meets the configured
// threshold.
func (v *Validator) CheckDiversity(examples []GeneratedExample) bool {
	return v.CalculateDiversity(examples) >= v.DiversityThreshold
}

func commandSimilarity(cmd1, cmd2 string) float32 {
	tokens1 := tokenSet(cmd1)
	tokens2 := tokenSet(cmd2)

	intersection := 0
	for t := range tokens1 {
		if _, ok := tokens2[t]; ok {
			intersection++
		}
	}
	union := len(tokens1)
	for t := range tokens2 {
		if _, ok := tokens1[t]; !ok {
			union++
		}
	}
	if union == 0 {
		return 1.0
	}
	return float32(intersection) / float32(union)
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// ParseCommand tokenizes a generated command into skill/tool identifiers,
// positional args, named parameters, and bare flags, grounded directly on
// validator.rs's parse_command.
func (v *Validator) ParseCommand(command string) (ParsedCommand, error) {
	parsed := ParsedCommand{Parameters: map[string]string{}}
	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return parsed, errEmptyCommand
	}

	i := 0
	if tokens[i] == "skill" {
		i++
		if i < len(tokens) && tokens[i] == "run" {
			i++
		}
	}

	if i < len(tokens) {
		toolPart := tokens[i]
		if strings.Contains(toolPart, ":") {
			parts := strings.SplitN(toolPart, ":", 2)
			parsed.Skill = parts[0]
			if len(parts) > 1 {
				parsed.Tool = parts[1]
			}
		} else if !strings.HasPrefix(toolPart, "-") {
			parsed.Tool = toolPart
		}
		i++
	}

	for i < len(tokens) {
		token := tokens[i]

		switch {
		case strings.HasPrefix(token, "--"):
			param := token[2:]
			if name, value, ok := strings.Cut(param, "="); ok {
				parsed.Parameters[name] = value
			} else if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				parsed.Parameters[param] = tokens[i+1]
				i++
			} else {
				parsed.Flags = append(parsed.Flags, param)
			}
		case strings.HasPrefix(token, "-") && len(token) == 2:
			flag := token[1:]
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				parsed.Parameters[flag] = tokens[i+1]
				i++
			} else {
				parsed.Flags = append(parsed.Flags, flag)
			}
		case strings.Contains(token, "="):
			if name, value, ok := strings.Cut(token, "="); ok {
				parsed.Parameters[name] = value
			}
		default:
			parsed.Positional = append(parsed.Positional, token)
		}
		i++
	}

	return parsed, nil
}

var errEmptyCommand = errParseError("empty command")

type errParseError string

func (e errParseError) Error() string { return string(e) }

func validateParamType(value string, paramType skill.ParamType) error {
	switch paramType {
	case skill.ParamString, skill.ParamArray, skill.ParamJSON, skill.ParamFile:
		return nil
	case skill.ParamNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return errParseError("expected number, got '" + value + "'")
		}
		return nil
	case skill.ParamBoolean:
		switch strings.ToLower(value) {
		case "true", "false", "yes", "no", "1", "0":
			return nil
		default:
			return errParseError("expected boolean, got '" + value + "'")
		}
	default:
		return nil
	}
}

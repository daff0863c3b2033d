package skill

import (
	"encoding/json"
	"fmt"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

// Four string-in/string-out exports every component must provide.
const (
	ExportGetMetadata    = "get-metadata"
	ExportGetTools       = "get-tools"
	ExportExecuteTool    = "execute-tool"
	ExportValidateConfig = "validate-config"
)

// RequiredExports lists the exports validate_component checks for.
var RequiredExports = []string{
	ExportGetMetadata,
	ExportGetTools,
	ExportExecuteTool,
	ExportValidateConfig,
}

const invocationErrorPrefixBytes = 256

// ParseMetadata parses the JSON object returned by get-metadata. Implements
// the "dynamic JSON at the skill boundary" re-architecture guidance: parse on
// entry, propagate InvocationError rather than reflecting opaque JSON deeper.
func ParseMetadata(raw string) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Metadata{}, apperr.Wrap(apperr.InvocationError, fmt.Sprintf("malformed get-metadata response: %s", bytePrefix(raw, invocationErrorPrefixBytes)), err)
	}
	if m.Name == "" {
		return Metadata{}, apperr.New(apperr.InvocationError, "get-metadata response missing required field: name")
	}
	return m, nil
}

// ParseTools parses the JSON array returned by get-tools.
func ParseTools(raw string) ([]ToolDefinition, error) {
	var tools []ToolDefinition
	if err := json.Unmarshal([]byte(raw), &tools); err != nil {
		return nil, apperr.Wrap(apperr.InvocationError, fmt.Sprintf("malformed get-tools response: %s", bytePrefix(raw, invocationErrorPrefixBytes)), err)
	}
	return tools, nil
}

// execResultEnvelope mirrors the discriminated union
// {ok: {success, output, errorMessage?}} | {err: string}.
type execResultEnvelope struct {
	Ok  *ExecutionResult `json:"ok,omitempty"`
	Err *string          `json:"err,omitempty"`
}

// ParseExecutionResult decodes the discriminated union returned by execute-tool.
func ParseExecutionResult(raw string) (*ExecutionResult, error) {
	var env execResultEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, apperr.Wrap(apperr.InvocationError, fmt.Sprintf("malformed execute-tool response: %s", bytePrefix(raw, invocationErrorPrefixBytes)), err)
	}
	if env.Err != nil {
		// A skill's own err is reported as success=false with the message intact,
		// not as an InvocationError -- the skill behaved correctly.
		return &ExecutionResult{Success: false, ErrorMessage: *env.Err}, nil
	}
	if env.Ok == nil {
		return nil, apperr.New(apperr.InvocationError, "execute-tool response has neither ok nor err")
	}
	return env.Ok, nil
}

// validateConfigEnvelope mirrors {ok} | {err: string}.
type validateConfigEnvelope struct {
	Ok  *struct{} `json:"ok,omitempty"`
	Err *string   `json:"err,omitempty"`
}

// ParseValidateConfigResult decodes the discriminated union returned by validate-config.
func ParseValidateConfigResult(raw string) error {
	var env validateConfigEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return apperr.Wrap(apperr.InvocationError, fmt.Sprintf("malformed validate-config response: %s", bytePrefix(raw, invocationErrorPrefixBytes)), err)
	}
	if env.Err != nil {
		return apperr.New(apperr.InvalidInput, *env.Err)
	}
	return nil
}

// EncodeArgs encodes execute_tool's ordered (k,v) args as a JSON object of
// string values, per the wire contract.
func EncodeArgs(args []KV) (string, error) {
	obj := make(map[string]string, len(args))
	for _, kv := range args {
		obj[kv.Key] = kv.Value
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidInput, "encode tool arguments", err)
	}
	return string(b), nil
}

// KV is an ordered key-value pair, preserving caller-supplied argument order
// even though the wire encoding is an unordered JSON object.
type KV struct {
	Key   string
	Value string
}

func bytePrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// Package generation implements the Generation Pipeline (spec section
// 4.7): synthesizing realistic CLI usage examples for a tool from its
// parameter schema via an LLM, validating them against that schema, and
// streaming progress to external callers.
//
// Grounded on
// original_source/crates/skill-runtime/src/generation/example_generator.rs
// and .../generation/validator.rs.
package generation

import "time"

// GeneratedExample is one synthesized usage example for a tool.
type GeneratedExample struct {
	Command     string
	Explanation string
	Confidence  float32
	Validated   bool
	Category    string
}

// NewGeneratedExample builds an unvalidated example with default
// confidence, matching the original's GeneratedExample::new.
func NewGeneratedExample(command, explanation string) GeneratedExample {
	return GeneratedExample{Command: command, Explanation: explanation, Confidence: 0.8}
}

// EventKind discriminates the typed progress event stream spec 4.7
// requires: {started, thinking, validation, example, progress,
// tool_completed, error}.
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventThinking      EventKind = "thinking"
	EventValidation    EventKind = "validation"
	EventExample       EventKind = "example"
	EventProgress      EventKind = "progress"
	EventToolCompleted EventKind = "tool_completed"
	EventError         EventKind = "error"
)

// Event is one item in the generation stream. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind EventKind

	ToolName    string
	CurrentIdx  int
	TotalTools  int
	Message     string
	Example     *GeneratedExample
	ExampleIdx  int
	Valid       bool
	Errors      []string
	Processed   int
	Total       int
	ValidCount  int
	Duration    time.Duration
	Retryable   bool
}

func eventStarted(toolName string, currentIdx, totalTools int) Event {
	return Event{Kind: EventStarted, ToolName: toolName, CurrentIdx: currentIdx, TotalTools: totalTools}
}

func eventThinking(toolName, message string) Event {
	return Event{Kind: EventThinking, ToolName: toolName, Message: message}
}

func eventValidation(toolName string, idx int, valid bool, errors []string) Event {
	return Event{Kind: EventValidation, ToolName: toolName, ExampleIdx: idx, Valid: valid, Errors: errors}
}

func eventExample(toolName string, example GeneratedExample) Event {
	return Event{Kind: EventExample, ToolName: toolName, Example: &example}
}

func eventProgress(toolName string, processed, total int) Event {
	return Event{Kind: EventProgress, ToolName: toolName, Processed: processed, Total: total}
}

func eventToolCompleted(toolName string, total, valid int, duration time.Duration) Event {
	return Event{Kind: EventToolCompleted, ToolName: toolName, Total: total, ValidCount: valid, Duration: duration}
}

func eventError(toolName, message string, retryable bool) Event {
	return Event{Kind: EventError, ToolName: toolName, Message: message, Retryable: retryable}
}

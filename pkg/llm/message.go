package llm

import "strings"

// EstimateTokens provides a rough token estimate for text.
// This is approximately 4 characters per token for English text.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// TruncateToTokens truncates text to approximately the given token limit.
func TruncateToTokens(text string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	// Try to truncate at word boundary
	truncated := text[:maxChars]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxChars*3/4 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}

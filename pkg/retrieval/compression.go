package retrieval

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

// CompressionStrategy selects how much detail a compressed tool context
// retains, grounded on original_source/search/context.rs.
type CompressionStrategy string

const (
	StrategyExtractive CompressionStrategy = "extractive"
	StrategyTemplate   CompressionStrategy = "template"
	StrategyProgressive CompressionStrategy = "progressive"
	StrategyNone       CompressionStrategy = "none"
)

// ParseCompressionStrategy accepts the original's accepted aliases.
func ParseCompressionStrategy(s string) (CompressionStrategy, error) {
	switch strings.ToLower(s) {
	case "extractive":
		return StrategyExtractive, nil
	case "template", "template-based", "templatebased":
		return StrategyTemplate, nil
	case "progressive":
		return StrategyProgressive, nil
	case "none", "full":
		return StrategyNone, nil
	default:
		return "", apperr.Newf(apperr.InvalidInput, "unknown compression strategy %q (options: extractive, template, progressive, none)", s)
	}
}

// CompressionConfig configures the compressor. Defaults match spec 4.3:
// 200 tokens/tool, 800 tokens total, template-based strategy.
type CompressionConfig struct {
	MaxTokensPerTool int
	MaxTotalTokens   int
	IncludeExamples  bool
	IncludeFullParams bool
	Strategy         CompressionStrategy
}

func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{MaxTokensPerTool: 200, MaxTotalTokens: 800, Strategy: StrategyTemplate}
}

// ToolParameterInput is the uncompressed parameter documentation fed into
// compression.
type ToolParameterInput struct {
	Name        string
	ParamType   string
	Required    bool
	Description string
}

// ToolDocument is one retrieved tool awaiting compression.
type ToolDocument struct {
	ToolID         string
	Name           string
	Description    string
	Parameters     []ToolParameterInput
	Example        string
	RelevanceScore float32
}

// CompressedParameter is a (possibly truncated) parameter description.
type CompressedParameter struct {
	Name        string
	ParamType   string
	Required    bool
	Description string
}

// CompressedToolContext is one tool's token-budgeted representation.
type CompressedToolContext struct {
	ToolID         string
	Summary        string
	ExecutionHint  string
	Parameters     []CompressedParameter
	RelevanceScore float32
	Rank           int
	TokenCount     int
}

// CompressionResult is the output of Compressor.Compress.
type CompressionResult struct {
	Tools            []CompressedToolContext
	TotalTokens      int
	OriginalTokens   int
	CompressionRatio float32
}

// Compressor reduces tool documentation to token-efficient contexts.
type Compressor struct {
	cfg      CompressionConfig
	tokenizer *tiktoken.Tiktoken
}

// NewCompressor builds a Compressor using the cl100k_base encoding (the
// same encoding the original implementation's tiktoken-rs binding uses).
func NewCompressor(cfg CompressionConfig) (*Compressor, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, apperr.Wrap(apperr.InvocationError, "load tokenizer encoding", err)
	}
	return &Compressor{cfg: cfg, tokenizer: enc}, nil
}

func (c *Compressor) countTokens(text string) int {
	return len(c.tokenizer.Encode(text, nil, nil))
}

// Compress applies the configured strategy to each tool in rank order
// (callers must pass tools already sorted by relevance), stopping as soon
// as the running total would exceed MaxTotalTokens.
func (c *Compressor) Compress(tools []ToolDocument) CompressionResult {
	originalTokens := 0
	for _, t := range tools {
		originalTokens += c.countFullToolTokens(t)
	}

	var compressedTools []CompressedToolContext
	totalTokens := 0

	for i, tool := range tools {
		rank := i + 1
		var compressed CompressedToolContext
		switch c.cfg.Strategy {
		case StrategyExtractive:
			compressed = c.compressExtractive(tool, rank)
		case StrategyProgressive:
			compressed = c.compressProgressive(tool, rank)
		case StrategyNone:
			compressed = c.noCompression(tool, rank)
		case StrategyTemplate, "":
			compressed = c.compressTemplate(tool, rank)
		default:
			compressed = c.compressTemplate(tool, rank)
		}

		if totalTokens+compressed.TokenCount > c.cfg.MaxTotalTokens {
			break
		}
		totalTokens += compressed.TokenCount
		compressedTools = append(compressedTools, compressed)
	}

	ratio := float32(1.0)
	if originalTokens > 0 {
		ratio = float32(totalTokens) / float32(originalTokens)
	}

	return CompressionResult{
		Tools:            compressedTools,
		TotalTokens:      totalTokens,
		OriginalTokens:   originalTokens,
		CompressionRatio: ratio,
	}
}

func (c *Compressor) countFullToolTokens(t ToolDocument) int {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", t.ToolID, t.Description)
	for _, p := range t.Parameters {
		fmt.Fprintf(&b, "%s: %s - %s\n", p.Name, p.ParamType, p.Description)
	}
	if t.Example != "" {
		fmt.Fprintf(&b, "Example: %s\n", t.Example)
	}
	return c.countTokens(b.String())
}

func (c *Compressor) compressExtractive(t ToolDocument, rank int) CompressedToolContext {
	ctx := CompressedToolContext{
		ToolID:         t.ToolID,
		Summary:        extractFirstSentence(t.Description),
		Parameters:     compressParameters(t.Parameters, false),
		RelevanceScore: t.RelevanceScore,
		Rank:           rank,
	}
	return c.finalize(ctx)
}

func (c *Compressor) compressTemplate(t ToolDocument, rank int) CompressedToolContext {
	var required []string
	for _, p := range t.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	hint := "Call with no required parameters"
	if len(required) > 0 {
		hint = "Call with: " + strings.Join(required, ", ")
	}

	ctx := CompressedToolContext{
		ToolID:         t.ToolID,
		Summary:        extractFirstSentence(t.Description),
		ExecutionHint:  hint,
		Parameters:     compressParameters(t.Parameters, c.cfg.IncludeFullParams),
		RelevanceScore: t.RelevanceScore,
		Rank:           rank,
	}
	return c.finalize(ctx)
}

func (c *Compressor) compressProgressive(t ToolDocument, rank int) CompressedToolContext {
	switch rank {
	case 1:
		ctx := CompressedToolContext{
			ToolID:         t.ToolID,
			Summary:        extractFirstTwoSentences(t.Description),
			Parameters:     compressParameters(t.Parameters, true),
			RelevanceScore: t.RelevanceScore,
			Rank:           rank,
		}
		if t.Example != "" {
			ctx.ExecutionHint = extractCallPattern(t.Example)
		}
		return c.finalize(ctx)
	case 2, 3:
		ctx := CompressedToolContext{
			ToolID:         t.ToolID,
			Summary:        extractFirstSentence(t.Description),
			Parameters:     compressRequiredOnly(t.Parameters),
			RelevanceScore: t.RelevanceScore,
			Rank:           rank,
		}
		return c.finalize(ctx)
	default:
		summary := extractFirstSentence(t.Description)
		if len(summary) > 80 {
			summary = summary[:77] + "..."
		}
		ctx := CompressedToolContext{
			ToolID:         t.ToolID,
			Summary:        summary,
			RelevanceScore: t.RelevanceScore,
			Rank:           rank,
		}
		return c.finalize(ctx)
	}
}

func (c *Compressor) noCompression(t ToolDocument, rank int) CompressedToolContext {
	params := make([]CompressedParameter, len(t.Parameters))
	for i, p := range t.Parameters {
		params[i] = CompressedParameter{Name: p.Name, ParamType: p.ParamType, Required: p.Required, Description: p.Description}
	}
	ctx := CompressedToolContext{
		ToolID:         t.ToolID,
		Summary:        t.Description,
		ExecutionHint:  t.Example,
		Parameters:     params,
		RelevanceScore: t.RelevanceScore,
		Rank:           rank,
	}
	return c.finalize(ctx)
}

func (c *Compressor) finalize(ctx CompressedToolContext) CompressedToolContext {
	text := contextToText(ctx)
	tokenCount := c.countTokens(text)

	if tokenCount > c.cfg.MaxTokensPerTool {
		ctx.Summary = c.truncateToTokens(ctx.Summary, 50)
		ctx.ExecutionHint = ""
		if len(ctx.Parameters) > 3 {
			ctx.Parameters = ctx.Parameters[:3]
		}
	}

	ctx.TokenCount = c.countTokens(contextToText(ctx))
	return ctx
}

func (c *Compressor) truncateToTokens(text string, maxTokens int) string {
	tokens := c.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	decoded := c.tokenizer.Decode(tokens[:maxTokens])
	if idx := strings.LastIndex(decoded, " "); idx >= 0 {
		return decoded[:idx] + "..."
	}
	return decoded + "..."
}

func contextToText(ctx CompressedToolContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", ctx.ToolID, ctx.Summary)
	if ctx.ExecutionHint != "" {
		fmt.Fprintf(&b, " [%s]", ctx.ExecutionHint)
	}
	for _, p := range ctx.Parameters {
		fmt.Fprintf(&b, " %s:%s", p.Name, p.ParamType)
	}
	return b.String()
}

func extractFirstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		sentence := strings.TrimSpace(text[:idx+1])
		if len(sentence) < 200 {
			return sentence
		}
	}
	if len(text) > 150 {
		truncated := text[:150]
		if idx := strings.LastIndex(truncated, " "); idx >= 0 {
			return truncated[:idx] + "..."
		}
	}
	return text
}

func extractFirstTwoSentences(text string) string {
	first := extractFirstSentence(text)
	remaining := strings.TrimSpace(strings.TrimPrefix(text, first))
	if remaining == "" {
		return first
	}
	second := extractFirstSentence(remaining)
	if second != "" && len(first)+len(second) < 300 {
		return first + " " + second
	}
	return first
}

func extractCallPattern(example string) string {
	start := strings.Index(example, "(")
	end := strings.Index(example, ")")
	if start >= 0 && end >= start {
		call := example[:end+1]
		nameStart := 0
		for i := start - 1; i >= 0; i-- {
			c := call[i]
			if c == ' ' || c == '\t' || c == '{' || c == ':' {
				nameStart = i + 1
				break
			}
		}
		return call[nameStart:]
	}
	if len(example) > 60 {
		return example[:57] + "..."
	}
	return example
}

func compressParameters(params []ToolParameterInput, includeFull bool) []CompressedParameter {
	out := make([]CompressedParameter, len(params))
	for i, p := range params {
		desc := p.Description
		if !includeFull {
			desc = truncateDescription(desc, 50)
		}
		out[i] = CompressedParameter{Name: p.Name, ParamType: p.ParamType, Required: p.Required, Description: desc}
	}
	return out
}

func compressRequiredOnly(params []ToolParameterInput) []CompressedParameter {
	var out []CompressedParameter
	for _, p := range params {
		if !p.Required {
			continue
		}
		out = append(out, CompressedParameter{Name: p.Name, ParamType: p.ParamType, Required: true, Description: truncateDescription(p.Description, 40)})
	}
	return out
}

func truncateDescription(desc string, maxChars int) string {
	if len(desc) <= maxChars {
		return desc
	}
	truncated := desc[:maxChars]
	if idx := strings.LastIndex(truncated, " "); idx >= 0 {
		return truncated[:idx] + "..."
	}
	return truncated + "..."
}

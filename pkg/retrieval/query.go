// Package retrieval implements the Skill Retrieval Pipeline (spec section
// 4.3): query understanding, hybrid dense/sparse search, result fusion,
// optional reranking, and token-budgeted compression.
package retrieval

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose behind a query.
type Intent string

const (
	IntentToolDiscovery    Intent = "tool_discovery"
	IntentToolExecution    Intent = "tool_execution"
	IntentToolDocumentation Intent = "tool_documentation"
	IntentComparison       Intent = "comparison"
	IntentTroubleshooting  Intent = "troubleshooting"
	IntentGeneral          Intent = "general"
)

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntitySkillName  EntityType = "skill_name"
	EntityToolName   EntityType = "tool_name"
	EntityActionVerb EntityType = "action_verb"
	EntityCategory   EntityType = "category"
)

// Entity is a span of the query recognized as meaningful.
type Entity struct {
	Text       string
	Type       EntityType
	Confidence float32
	Position   int
}

// ExpansionType classifies how a term was expanded.
type ExpansionType string

const (
	ExpansionSynonym ExpansionType = "synonym"
	ExpansionAcronym ExpansionType = "acronym"
)

// Expansion records one term's expanded alternatives.
type Expansion struct {
	Original string
	Expanded []string
	Type     ExpansionType
}

// SuggestedFilter is a candidate vectorstore.Filter predicate inferred from
// extracted entities.
type SuggestedFilter struct {
	Field      string
	Value      string
	Confidence float32
}

// ProcessedQuery is the output of Processor.Process.
type ProcessedQuery struct {
	Original         string
	Normalized       string
	Intent           Intent
	IntentConfidence float32
	Entities         []Entity
	Expansions       []Expansion
	SuggestedFilters []SuggestedFilter
}

// Processor classifies intent, extracts entities, and expands terms using a
// fixed lexicon plus caller-supplied known skill/tool names.
type Processor struct {
	knownSkills map[string]struct{}
	knownTools  map[string]struct{}
}

// NewProcessor builds a Processor seeded with the known skill and tool names
// currently indexed, used for entity recognition.
func NewProcessor(knownSkills, knownTools []string) *Processor {
	p := &Processor{
		knownSkills: make(map[string]struct{}, len(knownSkills)),
		knownTools:  make(map[string]struct{}, len(knownTools)),
	}
	for _, s := range knownSkills {
		p.knownSkills[strings.ToLower(s)] = struct{}{}
	}
	for _, t := range knownTools {
		p.knownTools[strings.ToLower(t)] = struct{}{}
	}
	return p
}

var acronymPattern = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(acronyms))
	for a := range acronyms {
		m[a] = regexp.MustCompile(`\b` + regexp.QuoteMeta(a) + `\b`)
	}
	return m
}()

// Process runs the full query understanding pipeline over query.
func (p *Processor) Process(query string) ProcessedQuery {
	normalized := p.normalize(query)
	tokens := tokenize(normalized)

	intent, confidence := classifyIntent(normalized)
	entities := p.extractEntities(tokens)
	expansions := generateExpansions(tokens)
	filters := suggestFilters(entities)

	return ProcessedQuery{
		Original:         query,
		Normalized:       normalized,
		Intent:           intent,
		IntentConfidence: confidence,
		Entities:         entities,
		Expansions:       expansions,
		SuggestedFilters: filters,
	}
}

// ExpandedTerms returns the normalized query plus every expansion and
// entity text, deduplicated, for use as additional search terms.
func (p *Processor) ExpandedTerms(q ProcessedQuery) []string {
	terms := []string{q.Normalized}
	seen := map[string]struct{}{q.Normalized: {}}

	add := func(t string) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}
	for _, exp := range q.Expansions {
		for _, t := range exp.Expanded {
			add(t)
		}
	}
	for _, e := range q.Entities {
		add(e.Text)
	}
	return terms
}

func (p *Processor) normalize(query string) string {
	normalized := strings.ToLower(query)
	for acronym, expanded := range acronyms {
		if strings.Contains(normalized, acronym) {
			normalized = acronymPattern[acronym].ReplaceAllString(normalized, expanded)
		}
	}
	return strings.Join(strings.Fields(normalized), " ")
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.TrimFunc(f, isASCIIPunct)
		if trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}

func isASCIIPunct(r rune) bool {
	return strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r)
}

// classifyIntent applies the fixed priority order from the original
// implementation: execution prefix (0.9) > comparison substring (0.85) >
// troubleshooting substring (0.8) > documentation substring (0.75) >
// discovery substring (0.7) > general default (0.5).
func classifyIntent(normalized string) (Intent, float32) {
	for _, prefix := range []string{"run ", "execute ", "invoke ", "call "} {
		if strings.HasPrefix(normalized, prefix) {
			return IntentToolExecution, 0.9
		}
	}

	if strings.Contains(normalized, " vs ") ||
		strings.Contains(normalized, " versus ") ||
		strings.Contains(normalized, "compare ") ||
		strings.Contains(normalized, "difference between") {
		return IntentComparison, 0.85
	}

	for _, pattern := range []string{"why ", "error", "fail", "not working", "issue", "problem", "debug"} {
		if strings.Contains(normalized, pattern) {
			return IntentTroubleshooting, 0.8
		}
	}

	for _, pattern := range []string{"how does", "how to", "what is", "explain", "documentation", "help with"} {
		if strings.Contains(normalized, pattern) {
			return IntentToolDocumentation, 0.75
		}
	}

	for _, pattern := range []string{"what tools", "tools for", "which tool", "find tool", "available"} {
		if strings.Contains(normalized, pattern) {
			return IntentToolDiscovery, 0.7
		}
	}

	return IntentGeneral, 0.5
}

func (p *Processor) extractEntities(tokens []string) []Entity {
	var entities []Entity
	seen := make(map[string]struct{})

	for pos, token := range tokens {
		lower := strings.ToLower(token)

		if _, ok := p.knownSkills[lower]; ok {
			entities = appendEntity(entities, seen, Entity{Text: token, Type: EntitySkillName, Confidence: 0.95, Position: pos})
			continue
		}
		if _, ok := p.knownTools[lower]; ok {
			entities = appendEntity(entities, seen, Entity{Text: token, Type: EntityToolName, Confidence: 0.95, Position: pos})
			continue
		}
		if _, ok := actionVerbs[lower]; ok {
			entities = appendEntity(entities, seen, Entity{Text: token, Type: EntityActionVerb, Confidence: 0.85, Position: pos})
			continue
		}

		for category, keywords := range categories {
			matched := false
			for _, kw := range keywords {
				if strings.Contains(lower, kw) || strings.Contains(kw, lower) {
					matched = true
					break
				}
			}
			if matched {
				entities = appendEntity(entities, seen, Entity{Text: category, Type: EntityCategory, Confidence: 0.75, Position: pos})
				break
			}
		}
	}
	return entities
}

func appendEntity(entities []Entity, seen map[string]struct{}, e Entity) []Entity {
	key := e.Text + "|" + string(e.Type)
	if _, ok := seen[key]; ok {
		return entities
	}
	seen[key] = struct{}{}
	return append(entities, e)
}

func generateExpansions(tokens []string) []Expansion {
	var expansions []Expansion
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if syns, ok := synonyms[lower]; ok {
			expanded := make([]string, len(syns))
			copy(expanded, syns)
			expansions = append(expansions, Expansion{Original: token, Expanded: expanded, Type: ExpansionSynonym})
		}
	}
	return expansions
}

func suggestFilters(entities []Entity) []SuggestedFilter {
	var filters []SuggestedFilter
	for _, e := range entities {
		switch e.Type {
		case EntitySkillName:
			filters = append(filters, SuggestedFilter{Field: "skill_name", Value: e.Text, Confidence: e.Confidence})
		case EntityCategory:
			filters = append(filters, SuggestedFilter{Field: "category", Value: e.Text, Confidence: e.Confidence})
		}
	}
	return filters
}

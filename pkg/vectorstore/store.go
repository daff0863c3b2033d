// Package vectorstore implements the polymorphic Vector Store contract
// (spec section 4.4): three backends sharing one contract, similarity
// scoring per configured distance metric, and filter semantics grounded on
// the original implementation's vector_store/types.rs.
package vectorstore

import (
	"context"
	"time"

	"github.com/kubiyabot/skillrt/pkg/skill"
)

// UpsertStats is returned by Upsert.
type UpsertStats struct {
	Inserted   int
	Updated    int
	DurationMs int64
}

// Total is Inserted + Updated.
func (s UpsertStats) Total() int { return s.Inserted + s.Updated }

// DeleteStats is returned by Delete.
type DeleteStats struct {
	Deleted    int
	NotFound   int
	DurationMs int64
}

// HealthStatus is returned by HealthCheck.
type HealthStatus struct {
	Healthy        bool
	BackendName    string
	DocumentCount  *int
	Message        string
	LatencyMs      int64
}

// Filter restricts Search/Count to documents matching all set predicates.
// Semantics: skill/instance/tool/category exact match, tags all-present,
// custom all-present, optional min_score (applied by each backend's Search
// to the computed similarity scores; Count ignores it).
type Filter struct {
	SkillName    string
	InstanceName string
	ToolName     string
	Category     string
	Tags         []string
	Custom       map[string]string
	MinScore     *float32
}

// IsEmpty reports whether the filter restricts nothing.
func (f Filter) IsEmpty() bool {
	return f.SkillName == "" && f.InstanceName == "" && f.ToolName == "" &&
		f.Category == "" && len(f.Tags) == 0 && len(f.Custom) == 0 && f.MinScore == nil
}

// Matches reports whether meta satisfies every set predicate in f (MinScore
// is not checked here; Search evaluates it against the computed score).
func (f Filter) Matches(meta skill.DocumentMetadata) bool {
	if f.SkillName != "" && meta.SkillName != f.SkillName {
		return false
	}
	if f.InstanceName != "" && meta.InstanceName != f.InstanceName {
		return false
	}
	if f.ToolName != "" && meta.ToolName != f.ToolName {
		return false
	}
	if f.Category != "" && meta.Category != f.Category {
		return false
	}
	for _, tag := range f.Tags {
		if !containsString(meta.Tags, tag) {
			return false
		}
	}
	for k, v := range f.Custom {
		if meta.Custom[k] != v {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Store is the polymorphic contract shared by the in-memory, file, and
// remote vector store backends.
type Store interface {
	Upsert(ctx context.Context, docs []skill.EmbeddedDocument) (UpsertStats, error)
	Search(ctx context.Context, queryVec []float32, filter Filter, topK int) ([]skill.SearchResult, error)
	Delete(ctx context.Context, ids []string) (DeleteStats, error)
	Get(ctx context.Context, ids []string) ([]skill.EmbeddedDocument, error)
	Count(ctx context.Context, filter Filter) (int, error)
	HealthCheck(ctx context.Context) (HealthStatus, error)
}

func durationMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

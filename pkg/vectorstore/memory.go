package vectorstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// MemoryStore is a hash map behind a read-write lock with linear-scan
// search. No persistence (spec 4.4 "in-memory" variant).
type MemoryStore struct {
	mu     sync.RWMutex
	metric skill.DistanceMetric
	docs   map[string]skill.EmbeddedDocument
	dim    int // 0 until first insert
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore(metric skill.DistanceMetric) *MemoryStore {
	return &MemoryStore{
		metric: metric,
		docs:   make(map[string]skill.EmbeddedDocument),
	}
}

// Upsert inserts new or replaces existing documents by id. All embeddings in
// a store share one dimensionality, detected on first insert; an insert
// that violates this returns InvalidInput and leaves the store unchanged.
func (m *MemoryStore) Upsert(ctx context.Context, docs []skill.EmbeddedDocument) (UpsertStats, error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	dim := m.dim
	if dim == 0 && len(docs) > 0 {
		dim = len(docs[0].Vector)
	}
	for _, d := range docs {
		if len(d.Vector) != dim {
			return UpsertStats{}, apperr.Newf(apperr.InvalidInput, "embedding dimension mismatch: store is %d, got %d for id %q", dim, len(d.Vector), d.ID)
		}
	}

	stats := UpsertStats{}
	for _, d := range docs {
		if _, exists := m.docs[d.ID]; exists {
			stats.Updated++
		} else {
			stats.Inserted++
		}
		m.docs[d.ID] = d
	}
	m.dim = dim
	stats.DurationMs = durationMs(start)
	return stats, nil
}

// Search returns the top_k documents matching filter ordered by similarity
// score descending, ties broken by id ascending.
func (m *MemoryStore) Search(ctx context.Context, queryVec []float32, filter Filter, topK int) ([]skill.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 {
		return nil, nil
	}

	type scored struct {
		res skill.SearchResult
	}
	var candidates []scored

	for _, d := range m.docs {
		if !filter.Matches(d.Metadata) {
			continue
		}
		score, err := Similarity(m.metric, queryVec, d.Vector)
		if err != nil {
			return nil, err
		}
		if filter.MinScore != nil && score < *filter.MinScore {
			continue
		}
		candidates = append(candidates, scored{res: skill.SearchResult{
			ID:       d.ID,
			Score:    score,
			Metadata: d.Metadata,
			Content:  d.Content,
		}})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].res.Score != candidates[j].res.Score {
			return candidates[i].res.Score > candidates[j].res.Score
		}
		return candidates[i].res.ID < candidates[j].res.ID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]skill.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.res
	}
	return results, nil
}

// Delete removes documents by id.
func (m *MemoryStore) Delete(ctx context.Context, ids []string) (DeleteStats, error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := DeleteStats{}
	for _, id := range ids {
		if _, ok := m.docs[id]; ok {
			delete(m.docs, id)
			stats.Deleted++
		} else {
			stats.NotFound++
		}
	}
	stats.DurationMs = durationMs(start)
	return stats, nil
}

// Get returns existing documents; missing ids are silently omitted.
func (m *MemoryStore) Get(ctx context.Context, ids []string) ([]skill.EmbeddedDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []skill.EmbeddedDocument
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Count returns the exact count of documents honoring filter.
func (m *MemoryStore) Count(ctx context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if filter.IsEmpty() {
		return len(m.docs), nil
	}
	n := 0
	for _, d := range m.docs {
		if filter.Matches(d.Metadata) {
			n++
		}
	}
	return n, nil
}

// HealthCheck reports liveness and document count.
func (m *MemoryStore) HealthCheck(ctx context.Context) (HealthStatus, error) {
	start := time.Now()
	m.mu.RLock()
	count := len(m.docs)
	m.mu.RUnlock()

	return HealthStatus{
		Healthy:       true,
		BackendName:   "memory",
		DocumentCount: &count,
		LatencyMs:     durationMs(start),
	}, nil
}

package retrieval

import (
	"sort"

	"github.com/kubiyabot/skillrt/pkg/skill"
)

// FusionMethod selects how dense and sparse result lists are merged.
type FusionMethod string

const (
	FusionRRF         FusionMethod = "rrf"
	FusionWeightedSum FusionMethod = "weighted_sum"
	FusionMaxScore    FusionMethod = "max_score"
)

// RankedList is one retriever's ordered results for a single query.
type RankedList struct {
	Results []skill.SearchResult
}

// FusionConfig configures how multiple ranked lists combine into one.
type FusionConfig struct {
	Method       FusionMethod
	RRFK         int // default 60
	DenseWeight  float64
	SparseWeight float64
}

// DefaultFusionConfig matches the spec defaults: RRF with k=60.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{Method: FusionRRF, RRFK: 60, DenseWeight: 0.6, SparseWeight: 0.4}
}

// Fuse merges dense and sparse ranked lists into one ordered, deduplicated
// result list under cfg.Method.
func Fuse(dense, sparse RankedList, cfg FusionConfig) []skill.SearchResult {
	switch cfg.Method {
	case FusionWeightedSum:
		return fuseWeightedSum(dense, sparse, cfg)
	case FusionMaxScore:
		return fuseMaxScore(dense, sparse)
	case FusionRRF, "":
		return fuseRRF(dense, sparse, cfg)
	default:
		return fuseRRF(dense, sparse, cfg)
	}
}

func fuseRRF(dense, sparse RankedList, cfg FusionConfig) []skill.SearchResult {
	k := cfg.RRFK
	if k <= 0 {
		k = 60
	}

	scores := make(map[string]float64)
	docs := make(map[string]skill.SearchResult)

	accumulate := func(list RankedList) {
		for rank, res := range list.Results {
			scores[res.ID] += 1.0 / float64(k+rank+1)
			if _, ok := docs[res.ID]; !ok {
				docs[res.ID] = res
			}
		}
	}
	accumulate(dense)
	accumulate(sparse)

	return materialize(scores, docs)
}

func fuseWeightedSum(dense, sparse RankedList, cfg FusionConfig) []skill.SearchResult {
	scores := make(map[string]float64)
	docs := make(map[string]skill.SearchResult)

	for _, res := range dense.Results {
		scores[res.ID] += float64(res.Score) * cfg.DenseWeight
		docs[res.ID] = res
	}
	for _, res := range sparse.Results {
		scores[res.ID] += float64(res.Score) * cfg.SparseWeight
		if _, ok := docs[res.ID]; !ok {
			docs[res.ID] = res
		}
	}

	return materialize(scores, docs)
}

func fuseMaxScore(dense, sparse RankedList) []skill.SearchResult {
	scores := make(map[string]float64)
	docs := make(map[string]skill.SearchResult)

	consider := func(list RankedList) {
		for _, res := range list.Results {
			if existing, ok := scores[res.ID]; !ok || float64(res.Score) > existing {
				scores[res.ID] = float64(res.Score)
			}
			if _, ok := docs[res.ID]; !ok {
				docs[res.ID] = res
			}
		}
	}
	consider(dense)
	consider(sparse)

	return materialize(scores, docs)
}

func materialize(scores map[string]float64, docs map[string]skill.SearchResult) []skill.SearchResult {
	out := make([]skill.SearchResult, 0, len(docs))
	for id, doc := range docs {
		doc.Score = float32(scores[id])
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

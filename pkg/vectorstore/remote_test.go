package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/skill"
)

func TestRemoteStoreUpsertAndSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/skills", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/collections/skills/upsert", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(UpsertStats{Inserted: 1})
	})
	mux.HandleFunc("/collections/skills/query", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]skill.SearchResult{
			{ID: "doc-1", Score: 0.9},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewRemoteStore(srv.URL, "", "skills", 3, skill.Cosine)

	stats, err := store.Upsert(context.Background(), []skill.EmbeddedDocument{
		{ID: "doc-1", Vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	results, err := store.Search(context.Background(), []float32{1, 0, 0}, Filter{}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].ID)
}

func TestRemoteStoreSearchAppliesMinScore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/skills", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/collections/skills/query", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]skill.SearchResult{
			{ID: "low", Score: 0.1},
			{ID: "high", Score: 0.9},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	min := float32(0.5)
	store := NewRemoteStore(srv.URL, "", "skills", 3, skill.Cosine)
	results, err := store.Search(context.Background(), []float32{1, 0, 0}, Filter{MinScore: &min}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "high", results[0].ID)
}

func TestRemoteStoreSearchZeroTopK(t *testing.T) {
	store := NewRemoteStore("http://unused", "", "skills", 3, skill.Cosine)
	results, err := store.Search(context.Background(), []float32{1, 0, 0}, Filter{}, 0)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestRemoteStoreHealthCheck(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewRemoteStore(srv.URL, "", "skills", 3, skill.Cosine)
	status, err := store.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, "remote", status.BackendName)
}

func TestRemoteStoreHealthCheckUnreachable(t *testing.T) {
	store := NewRemoteStore("http://127.0.0.1:1", "", "skills", 3, skill.Cosine)
	status, err := store.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Healthy)
}

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// RemoteStore adapts the Store contract to an HTTP-speaking remote vector
// database. It maps Filter predicates to the backend's generic JSON filter
// language and creates the named collection on first use if absent, using
// the configured dimension and metric (spec 4.4). No specific vendor SDK for
// a remote vector database appears anywhere in the example pack, so this
// speaks a minimal collection/upsert/query/delete REST shape over net/http
// rather than importing a vendor client with no grounding source.
type RemoteStore struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	metric     skill.DistanceMetric
	httpClient *http.Client

	created bool
}

// NewRemoteStore constructs a RemoteStore. The target collection is created
// lazily on first Upsert/Search/Count call.
func NewRemoteStore(baseURL, apiKey, collection string, dimension int, metric skill.DistanceMetric) *RemoteStore {
	return &RemoteStore{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		dimension:  dimension,
		metric:     metric,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *RemoteStore) ensureCollection(ctx context.Context) error {
	if r.created {
		return nil
	}
	body, _ := json.Marshal(map[string]any{
		"name":      r.collection,
		"dimension": r.dimension,
		"metric":    r.metric,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.baseURL+"/collections/"+r.collection, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "build collection create request", err)
	}
	r.setHeaders(req)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.RetryableBackend, "create remote collection", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return apperr.Newf(apperr.RetryableBackend, "remote vector db returned %d creating collection", resp.StatusCode)
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return apperr.Newf(apperr.BackendUnavailable, "remote vector db rejected collection create: %d", resp.StatusCode)
	}
	r.created = true
	return nil
}

func (r *RemoteStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
}

func filterToJSON(f Filter) map[string]any {
	m := map[string]any{}
	if f.SkillName != "" {
		m["skill_name"] = f.SkillName
	}
	if f.InstanceName != "" {
		m["instance_name"] = f.InstanceName
	}
	if f.ToolName != "" {
		m["tool_name"] = f.ToolName
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if len(f.Tags) > 0 {
		m["tags_all"] = f.Tags
	}
	if len(f.Custom) > 0 {
		m["custom_all"] = f.Custom
	}
	return m
}

func (r *RemoteStore) Upsert(ctx context.Context, docs []skill.EmbeddedDocument) (UpsertStats, error) {
	if err := r.ensureCollection(ctx); err != nil {
		return UpsertStats{}, err
	}
	start := time.Now()

	body, _ := json.Marshal(map[string]any{"documents": docs})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/collections/"+r.collection+"/upsert", bytes.NewReader(body))
	if err != nil {
		return UpsertStats{}, apperr.Wrap(apperr.BackendUnavailable, "build upsert request", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return UpsertStats{}, apperr.Wrap(apperr.RetryableBackend, "remote upsert", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return UpsertStats{}, apperr.Newf(apperr.RetryableBackend, "remote vector db returned %d on upsert", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return UpsertStats{}, apperr.Newf(apperr.BackendUnavailable, "remote vector db rejected upsert: %d", resp.StatusCode)
	}

	var out UpsertStats
	_ = json.NewDecoder(resp.Body).Decode(&out)
	out.DurationMs = durationMs(start)
	return out, nil
}

func (r *RemoteStore) Search(ctx context.Context, queryVec []float32, filter Filter, topK int) ([]skill.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := r.ensureCollection(ctx); err != nil {
		return nil, err
	}

	body, _ := json.Marshal(map[string]any{
		"vector": queryVec,
		"filter": filterToJSON(filter),
		"top_k":  topK,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/collections/"+r.collection+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "build query request", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetryableBackend, "remote search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, apperr.Newf(apperr.RetryableBackend, "remote vector db returned %d on query", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Newf(apperr.BackendUnavailable, "remote vector db rejected query: %d", resp.StatusCode)
	}

	var results []skill.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, apperr.Wrap(apperr.InvocationError, "decode remote query response", err)
	}
	if filter.MinScore != nil {
		filtered := results[:0]
		for _, res := range results {
			if res.Score >= *filter.MinScore {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}
	return results, nil
}

func (r *RemoteStore) Delete(ctx context.Context, ids []string) (DeleteStats, error) {
	body, _ := json.Marshal(map[string]any{"ids": ids})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/collections/"+r.collection+"/delete", bytes.NewReader(body))
	if err != nil {
		return DeleteStats{}, apperr.Wrap(apperr.BackendUnavailable, "build delete request", err)
	}
	r.setHeaders(req)
	start := time.Now()

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return DeleteStats{}, apperr.Wrap(apperr.RetryableBackend, "remote delete", err)
	}
	defer resp.Body.Close()

	var out DeleteStats
	_ = json.NewDecoder(resp.Body).Decode(&out)
	out.DurationMs = durationMs(start)
	return out, nil
}

func (r *RemoteStore) Get(ctx context.Context, ids []string) ([]skill.EmbeddedDocument, error) {
	body, _ := json.Marshal(map[string]any{"ids": ids})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/collections/"+r.collection+"/get", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "build get request", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetryableBackend, "remote get", err)
	}
	defer resp.Body.Close()

	var docs []skill.EmbeddedDocument
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, apperr.Wrap(apperr.InvocationError, "decode remote get response", err)
	}
	return docs, nil
}

func (r *RemoteStore) Count(ctx context.Context, filter Filter) (int, error) {
	if err := r.ensureCollection(ctx); err != nil {
		return 0, err
	}
	body, _ := json.Marshal(map[string]any{"filter": filterToJSON(filter)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/collections/"+r.collection+"/count", bytes.NewReader(body))
	if err != nil {
		return 0, apperr.Wrap(apperr.BackendUnavailable, "build count request", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.RetryableBackend, "remote count", err)
	}
	defer resp.Body.Close()

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, apperr.Wrap(apperr.InvocationError, "decode remote count response", err)
	}
	return out.Count, nil
}

func (r *RemoteStore) HealthCheck(ctx context.Context) (HealthStatus, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return HealthStatus{}, apperr.Wrap(apperr.BackendUnavailable, "build health request", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return HealthStatus{Healthy: false, BackendName: "remote", Message: err.Error(), LatencyMs: durationMs(start)}, nil
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	msg := ""
	if !healthy {
		msg = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return HealthStatus{Healthy: healthy, BackendName: "remote", Message: msg, LatencyMs: durationMs(start)}, nil
}

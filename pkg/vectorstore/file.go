package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

const fileStoreVersion = 1

// fileStoreEnvelope is the on-disk serialization format.
type fileStoreEnvelope struct {
	Version   int                         `json:"version"`
	Metric    skill.DistanceMetric        `json:"metric"`
	Documents []skill.EmbeddedDocument    `json:"documents"`
}

// FileStore wraps a MemoryStore and, after every successful mutation,
// serializes the whole store to a temporary file and atomically renames it
// over the target path (spec 4.4, spec 5 "temp-file + rename for
// atomicity"). On construction, if the target exists it is deserialized and
// its version validated.
type FileStore struct {
	mu   sync.Mutex
	mem  *MemoryStore
	fs   afero.Fs
	path string
}

// OpenFileStore opens or creates a file-backed vector store at path.
func OpenFileStore(fs afero.Fs, path string, metric skill.DistanceMetric) (*FileStore, error) {
	fstore := &FileStore{
		mem:  NewMemoryStore(metric),
		fs:   fs,
		path: path,
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "stat vector store file", err)
	}
	if !exists {
		return fstore, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "read vector store file", err)
	}
	var env fileStoreEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperr.Wrap(apperr.ConfigMismatch, "parse vector store file", err)
	}
	if env.Version != fileStoreVersion {
		return nil, apperr.Newf(apperr.ConfigMismatch, "vector store file version %d incompatible with %d", env.Version, fileStoreVersion)
	}
	if env.Metric != "" {
		fstore.mem.metric = env.Metric
	}
	if len(env.Documents) > 0 {
		if _, err := fstore.mem.Upsert(context.Background(), env.Documents); err != nil {
			return nil, apperr.Wrap(apperr.ConfigMismatch, "rehydrate vector store documents", err)
		}
	}
	return fstore, nil
}

func (f *FileStore) persist() error {
	f.mem.mu.RLock()
	docs := make([]skill.EmbeddedDocument, 0, len(f.mem.docs))
	for _, d := range f.mem.docs {
		docs = append(docs, d)
	}
	metric := f.mem.metric
	f.mem.mu.RUnlock()

	env := fileStoreEnvelope{Version: fileStoreVersion, Metric: metric, Documents: docs}
	data, err := json.Marshal(env)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, "marshal vector store", err)
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0755); err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "create vector store directory", err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(f.path), uuid.NewString()))
	if err := afero.WriteFile(f.fs, tmpPath, data, 0644); err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "write vector store temp file", err)
	}
	if err := f.fs.Rename(tmpPath, f.path); err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "rename vector store temp file", err)
	}
	return nil
}

func (f *FileStore) Upsert(ctx context.Context, docs []skill.EmbeddedDocument) (UpsertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats, err := f.mem.Upsert(ctx, docs)
	if err != nil {
		return UpsertStats{}, err
	}
	if err := f.persist(); err != nil {
		return UpsertStats{}, err
	}
	return stats, nil
}

func (f *FileStore) Search(ctx context.Context, queryVec []float32, filter Filter, topK int) ([]skill.SearchResult, error) {
	return f.mem.Search(ctx, queryVec, filter, topK)
}

func (f *FileStore) Delete(ctx context.Context, ids []string) (DeleteStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats, err := f.mem.Delete(ctx, ids)
	if err != nil {
		return DeleteStats{}, err
	}
	if err := f.persist(); err != nil {
		return DeleteStats{}, err
	}
	return stats, nil
}

func (f *FileStore) Get(ctx context.Context, ids []string) ([]skill.EmbeddedDocument, error) {
	return f.mem.Get(ctx, ids)
}

func (f *FileStore) Count(ctx context.Context, filter Filter) (int, error) {
	return f.mem.Count(ctx, filter)
}

func (f *FileStore) HealthCheck(ctx context.Context) (HealthStatus, error) {
	status, err := f.mem.HealthCheck(ctx)
	if err != nil {
		return status, err
	}
	status.BackendName = "file"
	return status, nil
}

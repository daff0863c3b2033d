// Package indexmgr implements the Index Manager (spec section 4.5):
// checksum-driven incremental sync between the skills directory on disk and
// the metadata the retrieval pipeline has already indexed, grounded on
// original_source/search/index_manager.rs.
package indexmgr

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
	"github.com/kubiyabot/skillrt/pkg/util"
)

const (
	currentMetadataVersion = 1
	metadataFile           = "index_metadata.json"
)

// Config configures an index manager's storage location and the embedding
// identity its metadata must match to remain compatible.
type Config struct {
	IndexPath        string
	EmbeddingModel   string
	EmbeddingDims    int
	IndexOnStartup   bool
	WatchForChanges  bool
}

// Metadata is the on-disk record of what has been indexed.
type Metadata struct {
	Version         int                             `json:"version"`
	EmbeddingModel  string                          `json:"embedding_model"`
	Dimensions      int                             `json:"dimensions"`
	CreatedAt       time.Time                       `json:"created_at"`
	LastModified    time.Time                       `json:"last_modified"`
	DocumentCount   int                             `json:"document_count"`
	SkillChecksums  map[string]skill.SkillChecksum  `json:"skill_checksums"`
}

func newMetadata(model string, dims int) *Metadata {
	now := time.Now().UTC()
	return &Metadata{
		Version:        currentMetadataVersion,
		EmbeddingModel: model,
		Dimensions:     dims,
		CreatedAt:      now,
		LastModified:   now,
		SkillChecksums: make(map[string]skill.SkillChecksum),
	}
}

// IsCompatible reports whether m can serve cfg without a full reindex.
func (m *Metadata) IsCompatible(cfg Config) bool {
	return m.Version == currentMetadataVersion &&
		m.EmbeddingModel == cfg.EmbeddingModel &&
		m.Dimensions == cfg.EmbeddingDims
}

func (m *Metadata) touch() {
	m.LastModified = time.Now().UTC()
}

func loadMetadata(fs afero.Fs, indexPath string) (*Metadata, error) {
	path := filepath.Join(indexPath, metadataFile)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "stat index metadata", err)
	}
	if !exists {
		return nil, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "read index metadata", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperr.Wrap(apperr.ConfigMismatch, "parse index metadata", err)
	}
	return &m, nil
}

func saveMetadata(fs afero.Fs, indexPath string, m *Metadata) error {
	if err := fs.MkdirAll(indexPath, 0755); err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "create index directory", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, "marshal index metadata", err)
	}
	path := filepath.Join(indexPath, metadataFile)
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "write index metadata", err)
	}
	return nil
}

// Stats summarizes what the manager currently has indexed.
type Stats struct {
	TotalSkills   int
	TotalDocs     int
	StaleSkills   int
	IndexSizeBytes int64
}

// SyncResult is the outcome of planning or applying a sync.
type SyncResult struct {
	Added      []string
	Updated    []string
	Removed    []string
	Skipped    int
	FullReindex bool
}

// HasChanges reports whether anything added, updated, or removed.
func (s SyncResult) HasChanges() bool {
	return len(s.Added) > 0 || len(s.Updated) > 0 || len(s.Removed) > 0
}

// TotalProcessed is every skill considered during the sync.
func (s SyncResult) TotalProcessed() int {
	return len(s.Added) + len(s.Updated) + len(s.Removed) + s.Skipped
}

// Manager tracks skill checksums against a persisted index so re-indexing
// only touches what actually changed.
type Manager struct {
	fs       afero.Fs
	cfg      Config
	metadata *Metadata
}

// New loads or creates index metadata for cfg. A metadata file on disk that
// is version- or embedding-incompatible is discarded in favor of fresh
// metadata, forcing a subsequent full reindex (mirrors the original's
// `IndexManager::new`, which treats an incompatible load as absent).
func New(fs afero.Fs, cfg Config) (*Manager, error) {
	existing, err := loadMetadata(fs, cfg.IndexPath)
	if err != nil {
		return nil, err
	}

	var meta *Metadata
	if existing != nil && existing.IsCompatible(cfg) {
		meta = existing
	} else {
		meta = newMetadata(cfg.EmbeddingModel, cfg.EmbeddingDims)
	}

	return &Manager{fs: fs, cfg: cfg, metadata: meta}, nil
}

// Metadata returns the manager's current in-memory metadata.
func (m *Manager) Metadata() *Metadata { return m.metadata }

// Stats reports index statistics. StaleSkills is always 0 here; it is only
// meaningful as a result of a sync, same as the original.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	size, err := m.indexSizeBytes()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalSkills:    len(m.metadata.SkillChecksums),
		TotalDocs:      m.metadata.DocumentCount,
		IndexSizeBytes: size,
	}, nil
}

func (m *Manager) indexSizeBytes() (int64, error) {
	exists, err := afero.DirExists(m.fs, m.cfg.IndexPath)
	if err != nil || !exists {
		return 0, nil
	}
	var total int64
	err = afero.Walk(m.fs, m.cfg.IndexPath, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.BackendUnavailable, "walk index directory", err)
	}
	return total, nil
}

// ComputeSkillChecksum hashes SKILL.md, the skill's compiled artifact (a
// .wasm file if present), and its manifest (skill.toml or skill.json, first
// found wins). A missing SKILL.md hashes to the empty string rather than
// erroring, matching the original's default-initialized hash when the file
// is absent.
func (m *Manager) ComputeSkillChecksum(skillPath string) (skill.SkillChecksum, error) {
	checksum := skill.SkillChecksum{IndexedAt: time.Now().UTC()}

	if data, err := readIfExists(m.fs, filepath.Join(skillPath, "SKILL.md")); err != nil {
		return skill.SkillChecksum{}, err
	} else if data != nil {
		checksum.SkillMDHash = util.SHA256Hex(data)
	}

	entries, err := afero.ReadDir(m.fs, skillPath)
	if err != nil {
		return skill.SkillChecksum{}, apperr.Wrap(apperr.BackendUnavailable, "list skill directory", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".wasm" {
			data, err := afero.ReadFile(m.fs, filepath.Join(skillPath, e.Name()))
			if err != nil {
				return skill.SkillChecksum{}, apperr.Wrap(apperr.BackendUnavailable, "read wasm artifact", err)
			}
			checksum.WASMHash = util.SHA256Hex(data)
			break
		}
	}

	for _, name := range []string{"skill.toml", "skill.json"} {
		data, err := readIfExists(m.fs, filepath.Join(skillPath, name))
		if err != nil {
			return skill.SkillChecksum{}, err
		}
		if data != nil {
			checksum.ManifestHash = util.SHA256Hex(data)
			break
		}
	}

	return checksum, nil
}

func readIfExists(fs afero.Fs, path string) ([]byte, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "stat file", err)
	}
	if !exists {
		return nil, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "read file", err)
	}
	return data, nil
}

// NeedsReindex reports whether skillName's on-disk checksum differs from
// what was last recorded. A skill absent from the metadata always needs
// indexing.
func (m *Manager) NeedsReindex(skillName, skillPath string) (bool, error) {
	existing, ok := m.metadata.SkillChecksums[skillName]
	if !ok {
		return true, nil
	}
	current, err := m.ComputeSkillChecksum(skillPath)
	if err != nil {
		return false, err
	}
	return existing.SkillMDHash != current.SkillMDHash ||
		existing.WASMHash != current.WASMHash ||
		existing.ManifestHash != current.ManifestHash, nil
}

// RecordIndexed records that skillName was (re)indexed and persists metadata.
func (m *Manager) RecordIndexed(skillName string, checksum skill.SkillChecksum, docCount int) error {
	m.metadata.SkillChecksums[skillName] = checksum
	m.metadata.DocumentCount += docCount
	m.metadata.touch()
	return saveMetadata(m.fs, m.cfg.IndexPath, m.metadata)
}

// RecordRemoved records that skillName was removed and persists metadata.
func (m *Manager) RecordRemoved(skillName string, docCount int) error {
	delete(m.metadata.SkillChecksums, skillName)
	m.metadata.DocumentCount -= docCount
	if m.metadata.DocumentCount < 0 {
		m.metadata.DocumentCount = 0
	}
	m.metadata.touch()
	return saveMetadata(m.fs, m.cfg.IndexPath, m.metadata)
}

// PlanSync compares currentSkills (name -> directory path) against recorded
// checksums and reports what would be added, updated, removed, or skipped.
// It does not mutate metadata.
func (m *Manager) PlanSync(currentSkills map[string]string) (SyncResult, error) {
	var result SyncResult

	names := make([]string, 0, len(currentSkills))
	for name := range currentSkills {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := currentSkills[name]
		if _, ok := m.metadata.SkillChecksums[name]; !ok {
			result.Added = append(result.Added, name)
			continue
		}
		stale, err := m.NeedsReindex(name, path)
		if err != nil {
			return SyncResult{}, err
		}
		if stale {
			result.Updated = append(result.Updated, name)
		} else {
			result.Skipped++
		}
	}

	recorded := make([]string, 0, len(m.metadata.SkillChecksums))
	for name := range m.metadata.SkillChecksums {
		recorded = append(recorded, name)
	}
	sort.Strings(recorded)
	for _, name := range recorded {
		if _, ok := currentSkills[name]; !ok {
			result.Removed = append(result.Removed, name)
		}
	}

	return result, nil
}

// NeedsFullReindex reports whether the on-disk metadata (freshly reloaded,
// not the in-memory copy) is absent, corrupt, or incompatible with cfg. It
// always re-reads from disk so an external process rewriting the metadata
// file is observed.
func (m *Manager) NeedsFullReindex(cfg Config) bool {
	meta, err := loadMetadata(m.fs, cfg.IndexPath)
	if err != nil {
		return true
	}
	if meta == nil {
		return true
	}
	return !meta.IsCompatible(cfg)
}

// Clear resets the index to empty and removes indexed data files, keeping
// metadata itself in place (rewritten fresh).
func (m *Manager) Clear() error {
	m.metadata = newMetadata(m.cfg.EmbeddingModel, m.cfg.EmbeddingDims)
	if err := saveMetadata(m.fs, m.cfg.IndexPath, m.metadata); err != nil {
		return err
	}

	dataDir := filepath.Join(m.cfg.IndexPath, "data")
	exists, err := afero.DirExists(m.fs, dataDir)
	if err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "stat index data directory", err)
	}
	if exists {
		if err := m.fs.RemoveAll(dataDir); err != nil {
			return apperr.Wrap(apperr.BackendUnavailable, "remove index data", err)
		}
	}
	return nil
}

// Package context implements the Execution Context persistence layer: one
// TOML file per context in an atomic per-context directory, a JSON
// side-index for fast listing, rotated backups, and DAG-inheritance
// resolution (parent to child merge with child fields overriding).
//
// Grounded on original_source/crates/skill-context/src/storage.rs.
package context

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

const defaultBackupCount = 5

// IndexEntry is one row of the context side-index, enough to list and
// filter contexts without loading their full TOML bodies.
type IndexEntry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    string    `json:"parentId,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type contextIndex struct {
	Contexts map[string]IndexEntry `json:"contexts"`
}

// BackupInfo describes one rotated backup version of a context's TOML file.
type BackupInfo struct {
	Version    int
	Path       string
	ModifiedAt time.Time
	SizeBytes  int64
}

// Storage is the filesystem-backed persistence layer for Execution
// Contexts, grounded directly on storage.rs's ContextStorage.
type Storage struct {
	baseDir     string
	backupCount int
}

// NewStorage opens context storage rooted at baseDir, creating it if absent.
func NewStorage(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.LoadError, "create context storage dir", err)
	}
	return &Storage{baseDir: baseDir, backupCount: defaultBackupCount}, nil
}

// WithBackupCount overrides the number of backup versions kept per context.
func (s *Storage) WithBackupCount(count int) *Storage {
	s.backupCount = count
	return s
}

// BaseDir returns the storage root.
func (s *Storage) BaseDir() string { return s.baseDir }

func (s *Storage) contextDir(id string) string  { return filepath.Join(s.baseDir, id) }
func (s *Storage) contextFile(id string) string { return filepath.Join(s.contextDir(id), "context.toml") }
func (s *Storage) backupDir(id string) string   { return filepath.Join(s.contextDir(id), ".backup") }
func (s *Storage) indexFile() string            { return filepath.Join(s.baseDir, "index.json") }

// Save writes a context to storage atomically (write to temp file, then
// rename), backing up any existing version first, and updates the index.
func (s *Storage) Save(ctx *skill.ExecutionContext) error {
	if err := s.CheckCycle(ctx); err != nil {
		return err
	}

	dir := s.contextDir(ctx.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.LoadError, "create context dir", err)
	}

	file := s.contextFile(ctx.ID)
	if _, err := os.Stat(file); err == nil {
		if err := s.createBackup(ctx.ID); err != nil {
			return err
		}
	}

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(ctx); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "encode context toml", err)
	}

	if err := atomicWrite(filepath.Join(dir, ".context.toml.tmp"), file, buf.String()); err != nil {
		return err
	}

	return s.updateIndex(ctx.ID, ctx)
}

// Load reads a context by id.
func (s *Storage) Load(id string) (*skill.ExecutionContext, error) {
	file := s.contextFile(id)
	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return nil, apperr.Newf(apperr.NotFound, "context %q", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.LoadError, "read context file", err)
	}

	var ctx skill.ExecutionContext
	if _, err := toml.Decode(string(data), &ctx); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "decode context toml", err)
	}
	return &ctx, nil
}

// Delete removes a context and its backups, updating the index.
func (s *Storage) Delete(id string) error {
	dir := s.contextDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return apperr.Newf(apperr.NotFound, "context %q", id)
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperr.Wrap(apperr.LoadError, "delete context dir", err)
	}
	return s.updateIndex(id, nil)
}

// Exists reports whether a context is persisted.
func (s *Storage) Exists(id string) bool {
	_, err := os.Stat(s.contextFile(id))
	return err == nil
}

// List returns every persisted context's id.
func (s *Storage) List() ([]string, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(idx.Contexts))
	for id := range idx.Contexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListWithMetadata returns every index entry, sorted by id.
func (s *Storage) ListWithMetadata() ([]IndexEntry, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]IndexEntry, 0, len(idx.Contexts))
	for _, e := range idx.Contexts {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// GetMetadata returns the index entry for one context without loading its
// full body.
func (s *Storage) GetMetadata(id string) (IndexEntry, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return IndexEntry{}, err
	}
	entry, ok := idx.Contexts[id]
	if !ok {
		return IndexEntry{}, apperr.Newf(apperr.NotFound, "context %q", id)
	}
	return entry, nil
}

// Export writes id and every ancestor it transitively inherits from to
// outputDir as "<id>.toml" files, returning the set of ids exported.
func (s *Storage) Export(id, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.LoadError, "create export dir", err)
	}

	var exported []string
	seen := map[string]bool{}
	queue := []string{id}

	for len(queue) > 0 {
		current := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if seen[current] {
			continue
		}

		ctx, err := s.Load(current)
		if err != nil {
			return nil, err
		}

		var buf strings.Builder
		if err := toml.NewEncoder(&buf).Encode(ctx); err != nil {
			return nil, apperr.Wrap(apperr.InvalidInput, "encode context toml", err)
		}
		outFile := filepath.Join(outputDir, current+".toml")
		if err := os.WriteFile(outFile, []byte(buf.String()), 0o644); err != nil {
			return nil, apperr.Wrap(apperr.LoadError, "write exported context", err)
		}

		seen[current] = true
		exported = append(exported, current)

		if ctx.ParentID != "" {
			queue = append(queue, ctx.ParentID)
		}
	}

	return exported, nil
}

// Import loads a context from a TOML file and saves it, failing if a
// context with the same id already exists.
func (s *Storage) Import(filePath string) (string, error) {
	return s.importFile(filePath, false)
}

// ImportWithOverwrite is Import but replaces an existing context of the
// same id when overwrite is true.
func (s *Storage) ImportWithOverwrite(filePath string, overwrite bool) (string, error) {
	return s.importFile(filePath, overwrite)
}

func (s *Storage) importFile(filePath string, overwrite bool) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", apperr.Wrap(apperr.LoadError, "read import file", err)
	}

	var ctx skill.ExecutionContext
	if _, err := toml.Decode(string(data), &ctx); err != nil {
		return "", apperr.Wrap(apperr.InvalidInput, "decode context toml", err)
	}

	if s.Exists(ctx.ID) && !overwrite {
		return "", apperr.Newf(apperr.AlreadyExists, "context %q", ctx.ID)
	}

	if err := s.Save(&ctx); err != nil {
		return "", err
	}
	return ctx.ID, nil
}

func (s *Storage) createBackup(id string) error {
	file := s.contextFile(id)
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil
	}

	dir := s.backupDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.LoadError, "create backup dir", err)
	}

	for i := s.backupCount; i >= 1; i-- {
		old := filepath.Join(dir, "context.toml."+strconv.Itoa(i))
		if _, err := os.Stat(old); err != nil {
			continue
		}
		if i >= s.backupCount {
			os.Remove(old)
			continue
		}
		newPath := filepath.Join(dir, "context.toml."+strconv.Itoa(i+1))
		if err := os.Rename(old, newPath); err != nil {
			return apperr.Wrap(apperr.LoadError, "rotate backup", err)
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return apperr.Wrap(apperr.LoadError, "read context for backup", err)
	}
	backupFile := filepath.Join(dir, "context.toml.1")
	if err := os.WriteFile(backupFile, data, 0o644); err != nil {
		return apperr.Wrap(apperr.LoadError, "write backup", err)
	}
	return nil
}

// RestoreBackup replaces the current context.toml with a specific backup
// version, backing up the current version first.
func (s *Storage) RestoreBackup(id string, version int) error {
	backupFile := filepath.Join(s.backupDir(id), "context.toml."+strconv.Itoa(version))
	data, err := os.ReadFile(backupFile)
	if os.IsNotExist(err) {
		return apperr.Newf(apperr.NotFound, "backup version %d for context %q", version, id)
	}
	if err != nil {
		return apperr.Wrap(apperr.LoadError, "read backup", err)
	}

	if err := s.createBackup(id); err != nil {
		return err
	}

	if err := os.WriteFile(s.contextFile(id), data, 0o644); err != nil {
		return apperr.Wrap(apperr.LoadError, "restore from backup", err)
	}

	ctx, err := s.Load(id)
	if err != nil {
		return err
	}
	return s.updateIndex(id, ctx)
}

// ListBackups returns the available backup versions for a context, oldest
// version number last, newest first.
func (s *Storage) ListBackups(id string) ([]BackupInfo, error) {
	dir := s.backupDir(id)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.LoadError, "list backups", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		name := entry.Name()
		versionStr, ok := strings.CutPrefix(name, "context.toml.")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(versionStr)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Version:    version,
			Path:       filepath.Join(dir, name),
			ModifiedAt: info.ModTime(),
			SizeBytes:  info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Version < backups[j].Version })
	return backups, nil
}

func (s *Storage) loadIndex() (contextIndex, error) {
	data, err := os.ReadFile(s.indexFile())
	if os.IsNotExist(err) {
		return contextIndex{Contexts: map[string]IndexEntry{}}, nil
	}
	if err != nil {
		return contextIndex{}, apperr.Wrap(apperr.LoadError, "read context index", err)
	}

	var idx contextIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return contextIndex{}, apperr.Wrap(apperr.InvalidInput, "decode context index", err)
	}
	if idx.Contexts == nil {
		idx.Contexts = map[string]IndexEntry{}
	}
	return idx, nil
}

func (s *Storage) updateIndex(id string, ctx *skill.ExecutionContext) error {
	idx, err := s.loadIndex()
	if err != nil {
		return err
	}

	if ctx != nil {
		idx.Contexts[id] = IndexEntry{
			ID:          ctx.ID,
			Name:        ctx.Name,
			Description: ctx.Description,
			ParentID:    ctx.ParentID,
			Tags:        ctx.Tags,
			CreatedAt:   ctx.CreatedAt,
			UpdatedAt:   ctx.UpdatedAt,
		}
	} else {
		delete(idx.Contexts, id)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, "encode context index", err)
	}
	return atomicWrite(filepath.Join(s.baseDir, ".index.json.tmp"), s.indexFile(), string(data))
}

// RebuildIndex rescans every context directory under baseDir and rewrites
// the index from scratch. Useful if the index becomes corrupted or stale.
func (s *Storage) RebuildIndex() (int, error) {
	idx := contextIndex{Contexts: map[string]IndexEntry{}}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, apperr.Wrap(apperr.LoadError, "scan context storage dir", err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.baseDir, entry.Name(), "context.toml")); err != nil {
			continue
		}
		ctx, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		idx.Contexts[ctx.ID] = IndexEntry{
			ID:          ctx.ID,
			Name:        ctx.Name,
			Description: ctx.Description,
			ParentID:    ctx.ParentID,
			Tags:        ctx.Tags,
			CreatedAt:   ctx.CreatedAt,
			UpdatedAt:   ctx.UpdatedAt,
		}
		count++
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return 0, apperr.Wrap(apperr.InvalidInput, "encode context index", err)
	}
	if err := os.WriteFile(s.indexFile(), data, 0o644); err != nil {
		return 0, apperr.Wrap(apperr.LoadError, "write context index", err)
	}
	return count, nil
}

func atomicWrite(tmpPath, finalPath, content string) error {
	f, err := os.Create(tmpPath)
	if err != nil {
		return apperr.Wrap(apperr.LoadError, "create temp file", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return apperr.Wrap(apperr.LoadError, "write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return apperr.Wrap(apperr.LoadError, "sync temp file", err)
	}
	if err := f.Close(); err != nil {
		return apperr.Wrap(apperr.LoadError, "close temp file", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return apperr.Wrap(apperr.LoadError, "rename into place", err)
	}
	return nil
}

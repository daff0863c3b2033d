package jobs

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/indexmgr"
)

// IndexingHandler drives the Index Manager from the job queue: it syncs
// checksums for the installed-skill registry and records what it indexed,
// grounded on original_source/search/index_manager.rs's sync entry point
// and worker.rs's job-handler pattern.
type IndexingHandler struct {
	fs          afero.Fs
	mgr         *indexmgr.Manager
	registryDir string
}

// NewIndexingHandler builds a handler that syncs registryDir's
// skill_name/ subdirectories against mgr's checksum index.
func NewIndexingHandler(fs afero.Fs, mgr *indexmgr.Manager, registryDir string) *IndexingHandler {
	return &IndexingHandler{fs: fs, mgr: mgr, registryDir: registryDir}
}

func (h *IndexingHandler) Name() string { return "indexing" }

func (h *IndexingHandler) CanHandle(jobType Type) bool {
	return jobType == TypeSkillIndexing || jobType == TypeFullReindex
}

// Handle syncs the registry against the index manager's recorded checksums.
// TypeFullReindex clears the index first, forcing every skill to be
// re-added; TypeSkillIndexing performs an incremental sync.
func (h *IndexingHandler) Handle(ctx context.Context, job *Job, wctx *WorkerContext) (map[string]any, error) {
	wctx.ReportProgress(job.ID, 0, "scanning registry")

	if job.Type == TypeFullReindex {
		if err := h.mgr.Clear(); err != nil {
			return nil, err
		}
	}

	skills, err := h.discoverSkills()
	if err != nil {
		return nil, err
	}

	wctx.ReportProgressWithDetails(job.ID, 25, "planning sync", filepath.Base(h.registryDir))
	plan, err := h.mgr.PlanSync(skills)
	if err != nil {
		return nil, err
	}

	wctx.ReportProgress(job.ID, 50, "applying sync")
	for _, name := range plan.Added {
		if err := h.indexSkill(name, skills[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range plan.Updated {
		if err := h.indexSkill(name, skills[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range plan.Removed {
		if err := h.mgr.RecordRemoved(name, 0); err != nil {
			return nil, err
		}
	}

	wctx.ReportProgress(job.ID, 100, "completed")
	return map[string]any{
		"status":  "success",
		"added":   plan.Added,
		"updated": plan.Updated,
		"removed": plan.Removed,
		"skipped": plan.Skipped,
	}, nil
}

func (h *IndexingHandler) indexSkill(name, path string) error {
	checksum, err := h.mgr.ComputeSkillChecksum(path)
	if err != nil {
		return err
	}
	return h.mgr.RecordIndexed(name, checksum, 1)
}

// discoverSkills lists the registry's immediate subdirectories as
// skill_name -> skill_path pairs.
func (h *IndexingHandler) discoverSkills() (map[string]string, error) {
	exists, err := afero.DirExists(h.fs, h.registryDir)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "stat registry directory", err)
	}
	if !exists {
		return map[string]string{}, nil
	}
	entries, err := afero.ReadDir(h.fs, h.registryDir)
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "list registry directory", err)
	}
	skills := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			skills[e.Name()] = filepath.Join(h.registryDir, e.Name())
		}
	}
	return skills, nil
}

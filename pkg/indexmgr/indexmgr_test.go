package indexmgr

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/skill"
)

func testConfig() Config {
	return Config{
		IndexPath:      "/index",
		EmbeddingModel: "test-model",
		EmbeddingDims:  384,
	}
}

func writeSkill(t *testing.T, fs afero.Fs, dir, skillMD string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dir, 0755))
	require.NoError(t, afero.WriteFile(fs, dir+"/SKILL.md", []byte(skillMD), 0644))
}

func TestNewCreatesFreshMetadataWhenAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr, err := New(fs, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "test-model", mgr.Metadata().EmbeddingModel)
	assert.Equal(t, 0, mgr.Metadata().DocumentCount)
}

func TestNewDiscardsIncompatibleMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig()

	mgr, err := New(fs, cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.RecordIndexed("a", skill.SkillChecksum{SkillMDHash: "x"}, 3))

	incompatible := cfg
	incompatible.EmbeddingModel = "different-model"
	mgr2, err := New(fs, incompatible)
	require.NoError(t, err)
	assert.Empty(t, mgr2.Metadata().SkillChecksums)
}

func TestComputeSkillChecksumMissingSkillMD(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr, err := New(fs, testConfig())
	require.NoError(t, err)
	require.NoError(t, fs.MkdirAll("/skills/empty", 0755))

	checksum, err := mgr.ComputeSkillChecksum("/skills/empty")
	require.NoError(t, err)
	assert.Empty(t, checksum.SkillMDHash)
	assert.Empty(t, checksum.WASMHash)
}

func TestNeedsReindex(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr, err := New(fs, testConfig())
	require.NoError(t, err)

	writeSkill(t, fs, "/skills/test", "# Test Skill v1\n")

	needs, err := mgr.NeedsReindex("test", "/skills/test")
	require.NoError(t, err)
	assert.True(t, needs)

	checksum, err := mgr.ComputeSkillChecksum("/skills/test")
	require.NoError(t, err)
	require.NoError(t, mgr.RecordIndexed("test", checksum, 5))

	needs, err = mgr.NeedsReindex("test", "/skills/test")
	require.NoError(t, err)
	assert.False(t, needs)

	writeSkill(t, fs, "/skills/test", "# Test Skill v2\n")
	needs, err = mgr.NeedsReindex("test", "/skills/test")
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestPlanSync(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr, err := New(fs, testConfig())
	require.NoError(t, err)

	require.NoError(t, mgr.RecordIndexed("existing-skill", skill.SkillChecksum{SkillMDHash: "old"}, 3))
	require.NoError(t, mgr.RecordIndexed("removed-skill", skill.SkillChecksum{SkillMDHash: "old"}, 2))

	writeSkill(t, fs, "/skills/existing-skill", "# Existing changed\n")
	writeSkill(t, fs, "/skills/new-skill", "# New\n")

	current := map[string]string{
		"existing-skill": "/skills/existing-skill",
		"new-skill":      "/skills/new-skill",
	}

	result, err := mgr.PlanSync(current)
	require.NoError(t, err)
	assert.Contains(t, result.Added, "new-skill")
	assert.Contains(t, result.Updated, "existing-skill")
	assert.Contains(t, result.Removed, "removed-skill")
	assert.True(t, result.HasChanges())
}

func TestSyncResultHasChangesAndTotal(t *testing.T) {
	var result SyncResult
	assert.False(t, result.HasChanges())
	assert.Equal(t, 0, result.TotalProcessed())

	result.Added = append(result.Added, "skill-1")
	result.Skipped = 2
	assert.True(t, result.HasChanges())
	assert.Equal(t, 3, result.TotalProcessed())
}

func TestClearResetsMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr, err := New(fs, testConfig())
	require.NoError(t, err)

	require.NoError(t, mgr.RecordIndexed("test-skill", skill.SkillChecksum{SkillMDHash: "h"}, 10))
	assert.NotEmpty(t, mgr.Metadata().SkillChecksums)

	require.NoError(t, mgr.Clear())
	assert.Empty(t, mgr.Metadata().SkillChecksums)
	assert.Equal(t, 0, mgr.Metadata().DocumentCount)
}

func TestNeedsFullReindexWhenNoMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr, err := New(fs, testConfig())
	require.NoError(t, err)
	assert.True(t, mgr.NeedsFullReindex(testConfig()))

	require.NoError(t, mgr.RecordIndexed("a", skill.SkillChecksum{}, 1))
	assert.False(t, mgr.NeedsFullReindex(testConfig()))

	incompatible := testConfig()
	incompatible.EmbeddingDims = 768
	assert.True(t, mgr.NeedsFullReindex(incompatible))
}

func TestStatsReportsCounts(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr, err := New(fs, testConfig())
	require.NoError(t, err)
	require.NoError(t, mgr.RecordIndexed("a", skill.SkillChecksum{}, 4))

	stats, err := mgr.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSkills)
	assert.Equal(t, 4, stats.TotalDocs)
}

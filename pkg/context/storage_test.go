package context

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStorage(t)

	ctx := New("Test Context")
	ctx.ID = "test-context"
	ctx.Description = "A test context"
	WithTag(ctx, "test")

	require.NoError(t, s.Save(ctx))
	assert.True(t, s.Exists("test-context"))

	loaded, err := s.Load("test-context")
	require.NoError(t, err)
	assert.Equal(t, "test-context", loaded.ID)
	assert.Equal(t, "Test Context", loaded.Name)
	assert.Equal(t, "A test context", loaded.Description)
}

func TestDelete(t *testing.T) {
	s := openTestStorage(t)

	ctx := New("To Delete")
	ctx.ID = "to-delete"
	require.NoError(t, s.Save(ctx))
	assert.True(t, s.Exists("to-delete"))

	require.NoError(t, s.Delete("to-delete"))
	assert.False(t, s.Exists("to-delete"))
}

func TestList(t *testing.T) {
	s := openTestStorage(t)

	for _, id := range []string{"ctx-1", "ctx-2", "ctx-3"} {
		ctx := New(id)
		ctx.ID = id
		require.NoError(t, s.Save(ctx))
	}

	list, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ctx-1", "ctx-2", "ctx-3"}, list)
}

func TestIndexMetadata(t *testing.T) {
	s := openTestStorage(t)

	ctx := New("Indexed Context")
	ctx.ID = "indexed"
	ctx.Description = "Has metadata"
	WithTag(ctx, "important")
	WithTag(ctx, "production")
	require.NoError(t, s.Save(ctx))

	meta, err := s.GetMetadata("indexed")
	require.NoError(t, err)
	assert.Equal(t, "Indexed Context", meta.Name)
	assert.Len(t, meta.Tags, 2)
}

func TestBackupCreation(t *testing.T) {
	s := openTestStorage(t)

	ctx := New("Backup Test")
	ctx.ID = "backup-test"
	require.NoError(t, s.Save(ctx))

	ctx.Description = "Modified"
	Touch(ctx)
	require.NoError(t, s.Save(ctx))

	backups, err := s.ListBackups("backup-test")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, 1, backups[0].Version)
}

func TestBackupRotation(t *testing.T) {
	s := openTestStorage(t).WithBackupCount(3)

	ctx := New("Rotation Test")
	ctx.ID = "rotation-test"

	for i := 0; i < 5; i++ {
		ctx.Description = "Version"
		Touch(ctx)
		require.NoError(t, s.Save(ctx))
	}

	backups, err := s.ListBackups("rotation-test")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), 3)
}

func TestRestoreBackup(t *testing.T) {
	s := openTestStorage(t)

	ctx := New("Restore Test")
	ctx.ID = "restore-test"
	ctx.Description = "Original"
	require.NoError(t, s.Save(ctx))

	ctx.Description = "Modified"
	Touch(ctx)
	require.NoError(t, s.Save(ctx))

	require.NoError(t, s.RestoreBackup("restore-test", 1))

	restored, err := s.Load("restore-test")
	require.NoError(t, err)
	assert.Equal(t, "Original", restored.Description)
}

func TestExportImport(t *testing.T) {
	s := openTestStorage(t)

	parent := New("Parent Context")
	parent.ID = "parent"
	child := Inheriting("Child Context", "parent")
	child.ID = "child"

	require.NoError(t, s.Save(parent))
	require.NoError(t, s.Save(child))

	exportDir := filepath.Join(t.TempDir(), "export")
	exported, err := s.Export("child", exportDir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"parent", "child"}, exported)

	importStorage, err := NewStorage(filepath.Join(t.TempDir(), "import"))
	require.NoError(t, err)

	_, err = importStorage.Import(filepath.Join(exportDir, "parent.toml"))
	require.NoError(t, err)
	_, err = importStorage.Import(filepath.Join(exportDir, "child.toml"))
	require.NoError(t, err)

	assert.True(t, importStorage.Exists("parent"))
	assert.True(t, importStorage.Exists("child"))
}

func TestImportConflict(t *testing.T) {
	s := openTestStorage(t)

	ctx := New("Conflict Test")
	ctx.ID = "conflict"
	require.NoError(t, s.Save(ctx))

	exportDir := filepath.Join(t.TempDir(), "export")
	_, err := s.Export("conflict", exportDir)
	require.NoError(t, err)

	_, err = s.Import(filepath.Join(exportDir, "conflict.toml"))
	assert.Equal(t, apperr.AlreadyExists, apperr.KindOf(err))

	_, err = s.ImportWithOverwrite(filepath.Join(exportDir, "conflict.toml"), true)
	assert.NoError(t, err)
}

func TestRebuildIndex(t *testing.T) {
	s := openTestStorage(t)

	for _, id := range []string{"ctx-1", "ctx-2"} {
		ctx := New(id)
		ctx.ID = id
		require.NoError(t, s.Save(ctx))
	}

	count, err := s.RebuildIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := s.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestContextNotFound(t *testing.T) {
	s := openTestStorage(t)

	_, err := s.Load("nonexistent")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	err = s.Delete("nonexistent")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

package engine_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/engine"
)

func validComponentBytes() []byte {
	return []byte("component\x00get-metadata\x00get-tools\x00execute-tool\x00validate-config\x00")
}

func TestLoadComponentCachesByKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/artifacts/kubernetes.wasm", validComponentBytes(), 0644))

	e := engine.New("/cache", "v1", engine.WithFilesystem(fs))

	c1, err := e.LoadComponent(context.Background(), "/artifacts/kubernetes.wasm", "kubernetes", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "kubernetes_1.0.0_v1", c1.CacheKey())
	assert.Equal(t, 1, e.CacheSize())

	c2, err := e.LoadComponent(context.Background(), "/artifacts/kubernetes.wasm", "kubernetes", "1.0.0")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestLoadComponentRejectsInvalidVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := engine.New("/cache", "v1", engine.WithFilesystem(fs))

	_, err := e.LoadComponent(context.Background(), "/x.wasm", "kubernetes", "not-a-version")
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}

func TestLoadComponentMissingExportFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/x.wasm", []byte("component\x00get-metadata\x00"), 0644))

	e := engine.New("/cache", "v1", engine.WithFilesystem(fs))
	_, err := e.LoadComponent(context.Background(), "/x.wasm", "partial", "1.0.0")
	assert.True(t, apperr.Is(err, apperr.LoadError))
}

func TestLoadComponentNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := engine.New("/cache", "v1", engine.WithFilesystem(fs))

	_, err := e.LoadComponent(context.Background(), "/missing.wasm", "ghost", "1.0.0")
	assert.True(t, apperr.Is(err, apperr.LoadError))
}

func TestClearCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.wasm", validComponentBytes(), 0644))
	require.NoError(t, afero.WriteFile(fs, "/b.wasm", validComponentBytes(), 0644))

	e := engine.New("/cache", "v1", engine.WithFilesystem(fs))
	_, err := e.LoadComponent(context.Background(), "/a.wasm", "a", "1.0.0")
	require.NoError(t, err)
	_, err = e.LoadComponent(context.Background(), "/b.wasm", "b", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 2, e.CacheSize())

	e.ClearCache("a")
	assert.Equal(t, 1, e.CacheSize())

	e.ClearCache("")
	assert.Equal(t, 0, e.CacheSize())
}

package engine

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/kubiyabot/skillrt/internal/logger"
	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// Engine loads component artifacts, validates them, and caches the loaded
// Components in memory (spec 4.1). Per-invocation sandboxed stores are
// built by sandbox.Builder, not by the Engine.
type Engine struct {
	mu sync.RWMutex

	runtimeTag string
	fs         afero.Fs
	cacheDir   string

	cache map[string]*Component
	group singleflight.Group

	// loadBytes reads a component artifact from its source path. Overridable
	// in tests; defaults to reading from fs.
	loadBytes func(path string) ([]byte, error)
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithFilesystem overrides the afero filesystem component artifacts are read
// from. The cache itself is held in memory; nothing is written under
// cacheDir.
func WithFilesystem(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// New creates an Engine rooted at cacheDir, tagged with runtimeTag.
func New(cacheDir, runtimeTag string, opts ...Option) *Engine {
	e := &Engine{
		runtimeTag: runtimeTag,
		fs:         afero.NewOsFs(),
		cacheDir:   cacheDir,
		cache:      make(map[string]*Component),
	}
	e.loadBytes = func(path string) ([]byte, error) {
		return afero.ReadFile(e.fs, path)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadComponent reads bytes from path, compiles to the native form (here: a
// validated in-memory representation -- actual wasm/native compilation is an
// external build driver's concern per spec's non-goals), and caches the
// artifact under {skill}_{version}_{runtime-tag}.
func (e *Engine) LoadComponent(ctx context.Context, path, skillName, version string) (*Component, error) {
	if _, err := semver.NewVersion(version); err != nil {
		return nil, apperr.Wrapf(err, apperr.InvalidInput, "skill %s: invalid version %q", skillName, version)
	}

	key := cacheKey(skillName, version, e.runtimeTag)

	e.mu.RLock()
	if c, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return c, nil
	}
	e.mu.RUnlock()

	// singleflight collapses concurrent loads of the same cache key into one
	// compile.
	v, err, _ := e.group.Do(key, func() (any, error) {
		data, err := e.loadBytes(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperr.Wrapf(err, apperr.LoadError, "component artifact not found: %s", path)
			}
			return nil, apperr.Wrapf(err, apperr.LoadError, "read component artifact: %s", path)
		}
		if len(data) == 0 {
			return nil, apperr.Newf(apperr.LoadError, "component artifact is empty: %s", path)
		}

		c := &Component{
			SkillName:  skillName,
			Version:    version,
			RuntimeTag: e.runtimeTag,
			Bytes:      data,
			LoadedAt:   time.Now(),
		}
		if err := e.validate(c); err != nil {
			return nil, err
		}

		e.mu.Lock()
		e.cache[key] = c
		e.mu.Unlock()

		logger.GetLogger().Info().Str("skill", skillName).Str("version", version).Msg("loaded component")
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Component), nil
}

// ValidateComponent confirms the four required exports exist with the
// expected string-in/string-out shape. Since the wire format is textual
// (spec section 6), "shape" validation here means each export name occurs
// somewhere in the artifact's bytes; a component missing any of them fails
// with LoadError.
func (e *Engine) ValidateComponent(c *Component) error {
	return e.validate(c)
}

func (e *Engine) validate(c *Component) error {
	exports, err := discoverExports(c.Bytes)
	if err != nil {
		return apperr.Wrap(apperr.LoadError, "discover component exports", err)
	}
	c.exports = exports

	for _, name := range skill.RequiredExports {
		if !exports[name] {
			return apperr.Newf(apperr.LoadError, "component %s missing required export %q", c.SkillName, name)
		}
	}
	return nil
}

// ClearCache evicts a single skill's cache key, or the entire cache when
// skillName is empty. A change in runtime-tag invalidates transparently:
// old entries simply never hit because their key differs.
func (e *Engine) ClearCache(skillName string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if skillName == "" {
		e.cache = make(map[string]*Component)
		return
	}
	for key, c := range e.cache {
		if c.SkillName == skillName {
			delete(e.cache, key)
		}
	}
}

// CacheSize returns the number of compiled artifacts currently cached.
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

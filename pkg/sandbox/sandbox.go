// Package sandbox implements the Sandbox Builder & Instance Executor (spec
// section 4.2): every tool invocation runs against a fresh store created
// from capabilities wired from the Instance's config.
package sandbox

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
	"github.com/kubiyabot/skillrt/pkg/util"
)

// Store is the per-invocation isolation boundary built by a Builder. A fresh
// Store is created for every tool invocation; Stores are never shared across
// concurrent calls.
type Store struct {
	FS         afero.Fs // rooted filesystem view: read-only root, writable paths granted
	Env        map[string]string
	Network    NetworkPolicy
	CPULimit   int64 // bytes-equivalent fuel unit, parsed from human size
	MemLimit   int64 // bytes
	Deadline   time.Time
	instanceDir string
}

// InstanceDir returns the always-writable, instance-private directory path.
func (s *Store) InstanceDir() string {
	return s.instanceDir
}

// NetworkPolicy is the resolved outbound network policy for a Store.
type NetworkPolicy struct {
	Enabled   bool
	Blocklist []string
	Allowlist []string
	DNS       []string
}

// Allows reports whether an outbound connection to host is permitted.
// Blocklist takes precedence; if an allowlist is present the destination
// must match one of its patterns (spec 4.2).
func (p NetworkPolicy) Allows(host string) bool {
	if !p.Enabled {
		return false
	}
	if util.HostMatchesAny(host, p.Blocklist) {
		return false
	}
	if len(p.Allowlist) > 0 {
		return util.HostMatchesAny(host, p.Allowlist)
	}
	return true
}

// Builder constructs Stores from an Instance's resource limits and runtime
// overrides.
type Builder struct {
	baseFS afero.Fs // the host filesystem root the sandbox is carved out of
}

// NewBuilder creates a Builder rooted at baseFS (typically an OS filesystem
// scoped to the service's data directory).
func NewBuilder(baseFS afero.Fs) *Builder {
	return &Builder{baseFS: baseFS}
}

// BuildStore constructs a fresh sandboxed Store for one invocation of
// instance against skillName/instanceName, honoring the instance's
// filesystem, network, environment, and CPU/memory configuration.
func (b *Builder) BuildStore(ctx context.Context, skillName, instanceName string, inst *skill.Instance, writablePaths []string, instanceDir string) (*Store, error) {
	if deadline, ok := ctx.Deadline(); ok && time.Now().After(deadline) {
		return nil, apperr.New(apperr.Timeout, "deadline already expired before sandbox construction")
	}

	root := afero.NewReadOnlyFs(b.baseFS)
	overlay := afero.NewCopyOnWriteFs(root, afero.NewMemMapFs())
	fs := afero.NewBasePathFs(overlay, "/")

	// Writable paths are exactly those declared in filesystem config, plus
	// the always-writable instance-private directory.
	allWritable := append(append([]string{}, writablePaths...), instanceDir)
	grantedFS := &scopedWritableFs{Fs: fs, writable: allWritable}

	env := make(map[string]string, len(inst.Config))
	for k, entry := range inst.Config {
		env[k] = entry.Value
	}
	if inst.RuntimeOverrides.InheritEnv {
		// Native-execution runtimes may inherit host environment; component
		// runtimes never do (spec 4.2). Caller is responsible for only
		// setting InheritEnv on native instances. Instance config values
		// take precedence over inherited host variables.
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				if _, set := env[k]; !set {
					env[k] = v
				}
			}
		}
	}

	cpuBytes, err := util.ParseSize(orDefault(inst.Resources.CPULimit, "1"))
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "parse cpu_limit", err)
	}
	memBytes, err := util.ParseSize(orDefault(inst.Resources.MemoryLimit, "512m"))
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "parse memory_limit", err)
	}

	deadline := time.Now().Add(defaultTimeout(inst.Resources.ExecutionTimeMs))
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	return &Store{
		FS:  grantedFS,
		Env: env,
		Network: NetworkPolicy{
			Enabled:   inst.Resources.NetworkEnabled,
			Blocklist: inst.Resources.BlockedHosts,
			Allowlist: inst.Resources.AllowedHosts,
			DNS:       inst.Resources.DNSServers,
		},
		CPULimit:    cpuBytes,
		MemLimit:    memBytes,
		Deadline:    deadline,
		instanceDir: instanceDir,
	}, nil
}

func defaultTimeout(ms int) time.Duration {
	if ms <= 0 {
		return 30 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// scopedWritableFs wraps an afero.Fs so mutating operations outside the
// writable allowlist fail with SandboxDenied instead of silently succeeding
// against the copy-on-write overlay.
type scopedWritableFs struct {
	afero.Fs
	writable []string
}

func (s *scopedWritableFs) isWritable(name string) bool {
	for _, p := range s.writable {
		if name == p || hasPathPrefix(name, p) {
			return true
		}
	}
	return false
}

func hasPathPrefix(name, prefix string) bool {
	if len(name) < len(prefix) {
		return false
	}
	if name[:len(prefix)] != prefix {
		return false
	}
	return len(name) == len(prefix) || name[len(prefix)] == '/'
}

func (s *scopedWritableFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_APPEND|os.O_TRUNC) != 0 && !s.isWritable(name) {
		return nil, apperr.Newf(apperr.SandboxDenied, "write to %q is outside granted filesystem paths", name)
	}
	return s.Fs.OpenFile(name, flag, perm)
}

func (s *scopedWritableFs) Mkdir(name string, perm os.FileMode) error {
	if !s.isWritable(name) {
		return apperr.Newf(apperr.SandboxDenied, "mkdir %q is outside granted filesystem paths", name)
	}
	return s.Fs.Mkdir(name, perm)
}

func (s *scopedWritableFs) Remove(name string) error {
	if !s.isWritable(name) {
		return apperr.Newf(apperr.SandboxDenied, "remove %q is outside granted filesystem paths", name)
	}
	return s.Fs.Remove(name)
}

// Package api is a thin HTTP front-end (spec.md section 2: "peers consumed
// by external front-ends") that calls into the Execution Engine, Sandbox
// Executor, Retrieval Pipeline, Job Scheduler, Generation Pipeline, and
// Execution Context storage. It does not re-specify any of their
// semantics, only exposes them over chi-routed JSON endpoints.
package api

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/engine"
	"github.com/kubiyabot/skillrt/pkg/instance"
	"github.com/kubiyabot/skillrt/pkg/sandbox"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// Registry is the in-process Instance Manager named in spec.md's control
// flow diagram ("Sandbox <- Engine <- Executor <- Instance Manager"): it
// loads a Skill's component, persists the Instance binding, and keeps a
// live Executor per (skill_name, instance_name) for tool invocation.
type Registry struct {
	mu         sync.RWMutex
	engine     *engine.Engine
	builder    *sandbox.Builder
	invoker    sandbox.Invoker
	instances  *instance.Storage
	instanceDir string
	executors  map[string]*sandbox.Executor
}

// NewRegistry builds a Registry. instanceDir is the root under which each
// instance gets its always-writable private directory.
func NewRegistry(eng *engine.Engine, builder *sandbox.Builder, invoker sandbox.Invoker, instances *instance.Storage, instanceDir string) *Registry {
	return &Registry{
		engine:      eng,
		builder:     builder,
		invoker:     invoker,
		instances:   instances,
		instanceDir: instanceDir,
		executors:   make(map[string]*sandbox.Executor),
	}
}

func registryKey(skillName, instanceName string) string {
	return skillName + "/" + instanceName
}

// Register loads componentPath, persists inst, and builds the Executor the
// rest of the registry's lookups will serve.
func (r *Registry) Register(ctx context.Context, componentPath string, inst *skill.Instance, writablePaths []string) (*sandbox.Executor, error) {
	skillName, instanceName := inst.Metadata.SkillName, inst.Metadata.InstanceName
	if skillName == "" || instanceName == "" {
		return nil, apperr.New(apperr.InvalidInput, "instance requires skill_name and instance_name")
	}

	component, err := r.engine.LoadComponent(ctx, componentPath, skillName, inst.Metadata.Version)
	if err != nil {
		return nil, err
	}

	if err := r.instances.Save(inst); err != nil {
		return nil, err
	}

	instDir := filepath.Join(r.instanceDir, skillName, instanceName)
	exec := sandbox.NewExecutor(r.builder, r.invoker, component, skillName, instanceName, inst, writablePaths, instDir)

	r.mu.Lock()
	r.executors[registryKey(skillName, instanceName)] = exec
	r.mu.Unlock()
	return exec, nil
}

// Get returns the live Executor for an instance previously loaded into this
// process via Register. Instances persisted by an earlier process run are
// not rehydrated automatically; a deployment that restarts the service
// must re-register its instances, since writable-path grants are a
// Register-time argument and are not themselves persisted.
func (r *Registry) Get(skillName, instanceName string) (*sandbox.Executor, error) {
	r.mu.RLock()
	exec, ok := r.executors[registryKey(skillName, instanceName)]
	r.mu.RUnlock()
	if ok {
		return exec, nil
	}
	return nil, apperr.Newf(apperr.NotFound, "instance %s/%s is not registered in this process", skillName, instanceName)
}

// List returns every persisted instance's metadata, whether or not its
// Executor has been loaded into this process yet.
func (r *Registry) List() ([]*skill.Instance, error) {
	return r.instances.List()
}

// Unregister drops the persisted instance and its live Executor, if any.
func (r *Registry) Unregister(skillName, instanceName string) error {
	r.mu.Lock()
	delete(r.executors, registryKey(skillName, instanceName))
	r.mu.Unlock()
	return r.instances.Delete(skillName, instanceName)
}

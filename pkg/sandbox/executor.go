package sandbox

import (
	"context"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/engine"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// Invoker calls one of a component's four string-in/string-out exports
// inside a Store and returns the raw string response. The component runtime
// itself (wasmtime, a container, a native process) is an external
// collaborator; Invoker is the seam the Executor calls through.
type Invoker interface {
	Invoke(ctx context.Context, store *Store, component *engine.Component, export, input string) (string, error)
}

// Executor is bound to (Builder, Invoker, Component, skill_name,
// instance_name, Instance) and exposes the four public operations of spec 4.2.
type Executor struct {
	builder   *Builder
	invoker   Invoker
	component *engine.Component
	skillName string
	instName  string
	instance  *skill.Instance

	writablePaths []string
	instanceDir   string
}

// NewExecutor binds an Executor to one component/instance pair.
func NewExecutor(builder *Builder, invoker Invoker, component *engine.Component, skillName, instanceName string, instance *skill.Instance, writablePaths []string, instanceDir string) *Executor {
	return &Executor{
		builder:       builder,
		invoker:       invoker,
		component:     component,
		skillName:     skillName,
		instName:      instanceName,
		instance:      instance,
		writablePaths: writablePaths,
		instanceDir:   instanceDir,
	}
}

func (e *Executor) newStore(ctx context.Context) (*Store, error) {
	return e.builder.BuildStore(ctx, e.skillName, e.instName, e.instance, e.writablePaths, e.instanceDir)
}

// GetMetadata returns the skill's parsed metadata.
func (e *Executor) GetMetadata(ctx context.Context) (skill.Metadata, error) {
	store, err := e.newStore(ctx)
	if err != nil {
		return skill.Metadata{}, err
	}
	raw, err := e.invoker.Invoke(ctx, store, e.component, skill.ExportGetMetadata, "")
	if err != nil {
		return skill.Metadata{}, err
	}
	return skill.ParseMetadata(raw)
}

// GetTools returns the ordered sequence of Tool Definitions.
func (e *Executor) GetTools(ctx context.Context) ([]skill.ToolDefinition, error) {
	store, err := e.newStore(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := e.invoker.Invoke(ctx, store, e.component, skill.ExportGetTools, "")
	if err != nil {
		return nil, err
	}
	return skill.ParseTools(raw)
}

// ExecuteTool encodes args, invokes the export, and parses the discriminated
// union response. A denied sandbox capability during the underlying call
// surfaces as SandboxDenied; deadline expiry as Timeout.
func (e *Executor) ExecuteTool(ctx context.Context, toolName string, args []skill.KV) (*skill.ExecutionResult, error) {
	store, err := e.newStore(ctx)
	if err != nil {
		return nil, err
	}

	argsJSON, err := skill.EncodeArgs(args)
	if err != nil {
		return nil, err
	}

	raw, err := e.invoker.Invoke(ctx, store, e.component, skill.ExportExecuteTool+":"+toolName, argsJSON)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.Timeout, "execute_tool deadline exceeded", ctx.Err())
		}
		return nil, err
	}
	return skill.ParseExecutionResult(raw)
}

// ValidateConfig JSON-serializes the instance's config map and invokes the
// export, succeeding on ok and failing on err with the skill's message.
func (e *Executor) ValidateConfig(ctx context.Context) error {
	store, err := e.newStore(ctx)
	if err != nil {
		return err
	}

	configJSON, err := encodeConfig(e.instance)
	if err != nil {
		return err
	}

	raw, err := e.invoker.Invoke(ctx, store, e.component, skill.ExportValidateConfig, configJSON)
	if err != nil {
		return err
	}
	return skill.ParseValidateConfigResult(raw)
}

func encodeConfig(inst *skill.Instance) (string, error) {
	kvs := make([]skill.KV, 0, len(inst.Config))
	for k, v := range inst.Config {
		kvs = append(kvs, skill.KV{Key: k, Value: v.Value})
	}
	return skill.EncodeArgs(kvs)
}

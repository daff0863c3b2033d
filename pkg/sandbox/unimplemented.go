package sandbox

import (
	"context"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/engine"
)

// UnimplementedInvoker satisfies Invoker for deployments that have not wired
// in a component runtime yet. The runtime itself (wasmtime, wazero, a
// container host) is an external collaborator the core does not provide;
// this stub lets the rest of the service start and be exercised end to end
// before one is plugged in.
type UnimplementedInvoker struct{}

func (UnimplementedInvoker) Invoke(ctx context.Context, store *Store, component *engine.Component, export, input string) (string, error) {
	return "", apperr.New(apperr.BackendUnavailable, "no component runtime configured for "+component.CacheKey()+" export "+export)
}

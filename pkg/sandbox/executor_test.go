package sandbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/engine"
	"github.com/kubiyabot/skillrt/pkg/sandbox"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

type fakeInvoker struct {
	responses map[string]string
}

func (f *fakeInvoker) Invoke(ctx context.Context, store *sandbox.Store, c *engine.Component, export, input string) (string, error) {
	if r, ok := f.responses[export]; ok {
		return r, nil
	}
	return `{"err":"unknown export"}`, nil
}

func newTestExecutor(t *testing.T, responses map[string]string) *sandbox.Executor {
	t.Helper()
	builder := sandbox.NewBuilder(afero.NewMemMapFs())
	inv := &fakeInvoker{responses: responses}
	component := &engine.Component{SkillName: "kubernetes", Version: "1.0.0"}
	inst := &skill.Instance{
		Metadata: skill.InstanceMetadata{SkillName: "kubernetes", InstanceName: "prod"},
		Config:   map[string]skill.ConfigEntry{"kubeconfig": {Value: "/etc/kube/config"}},
		Resources: skill.ResourceLimits{
			CPULimit:    "1",
			MemoryLimit: "256m",
		},
	}
	return sandbox.NewExecutor(builder, inv, component, "kubernetes", "prod", inst, nil, "/instances/kubernetes/prod")
}

func TestExecutorGetMetadata(t *testing.T) {
	e := newTestExecutor(t, map[string]string{
		skill.ExportGetMetadata: `{"name":"kubernetes","version":"1.0.0","description":"d","author":"a"}`,
	})
	m, err := e.GetMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kubernetes", m.Name)
}

func TestExecutorGetTools(t *testing.T) {
	e := newTestExecutor(t, map[string]string{
		skill.ExportGetTools: `[{"name":"apply","description":"apply manifest","parameters":[{"name":"file","paramType":"file","required":true}]}]`,
	})
	tools, err := e.GetTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "apply", tools[0].Name)
}

func TestExecutorExecuteToolSuccess(t *testing.T) {
	e := newTestExecutor(t, map[string]string{
		skill.ExportExecuteTool + ":apply": `{"ok":{"success":true,"output":"applied"}}`,
	})
	res, err := e.ExecuteTool(context.Background(), "apply", []skill.KV{{Key: "namespace", Value: "prod"}})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestExecutorExecuteToolSkillError(t *testing.T) {
	e := newTestExecutor(t, map[string]string{
		skill.ExportExecuteTool + ":apply": `{"err":"namespace not found"}`,
	})
	res, err := e.ExecuteTool(context.Background(), "apply", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "namespace not found", res.ErrorMessage)
}

func TestExecutorValidateConfig(t *testing.T) {
	e := newTestExecutor(t, map[string]string{
		skill.ExportValidateConfig: `{"ok":{}}`,
	})
	assert.NoError(t, e.ValidateConfig(context.Background()))
}

func TestNetworkPolicyAllows(t *testing.T) {
	p := sandbox.NetworkPolicy{
		Enabled:   true,
		Blocklist: []string{"evil.com"},
		Allowlist: []string{"*.github.com"},
	}
	assert.True(t, p.Allows("api.github.com"))
	assert.False(t, p.Allows("evil.com"))
	assert.False(t, p.Allows("example.com"))

	disabled := sandbox.NetworkPolicy{Enabled: false}
	assert.False(t, disabled.Allows("api.github.com"))
}

func TestBuildStoreRespectsContextDeadline(t *testing.T) {
	builder := sandbox.NewBuilder(afero.NewMemMapFs())
	inst := &skill.Instance{Resources: skill.ResourceLimits{CPULimit: "1", MemoryLimit: "256m"}}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := builder.BuildStore(ctx, "s", "i", inst, nil, "/instances/s/i")
	assert.Error(t, err)
}

package instance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/instance"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

func sampleInstance(skillName, instanceName string) *skill.Instance {
	return &skill.Instance{
		Metadata: skill.InstanceMetadata{SkillName: skillName, InstanceName: instanceName, Version: "1.0.0"},
		Config: map[string]skill.ConfigEntry{
			"kubeconfig": {Value: "/etc/kube/config"},
			"token":      {Value: "secret", IsSecret: true},
		},
		Resources: skill.ResourceLimits{CPULimit: "1", MemoryLimit: "256m"},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s, err := instance.New(t.TempDir())
	require.NoError(t, err)

	inst := sampleInstance("kubernetes", "prod")
	require.NoError(t, s.Save(inst))
	assert.True(t, s.Exists("kubernetes", "prod"))

	loaded, err := s.Load("kubernetes", "prod")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", loaded.Metadata.Version)
	assert.Equal(t, "/etc/kube/config", loaded.Config["kubeconfig"].Value)
	assert.True(t, loaded.Config["token"].IsSecret)
}

func TestSaveRejectsMissingKey(t *testing.T) {
	s, err := instance.New(t.TempDir())
	require.NoError(t, err)

	err = s.Save(&skill.Instance{})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestDelete(t *testing.T) {
	s, err := instance.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(sampleInstance("kubernetes", "prod")))
	require.NoError(t, s.Delete("kubernetes", "prod"))
	assert.False(t, s.Exists("kubernetes", "prod"))

	err = s.Delete("kubernetes", "prod")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestList(t *testing.T) {
	s, err := instance.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(sampleInstance("kubernetes", "prod")))
	require.NoError(t, s.Save(sampleInstance("kubernetes", "staging")))
	require.NoError(t, s.Save(sampleInstance("github", "ci")))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "github", list[0].Metadata.SkillName)
	assert.Equal(t, "kubernetes", list[1].Metadata.SkillName)
	assert.Equal(t, "prod", list[1].Metadata.InstanceName)
}

func TestLoadNotFound(t *testing.T) {
	s, err := instance.New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load("kubernetes", "missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

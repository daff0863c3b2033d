package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMergesParentAndChild(t *testing.T) {
	s := openTestStorage(t)

	parent := New("base")
	parent.ID = "base"
	parent.Env["REGION"] = "us-east-1"
	parent.Resources.MemoryLimit = "512m"
	require.NoError(t, s.Save(parent))

	child := Inheriting("override", "base")
	child.ID = "override"
	child.Env["STAGE"] = "prod"
	child.Resources.CPULimit = "2"
	require.NoError(t, s.Save(child))

	merged, err := s.Resolve("override")
	require.NoError(t, err)

	assert.Equal(t, "override", merged.ID)
	assert.Equal(t, "us-east-1", merged.Env["REGION"])
	assert.Equal(t, "prod", merged.Env["STAGE"])
	assert.Equal(t, "512m", merged.Resources.MemoryLimit)
	assert.Equal(t, "2", merged.Resources.CPULimit)
}

func TestResolveChildOverridesParent(t *testing.T) {
	s := openTestStorage(t)

	parent := New("base")
	parent.ID = "base"
	parent.Env["LEVEL"] = "parent"
	require.NoError(t, s.Save(parent))

	child := Inheriting("child", "base")
	child.ID = "child"
	child.Env["LEVEL"] = "child"
	require.NoError(t, s.Save(child))

	merged, err := s.Resolve("child")
	require.NoError(t, err)
	assert.Equal(t, "child", merged.Env["LEVEL"])
}

func TestResolveThreeGenerations(t *testing.T) {
	s := openTestStorage(t)

	grandparent := New("grandparent")
	grandparent.ID = "gp"
	grandparent.Env["A"] = "gp"
	require.NoError(t, s.Save(grandparent))

	parent := Inheriting("parent", "gp")
	parent.ID = "p"
	parent.Env["B"] = "p"
	require.NoError(t, s.Save(parent))

	child := Inheriting("child", "p")
	child.ID = "c"
	child.Env["C"] = "c"
	require.NoError(t, s.Save(child))

	merged, err := s.Resolve("c")
	require.NoError(t, err)
	assert.Equal(t, "gp", merged.Env["A"])
	assert.Equal(t, "p", merged.Env["B"])
	assert.Equal(t, "c", merged.Env["C"])
}

func TestSaveRejectsSelfCycle(t *testing.T) {
	s := openTestStorage(t)

	ctx := New("self")
	ctx.ID = "self"
	ctx.ParentID = "self"

	err := s.Save(ctx)
	assert.Error(t, err)
}

func TestSaveRejectsUnknownParent(t *testing.T) {
	s := openTestStorage(t)

	ctx := Inheriting("orphan", "does-not-exist")
	ctx.ID = "orphan"

	err := s.Save(ctx)
	assert.Error(t, err)
}

func TestSaveRejectsIndirectCycle(t *testing.T) {
	s := openTestStorage(t)

	a := New("a")
	a.ID = "a"
	require.NoError(t, s.Save(a))

	b := Inheriting("b", "a")
	b.ID = "b"
	require.NoError(t, s.Save(b))

	// now try to make "a" inherit from "b", closing a cycle a -> b -> a
	a.ParentID = "b"
	err := s.Save(a)
	assert.Error(t, err)
}

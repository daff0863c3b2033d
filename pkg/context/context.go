package context

import (
	"time"

	"github.com/google/uuid"

	"github.com/kubiyabot/skillrt/pkg/skill"
)

// New builds a root Execution Context (no parent) with a generated id.
func New(name string) *skill.ExecutionContext {
	now := time.Now()
	return &skill.ExecutionContext{
		ID:        uuid.NewString(),
		Name:      name,
		Env:       map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Inheriting builds a child Execution Context that inherits from parentID.
func Inheriting(name, parentID string) *skill.ExecutionContext {
	ctx := New(name)
	ctx.ParentID = parentID
	return ctx
}

// Touch updates UpdatedAt to now, matching context.rs's touch().
func Touch(ctx *skill.ExecutionContext) {
	ctx.UpdatedAt = time.Now()
}

// WithTag adds a tag if not already present and touches the context.
func WithTag(ctx *skill.ExecutionContext, tag string) {
	for _, t := range ctx.Tags {
		if t == tag {
			return
		}
	}
	ctx.Tags = append(ctx.Tags, tag)
	Touch(ctx)
}

package context

import (
	"dario.cat/mergo"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

const maxInheritanceDepth = 64

// Resolve loads id and materializes the transitive merge of every ancestor
// it inherits from, root first, each child's fields overriding its
// parent's. The merged result's ID/Name/Description/ParentID always come
// from id's own context, never an ancestor's.
func (s *Storage) Resolve(id string) (*skill.ExecutionContext, error) {
	chain, err := s.ancestorChain(id)
	if err != nil {
		return nil, err
	}

	merged := &skill.ExecutionContext{
		Env: map[string]string{},
	}
	merged.Overrides.ComponentRuntime = map[string]string{}
	merged.Overrides.Container = map[string]string{}
	merged.Overrides.Native = map[string]string{}

	// chain is root-first; merge each successive (more specific) layer on
	// top, with WithOverride so child values replace parent values.
	for _, ctx := range chain {
		layer := cloneContext(ctx)
		if err := mergo.Merge(merged, layer, mergo.WithOverride); err != nil {
			return nil, apperr.Wrap(apperr.InvalidInput, "merge execution context chain", err)
		}
	}

	leaf := chain[len(chain)-1]
	merged.ID = leaf.ID
	merged.Name = leaf.Name
	merged.Description = leaf.Description
	merged.ParentID = leaf.ParentID
	merged.CreatedAt = leaf.CreatedAt
	merged.UpdatedAt = leaf.UpdatedAt

	return merged, nil
}

// ancestorChain returns id's inheritance chain, root ancestor first and id
// itself last, erroring if the chain exceeds maxInheritanceDepth (a proxy
// for a cycle, since a legitimate DAG of that depth is not expected) or if
// id revisits an ancestor already seen.
func (s *Storage) ancestorChain(id string) ([]*skill.ExecutionContext, error) {
	var chain []*skill.ExecutionContext
	seen := map[string]bool{}
	current := id

	for depth := 0; ; depth++ {
		if depth > maxInheritanceDepth {
			return nil, apperr.Newf(apperr.InvalidInput, "execution context inheritance too deep starting from %q", id)
		}
		if seen[current] {
			return nil, apperr.Newf(apperr.InvalidInput, "cycle detected in execution context inheritance at %q", current)
		}
		seen[current] = true

		ctx, err := s.Load(current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, ctx)

		if ctx.ParentID == "" {
			break
		}
		current = ctx.ParentID
	}

	// reverse into root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// CheckCycle verifies that saving ctx would not introduce a cycle into the
// inheritance graph, without persisting anything. Storage.Save calls this
// before writing.
func (s *Storage) CheckCycle(ctx *skill.ExecutionContext) error {
	if ctx.ParentID == "" {
		return nil
	}
	if ctx.ParentID == ctx.ID {
		return apperr.Newf(apperr.InvalidInput, "execution context %q cannot inherit from itself", ctx.ID)
	}

	seen := map[string]bool{ctx.ID: true}
	current := ctx.ParentID
	for depth := 0; ; depth++ {
		if depth > maxInheritanceDepth {
			return apperr.Newf(apperr.InvalidInput, "execution context inheritance too deep starting from %q", ctx.ID)
		}
		if seen[current] {
			return apperr.Newf(apperr.InvalidInput, "saving %q would create an inheritance cycle at %q", ctx.ID, current)
		}
		seen[current] = true

		parent, err := s.Load(current)
		if err != nil {
			if apperr.KindOf(err) == apperr.NotFound {
				return apperr.Newf(apperr.InvalidInput, "execution context %q inherits from unknown parent %q", ctx.ID, current)
			}
			return err
		}
		if parent.ParentID == "" {
			return nil
		}
		current = parent.ParentID
	}
}

func cloneContext(ctx *skill.ExecutionContext) *skill.ExecutionContext {
	clone := *ctx

	clone.Env = make(map[string]string, len(ctx.Env))
	for k, v := range ctx.Env {
		clone.Env[k] = v
	}

	clone.Overrides.ComponentRuntime = cloneMap(ctx.Overrides.ComponentRuntime)
	clone.Overrides.Container = cloneMap(ctx.Overrides.Container)
	clone.Overrides.Native = cloneMap(ctx.Overrides.Native)

	clone.Resources.AllowedHosts = append([]string(nil), ctx.Resources.AllowedHosts...)
	clone.Resources.BlockedHosts = append([]string(nil), ctx.Resources.BlockedHosts...)
	clone.Resources.DNSServers = append([]string(nil), ctx.Resources.DNSServers...)

	clone.Tags = append([]string(nil), ctx.Tags...)

	return &clone
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

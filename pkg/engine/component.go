// Package engine implements the Skill Execution Engine (spec section 4.1):
// component loading, validation, and a compiled-artifact cache keyed by
// (skill, version, runtime tag).
package engine

import (
	"time"
)

// Component is a loaded, validated component artifact ready to be
// instantiated by the sandbox builder for each invocation.
type Component struct {
	SkillName  string
	Version    string
	RuntimeTag string
	Bytes      []byte
	LoadedAt   time.Time

	// exports records which of the four required exports were found during
	// validation, keyed by export name.
	exports map[string]bool
}

// CacheKey returns the {skill}_{version}_{runtime-tag} cache key (spec 4.1).
func (c *Component) CacheKey() string {
	return cacheKey(c.SkillName, c.Version, c.RuntimeTag)
}

func cacheKey(skillName, version, runtimeTag string) string {
	return skillName + "_" + version + "_" + runtimeTag
}

// HasExport reports whether a named export was confirmed present by
// ValidateComponent.
func (c *Component) HasExport(name string) bool {
	return c.exports[name]
}

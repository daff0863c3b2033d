// Package skill defines the core data model shared by the execution engine,
// sandbox, retrieval pipeline, and job scheduler: Skill, Instance, Execution
// Context, Secret, Embedded Document, Search Result, Skill Checksum, and the
// wire types of the four-operation skill ABI.
package skill

import "time"

// Origin describes where a Skill's component artifact came from.
type Origin struct {
	Kind string // "local" | "git" | "registry"
	Ref  string // local path, git URL+ref, or registry identifier
}

// Skill is an installed, immutable component artifact.
type Skill struct {
	Name    string
	Version string
	Origin  Origin

	InstalledAt time.Time
	ArtifactExt string // e.g. "wasm"
}

// ParamType is the set of parameter types a Tool Definition may declare.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamFile    ParamType = "file"
	ParamJSON    ParamType = "json"
	ParamArray   ParamType = "array"
)

// ToolParameter describes one parameter of a Tool Definition.
type ToolParameter struct {
	Name         string    `json:"name"`
	Type         ParamType `json:"paramType"`
	Description  string    `json:"description"`
	Required     bool      `json:"required"`
	DefaultValue *string   `json:"defaultValue,omitempty"`
	AllowedValues []string `json:"allowedValues,omitempty"`
}

// ToolDefinition is one tool exposed by a skill's get-tools export.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Streaming   bool            `json:"streaming"`
}

// Metadata is the parsed result of a skill's get-metadata export.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Repository  string `json:"repository,omitempty"`
	License     string `json:"license,omitempty"`
}

// ExecutionResult is the parsed, discriminated-union result of execute-tool.
type ExecutionResult struct {
	Success      bool              `json:"success"`
	Output       string            `json:"output"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ConfigEntry is one value in an Instance's config map, flagged secret or not.
type ConfigEntry struct {
	Value    string `toml:"value"`
	IsSecret bool   `toml:"is_secret"`
}

// ResourceLimits caps CPU, memory, network, filesystem, and execution time
// for a sandboxed invocation.
type ResourceLimits struct {
	CPULimit        string   `toml:"cpu_limit,omitempty"`
	MemoryLimit     string   `toml:"memory_limit,omitempty"`
	MaxFileSize     string   `toml:"max_file_size,omitempty"`
	MaxDiskUsage    string   `toml:"max_disk_usage,omitempty"`
	NetworkEnabled  bool     `toml:"network_enabled"`
	AllowedHosts    []string `toml:"allowed_hosts,omitempty"`
	BlockedHosts    []string `toml:"blocked_hosts,omitempty"`
	DNSServers      []string `toml:"dns_servers,omitempty"`
	ExecutionTimeMs int      `toml:"execution_time_ms,omitempty"`
}

// RuntimeOverrides tunes the component runtime, container, or native
// execution backend for an Instance beyond its ResourceLimits.
type RuntimeOverrides struct {
	ComponentRuntime map[string]string `toml:"component_runtime,omitempty"`
	Container        map[string]string `toml:"container,omitempty"`
	Native           map[string]string `toml:"native,omitempty"`
	InheritEnv       bool              `toml:"inherit_env"`
}

// InstanceMetadata records identity and provenance of an Instance.
type InstanceMetadata struct {
	SkillName    string    `toml:"skill_name"`
	InstanceName string    `toml:"instance_name"`
	Version      string    `toml:"version"`
	CreatedAt    time.Time `toml:"created_at"`
}

// Instance is a named configuration binding for a Skill. The pair
// (SkillName, InstanceName) must be unique across all instances.
type Instance struct {
	Metadata         InstanceMetadata          `toml:"metadata"`
	Config           map[string]ConfigEntry    `toml:"config,omitempty"`
	Resources        ResourceLimits            `toml:"resources"`
	RuntimeOverrides RuntimeOverrides          `toml:"runtime_overrides"`
}

// Key returns the unique identity tuple for this instance.
func (i *Instance) Key() (skillName, instanceName string) {
	return i.Metadata.SkillName, i.Metadata.InstanceName
}

// ExecutionContext is a reusable, optionally inheriting configuration
// bundle. Inheritance forms a DAG without cycles, enforced at save time.
type ExecutionContext struct {
	ID          string            `toml:"id"`
	Name        string            `toml:"name"`
	Description string            `toml:"description,omitempty"`
	ParentID    string            `toml:"inherits_from,omitempty"`
	Resources   ResourceLimits    `toml:"resources"`
	Overrides   RuntimeOverrides  `toml:"overrides"`
	Env         map[string]string `toml:"env,omitempty"`
	Tags        []string          `toml:"tags,omitempty"`
	CreatedAt   time.Time         `toml:"created_at"`
	UpdatedAt   time.Time         `toml:"updated_at"`
}

// DistanceMetric selects the similarity function used by a vector store.
type DistanceMetric string

const (
	Cosine    DistanceMetric = "cosine"
	Euclidean DistanceMetric = "euclidean"
	DotProduct DistanceMetric = "dot"
)

// DocumentMetadata is the structured metadata carried by an Embedded Document.
type DocumentMetadata struct {
	SkillName    string
	InstanceName string
	ToolName     string
	Category     string
	Tags         []string
	Custom       map[string]string
}

// EmbeddedDocument is one indexable unit: a tool, or a logical chunk of
// SKILL.md, together with its embedding vector.
type EmbeddedDocument struct {
	ID       string
	Vector   []float32
	Metadata DocumentMetadata
	Content  string // optional
}

// SearchResult is a single ranked hit. Scores are higher-is-better and
// comparable only within a single query response.
type SearchResult struct {
	ID       string
	Score    float32
	Metadata DocumentMetadata
	Content  string
}

// SkillChecksum records the content hashes used to decide whether a skill
// needs re-indexing.
type SkillChecksum struct {
	SkillMDHash    string
	WASMHash       string
	ManifestHash   string
	IndexedAt      time.Time
}

// JobStatus is one state in a Job's lifecycle.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobRetrying  JobStatus = "retrying"
)

// Job is one unit of work in the Background Job Scheduler's durable queue.
type Job struct {
	ID          string
	JobType     string
	Payload     []byte
	Status      JobStatus
	Attempts    int
	MaxRetries  int
	CreatedAt   time.Time
	ScheduledAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	LastError   string
	Result      []byte
}

// GeneratedExample is one LLM-synthesized CLI usage example.
type GeneratedExample struct {
	Command     string
	Explanation string
	Confidence  float32
	Validated   bool
	Category    string
	Parameters  map[string]string
}

// Package config provides configuration management for the skill runtime service.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kubiyabot/skillrt/internal/fileutil"
)

// Config represents the service configuration.
type Config struct {
	Service    ServiceConfig    `toml:"service"`
	API        APIConfig        `toml:"api"`
	MCP        MCPConfig        `toml:"mcp"`
	Runtime    RuntimeConfig    `toml:"runtime"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Jobs       JobsConfig       `toml:"jobs"`
	Generation GenerationConfig `toml:"generation"`
	Logging    LoggingConfig    `toml:"logging"`
	Security   SecurityConfig   `toml:"security"`
}

// ServiceConfig contains service-level settings.
type ServiceConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	DataDir         string `toml:"data_dir"`
	PIDFile         string `toml:"pid_file"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds"`
	MaxRequestSize  int64  `toml:"max_request_size_bytes"`
}

// APIConfig contains API settings.
type APIConfig struct {
	Enabled        bool     `toml:"enabled"`
	APIKey         string   `toml:"api_key"`
	RateLimit      int      `toml:"rate_limit_per_minute"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RequestTimeout int      `toml:"request_timeout_seconds"`
}

// MCPConfig contains MCP tool-surface settings (the thin boundary adapter
// exposing the skill ABI over MCP; transport framing itself is out of scope).
type MCPConfig struct {
	Enabled        bool `toml:"enabled"`
	AutoBuildIndex bool `toml:"auto_build_index"`
}

// RuntimeConfig contains Execution Engine / Sandbox defaults (spec §4.1-4.2).
type RuntimeConfig struct {
	RuntimeTag        string   `toml:"runtime_tag"`
	ComponentCacheDir string   `toml:"component_cache_dir"`
	DefaultTimeoutMs  int      `toml:"default_timeout_ms"`
	DefaultCPULimit   string   `toml:"default_cpu_limit"`
	DefaultMemLimit   string   `toml:"default_memory_limit"`
	NetworkEnabled    bool     `toml:"network_enabled_default"`
	DNSServers        []string `toml:"dns_servers"`
}

// RetrievalConfig contains Retrieval Pipeline and Vector Store defaults (spec §4.3-4.4).
type RetrievalConfig struct {
	Backend          string  `toml:"backend"` // "memory" | "file" | "remote"
	StorePath        string  `toml:"store_path"`
	RemoteURL        string  `toml:"remote_url"`
	RemoteAPIKey     string  `toml:"remote_api_key"`
	DistanceMetric   string  `toml:"distance_metric"` // "cosine" | "euclidean" | "dot"
	EmbeddingModel   string  `toml:"embedding_model"`
	EmbeddingDims    int     `toml:"embedding_dimensions"`
	HybridEnabled    bool    `toml:"hybrid_enabled"`
	DenseWeight      float64 `toml:"dense_weight"`
	SparseWeight     float64 `toml:"sparse_weight"`
	FusionMethod     string  `toml:"fusion_method"` // "rrf" | "weighted_sum" | "max_score"
	RRFK             int     `toml:"rrf_k"`
	TopK1            int     `toml:"top_k1"`
	RerankEnabled    bool    `toml:"rerank_enabled"`
	RerankModel      string  `toml:"rerank_model"`
	TopK2            int     `toml:"top_k2"`
	TopK3            int     `toml:"top_k3"`
	CompressStrategy string  `toml:"compression_strategy"` // extractive|template|progressive|none
	MaxTokensPerItem int     `toml:"max_tokens_per_result"`
	MaxTotalTokens   int     `toml:"max_total_tokens"`
}

// JobsConfig contains Worker Pool defaults (spec §4.6).
type JobsConfig struct {
	NumWorkers         int `toml:"num_workers"`
	Concurrency        int `toml:"concurrency_per_worker"`
	PollIntervalMs     int `toml:"poll_interval_ms"`
	TimeoutSecs        int `toml:"timeout_seconds"`
	MaxRetries         int `toml:"max_retries"`
	BaseDelaySecs      int `toml:"base_delay_seconds"`
	HeartbeatSecs      int `toml:"heartbeat_interval_seconds"`
	ProgressBufferSize int `toml:"progress_buffer_size"`
}

// GenerationConfig contains Generation Pipeline and LLM adapter settings (spec §4.7).
type GenerationConfig struct {
	Provider            string  `toml:"provider"`
	APIKey              string  `toml:"api_key"`
	Model               string  `toml:"model"`
	MaxTokens           int     `toml:"max_tokens"`
	Temperature         float64 `toml:"temperature"`
	TimeoutSecs         int     `toml:"timeout_seconds"`
	MaxRetries          int     `toml:"max_retries"`
	MaxExistingExamples int     `toml:"max_existing_examples"`
	DiversityThreshold  float64 `toml:"diversity_threshold"`
	StrictValidation    bool    `toml:"strict_validation"`
	// FallbackProvider, when set to "ollama" alongside an "anthropic"
	// Provider, builds an llm.MultiProvider so generation survives an
	// Anthropic outage by falling back to a local Ollama model.
	FallbackProvider string `toml:"fallback_provider"`
	FallbackModel    string `toml:"fallback_model"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string      `toml:"level"`
	Format     string      `toml:"format"`
	Output     StringSlice `toml:"output"`
	TimeFormat string      `toml:"time_format"`
	MaxSizeMB  int         `toml:"max_size_mb"`
	MaxBackups int         `toml:"max_backups"`
	MaxAgeDays int         `toml:"max_age_days"`
	Compress   bool        `toml:"compress"`
}

// StringSlice is a custom type that can unmarshal from either a string or []string.
type StringSlice []string

// UnmarshalTOML implements toml.Unmarshaler for flexible config parsing.
func (s *StringSlice) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*s = []string{v}
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string in array, got %T", item)
			}
			result[i] = str
		}
		*s = result
	default:
		return fmt.Errorf("expected string or array, got %T", data)
	}
	return nil
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	TLSEnabled  bool   `toml:"tls_enabled"`
	TLSCertFile string `toml:"tls_cert_file"`
	TLSKeyFile  string `toml:"tls_key_file"`
	CORSEnabled bool   `toml:"cors_enabled"`
}

// DefaultConfig returns the default configuration with all values set.
// Environment variables SKILLRT_HOST and SKILLRT_PORT can override defaults.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()

	host := "127.0.0.1"
	if envHost := os.Getenv("SKILLRT_HOST"); envHost != "" {
		host = envHost
	}

	port := 8420
	if envPort := os.Getenv("SKILLRT_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		} else {
			// An unparseable value is kept invalid so Validate rejects it.
			port = 0
		}
	}

	return &Config{
		Service: ServiceConfig{
			Host:            host,
			Port:            port,
			DataDir:         dataDir,
			PIDFile:         filepath.Join(dataDir, "skillrt.pid"),
			ShutdownTimeout: 30,
			MaxRequestSize:  10 * 1024 * 1024,
		},
		API: APIConfig{
			Enabled:        true,
			APIKey:         "",
			RateLimit:      100,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			RequestTimeout: 60,
		},
		MCP: MCPConfig{
			Enabled:        true,
			AutoBuildIndex: true,
		},
		Runtime: RuntimeConfig{
			RuntimeTag:        "v1",
			ComponentCacheDir: filepath.Join(dataDir, "cache", "components"),
			DefaultTimeoutMs:  30000,
			DefaultCPULimit:   "1",
			DefaultMemLimit:   "512m",
			NetworkEnabled:    false,
			DNSServers:        []string{},
		},
		Retrieval: RetrievalConfig{
			Backend:          "file",
			StorePath:        filepath.Join(dataDir, "vectors", "store.bin"),
			DistanceMetric:   "cosine",
			EmbeddingModel:   "nomic-embed-text-v1.5",
			EmbeddingDims:    768,
			HybridEnabled:    true,
			DenseWeight:      0.6,
			SparseWeight:     0.4,
			FusionMethod:     "rrf",
			RRFK:             60,
			TopK1:            100,
			RerankEnabled:    false,
			RerankModel:      "",
			TopK2:            20,
			TopK3:            5,
			CompressStrategy: "template",
			MaxTokensPerItem: 200,
			MaxTotalTokens:   800,
		},
		Jobs: JobsConfig{
			NumWorkers:         4,
			Concurrency:        2,
			PollIntervalMs:     500,
			TimeoutSecs:        300,
			MaxRetries:         3,
			BaseDelaySecs:      5,
			HeartbeatSecs:      30,
			ProgressBufferSize: 64,
		},
		Generation: GenerationConfig{
			Provider:            "gemini",
			APIKey:              os.Getenv("GEMINI_API_KEY"),
			Model:               "gemini-1.5-flash",
			MaxTokens:           1024,
			Temperature:         0.3,
			TimeoutSecs:         30,
			MaxRetries:          3,
			MaxExistingExamples: 3,
			DiversityThreshold:  0.3,
			StrictValidation:    false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     StringSlice{"file"},
			TimeFormat: "15:04:05.000",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Security: SecurityConfig{
			TLSEnabled:  false,
			TLSCertFile: "",
			TLSKeyFile:  "",
			CORSEnabled: true,
		},
	}
}

// DefaultDataDir returns the default data directory based on OS.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "skillrt")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "skillrt")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "skillrt")
	default:
		xdgData := os.Getenv("XDG_DATA_HOME")
		if xdgData != "" {
			return filepath.Join(xdgData, "skillrt")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".skillrt")
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// Load loads configuration from a file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFromString loads configuration from a TOML string, merging with defaults.
func LoadFromString(tomlStr string) (*Config, error) {
	cfg := DefaultConfig()

	expanded := os.ExpandEnv(tomlStr)

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config string: %w", err)
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// expandPaths expands tilde in path fields.
func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()

	expandTilde := func(path string) string {
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(home, path[2:])
		}
		return path
	}

	c.Service.DataDir = expandTilde(c.Service.DataDir)
	c.Service.PIDFile = expandTilde(c.Service.PIDFile)
	c.Runtime.ComponentCacheDir = expandTilde(c.Runtime.ComponentCacheDir)
	c.Retrieval.StorePath = expandTilde(c.Retrieval.StorePath)
	c.Security.TLSCertFile = expandTilde(c.Security.TLSCertFile)
	c.Security.TLSKeyFile = expandTilde(c.Security.TLSKeyFile)
}

// Save saves the configuration to a file in TOML format.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

// Address returns the full address string for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.Port)
}

// RegistryDir returns the path to the installed-skill registry.
func (c *Config) RegistryDir() string {
	return filepath.Join(c.Service.DataDir, "registry")
}

// InstancesDir returns the path to instance configuration storage.
func (c *Config) InstancesDir() string {
	return filepath.Join(c.Service.DataDir, "instances")
}

// ContextsDir returns the path to Execution Context storage.
func (c *Config) ContextsDir() string {
	return filepath.Join(c.Service.DataDir, "contexts")
}

// IndexMetadataPath returns the path to the Index Manager's metadata file.
func (c *Config) IndexMetadataPath() string {
	return filepath.Join(c.Service.DataDir, "index", "index_metadata.json")
}

// JobsDBPath returns the path to the durable job queue store.
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.Service.DataDir, "jobs.db")
}

// AnalyticsDBPath returns the path to the search/feedback analytics store.
func (c *Config) AnalyticsDBPath() string {
	return filepath.Join(c.Service.DataDir, "analytics.db")
}

// LogPath returns the path to the service log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Service.DataDir, "logs", "skillrt.log")
}

// PIDPath returns the path to the PID file.
func (c *Config) PIDPath() string {
	if c.Service.PIDFile != "" {
		return c.Service.PIDFile
	}
	return filepath.Join(c.Service.DataDir, "skillrt.pid")
}

// EnsureDirectories creates all necessary directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Service.DataDir,
		c.RegistryDir(),
		c.InstancesDir(),
		c.ContextsDir(),
		c.Runtime.ComponentCacheDir,
		filepath.Dir(c.Retrieval.StorePath),
		filepath.Dir(c.IndexMetadataPath()),
		filepath.Dir(c.LogPath()),
	}

	for _, dir := range dirs {
		if err := fileutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ContextHash generates a stable identifier for a context from its name.
// Returns the first 16 characters of the SHA256 hash.
func ContextHash(name string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(name)))
	return hex.EncodeToString(h[:])[:16]
}

// Validate validates the configuration and returns any errors. Invalid
// values reject rather than silently falling back (spec section 6).
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Service.Port)
	}

	if c.Service.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout_seconds must be at least 1")
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("rate_limit_per_minute cannot be negative")
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0.0 and 1.0")
	}

	if c.Retrieval.HybridEnabled {
		sum := c.Retrieval.DenseWeight + c.Retrieval.SparseWeight
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("dense_weight + sparse_weight must equal 1.0, got %f", sum)
		}
	}

	switch c.Retrieval.DistanceMetric {
	case "cosine", "euclidean", "dot":
	default:
		return fmt.Errorf("invalid distance_metric: %q", c.Retrieval.DistanceMetric)
	}

	switch c.Retrieval.Backend {
	case "memory", "file", "remote":
	default:
		return fmt.Errorf("invalid retrieval backend: %q", c.Retrieval.Backend)
	}

	if c.Retrieval.Backend == "remote" && c.Retrieval.RemoteURL == "" {
		return fmt.Errorf("retrieval backend \"remote\" requires remote_url")
	}

	if c.Jobs.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be at least 1")
	}

	if c.Jobs.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	if c.Security.TLSEnabled {
		if c.Security.TLSCertFile == "" || c.Security.TLSKeyFile == "" {
			return fmt.Errorf("TLS enabled but cert/key files not specified")
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	clone.API.AllowedOrigins = make([]string, len(c.API.AllowedOrigins))
	copy(clone.API.AllowedOrigins, c.API.AllowedOrigins)

	clone.Runtime.DNSServers = make([]string, len(c.Runtime.DNSServers))
	copy(clone.Runtime.DNSServers, c.Runtime.DNSServers)

	clone.Logging.Output = make(StringSlice, len(c.Logging.Output))
	copy(clone.Logging.Output, c.Logging.Output)

	return &clone
}

// Package main provides the entry point for skillrtd.
//
// skillrtd hosts the skill runtime: it loads skill components into the
// Execution Engine, builds sandboxed instances, serves the HTTP API and MCP
// tool surface, runs the retrieval pipeline, and drains the background job
// queue.
//
// Usage:
//
//	skillrtd                  Start the service (default)
//	skillrtd serve            Start the service
//	skillrtd mcp              Start the MCP server (stdio mode)
//	skillrtd version          Show version
//	skillrtd init-config      Write a default configuration file
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"google.golang.org/genai"

	"github.com/kubiyabot/skillrt/internal/api"
	"github.com/kubiyabot/skillrt/internal/config"
	"github.com/kubiyabot/skillrt/internal/logger"
	"github.com/kubiyabot/skillrt/internal/mcp"
	skillctx "github.com/kubiyabot/skillrt/pkg/context"
	"github.com/kubiyabot/skillrt/pkg/engine"
	"github.com/kubiyabot/skillrt/pkg/generation"
	"github.com/kubiyabot/skillrt/pkg/indexmgr"
	"github.com/kubiyabot/skillrt/pkg/instance"
	"github.com/kubiyabot/skillrt/pkg/jobs"
	"github.com/kubiyabot/skillrt/pkg/llm"
	"github.com/kubiyabot/skillrt/pkg/retrieval"
	"github.com/kubiyabot/skillrt/pkg/sandbox"
	"github.com/kubiyabot/skillrt/pkg/skill"
	"github.com/kubiyabot/skillrt/pkg/vectorstore"
)

// version is set via -ldflags at build time.
var version = "dev"

var configPath string

func main() {
	api.SetVersion(version)

	args := os.Args[1:]
	command := ""
	cmdArgs := []string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "-"):
			// unknown flag, ignored
		case command == "":
			command = arg
		default:
			cmdArgs = append(cmdArgs, arg)
		}
	}

	if command == "" {
		command = "serve"
	}

	var err error
	switch command {
	case "serve", "start":
		err = cmdServe(cmdArgs)
	case "mcp", "mcp-server":
		err = cmdMCP()
	case "version", "-v", "--version":
		fmt.Printf("skillrtd version %s\n", version)
	case "init-config":
		err = cmdInitConfig()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`skillrtd - universal plugin skill runtime

Usage:
  skillrtd [flags] [command] [args]

Commands:
  serve         Start the service (default)
  mcp           Start the MCP server (stdio mode)
  version       Show version information
  init-config   Write a default configuration file
  help          Show this help

Flags:
  --config PATH   Path to configuration file (default: ~/.skillrt/config.toml)

Environment:
  GEMINI_API_KEY   API key for the embedding and rerank backends
  SKILLRT_CONFIG   Path to configuration file (alternative to --config)
  SKILLRT_DATA_DIR Override data directory`)
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("SKILLRT_CONFIG"); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dir := os.Getenv("SKILLRT_DATA_DIR"); dir != "" {
		cfg.Service.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create data directories: %w", err)
	}
	return cfg, nil
}

// components bundles everything main wires up, shared between serve and mcp.
type components struct {
	cfg       *config.Config
	fs        afero.Fs
	registry  *api.Registry
	contexts  *skillctx.Storage
	jobStore  jobs.Storage
	idxMgr    *indexmgr.Manager
	pipeline  *retrieval.Pipeline
	generator *generation.Generator
}

func buildComponents(cfg *config.Config) (*components, func(), error) {
	log := logger.SetupLogger(cfg)

	fs := afero.NewOsFs()

	eng := engine.New(cfg.Runtime.ComponentCacheDir, cfg.Runtime.RuntimeTag)
	builder := sandbox.NewBuilder(fs)

	instances, err := instance.New(cfg.InstancesDir())
	if err != nil {
		return nil, nil, fmt.Errorf("open instance storage: %w", err)
	}
	registry := api.NewRegistry(eng, builder, sandbox.UnimplementedInvoker{}, instances, cfg.InstancesDir())

	contexts, err := skillctx.NewStorage(cfg.ContextsDir())
	if err != nil {
		return nil, nil, fmt.Errorf("open context storage: %w", err)
	}

	jobStore, err := jobs.OpenBoltStorage(cfg.JobsDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open job storage: %w", err)
	}

	var genaiClient *genai.Client
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		ctx := context.Background()
		genaiClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to create genai client, retrieval rerank/embedding disabled")
		}
	}

	vstore, err := buildVectorStore(fs, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build vector store: %w", err)
	}

	idxMgr, err := indexmgr.New(fs, indexmgr.Config{
		EmbeddingModel: cfg.Retrieval.EmbeddingModel,
		EmbeddingDims:  cfg.Retrieval.EmbeddingDims,
		IndexPath:      cfg.IndexMetadataPath(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open index manager: %w", err)
	}

	var pipeline *retrieval.Pipeline
	if genaiClient != nil {
		processor := retrieval.NewProcessor(nil, nil)
		embedder := retrieval.NewGenaiEmbedder(genaiClient, cfg.Retrieval.EmbeddingModel)
		reranker := retrieval.NewGenaiReranker(genaiClient, cfg.Retrieval.RerankModel)

		strategy, err := retrieval.ParseCompressionStrategy(cfg.Retrieval.CompressStrategy)
		if err != nil {
			strategy = retrieval.DefaultCompressionConfig().Strategy
		}
		compressor, err := retrieval.NewCompressor(retrieval.CompressionConfig{
			MaxTokensPerTool: cfg.Retrieval.MaxTokensPerItem,
			MaxTotalTokens:   cfg.Retrieval.MaxTotalTokens,
			Strategy:         strategy,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build compressor: %w", err)
		}

		pipelineCfg := retrieval.DefaultPipelineConfig()
		pipelineCfg.TopK1 = cfg.Retrieval.TopK1
		pipelineCfg.TopK2 = cfg.Retrieval.TopK2
		pipelineCfg.TopK3 = cfg.Retrieval.TopK3
		pipelineCfg.RerankEnabled = cfg.Retrieval.RerankEnabled
		pipeline = retrieval.NewPipeline(processor, vstore, embedder, nil, reranker, compressor, pipelineCfg, toolDocFromSearchResult)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, retrieval pipeline disabled")
	}

	var generator *generation.Generator
	if provider, model := buildLLMProvider(cfg); provider != nil {
		generator = generation.NewGenerator(provider, model, generation.DefaultConfig())
	} else {
		log.Warn().Msg("no generation provider configured, example generation disabled")
	}

	cleanup := func() {
		jobStore.Close()
		logger.Stop()
	}

	return &components{
		cfg:       cfg,
		fs:        fs,
		registry:  registry,
		contexts:  contexts,
		jobStore:  jobStore,
		idxMgr:    idxMgr,
		pipeline:  pipeline,
		generator: generator,
	}, cleanup, nil
}

func buildVectorStore(fs afero.Fs, cfg *config.Config) (vectorstore.Store, error) {
	metric := skill.DistanceMetric(cfg.Retrieval.DistanceMetric)
	switch cfg.Retrieval.Backend {
	case "file":
		return vectorstore.OpenFileStore(fs, cfg.Retrieval.StorePath, metric)
	case "remote":
		return vectorstore.NewRemoteStore(cfg.Retrieval.RemoteURL, cfg.Retrieval.RemoteAPIKey, "skillrt", cfg.Retrieval.EmbeddingDims, metric), nil
	default:
		return vectorstore.NewMemoryStore(metric), nil
	}
}

// buildLLMProvider constructs the provider the Generation Pipeline calls
// through. When Generation.Provider is "anthropic" and a "ollama"
// FallbackProvider is also configured, the two are combined into an
// llm.MultiProvider so a generation request survives an Anthropic outage
// by falling back to a local Ollama model.
func buildLLMProvider(cfg *config.Config) (llm.Provider, string) {
	primary, model := buildSingleLLMProvider(cfg.Generation.Provider, cfg.Generation.APIKey, cfg.Generation.Model)
	if primary == nil {
		return nil, ""
	}
	if cfg.Generation.FallbackProvider == "" {
		return primary, model
	}
	fallback, _ := buildSingleLLMProvider(cfg.Generation.FallbackProvider, "", cfg.Generation.FallbackModel)
	if fallback == nil {
		return primary, model
	}
	return llm.NewMultiProvider(primary, fallback), model
}

func buildSingleLLMProvider(provider, apiKey, model string) (llm.Provider, string) {
	switch provider {
	case "anthropic":
		if apiKey == "" {
			return nil, ""
		}
		return llm.NewAnthropicProvider(apiKey), model
	case "ollama":
		return llm.NewOllamaProvider(""), model
	default:
		return nil, ""
	}
}

func toolDocFromSearchResult(r skill.SearchResult) retrieval.ToolDocument {
	return retrieval.ToolDocument{
		ToolID:         r.ID,
		Name:           r.Metadata.ToolName,
		Description:    r.Content,
		RelevanceScore: r.Score,
	}
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Parse(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, cleanup, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var workers *jobs.WorkerPool
	if cfg.Jobs.NumWorkers > 0 {
		workerCfg := jobs.DefaultConfig()
		workerCfg.NumWorkers = cfg.Jobs.NumWorkers
		workerCfg.Concurrency = cfg.Jobs.Concurrency
		workerCfg.Timeout = time.Duration(cfg.Jobs.TimeoutSecs) * time.Second
		workerCfg.MaxRetries = cfg.Jobs.MaxRetries
		workerCfg.RetryDelay = time.Duration(cfg.Jobs.BaseDelaySecs) * time.Second
		workerCfg.PollInterval = time.Duration(cfg.Jobs.PollIntervalMs) * time.Millisecond
		workerCfg.HeartbeatInterval = time.Duration(cfg.Jobs.HeartbeatSecs) * time.Second
		handlers := []jobs.Handler{
			jobs.NewIndexingHandler(c.fs, c.idxMgr, cfg.RegistryDir()),
			jobs.LoggingHandler{},
		}
		workers = jobs.NewWorkerPool(c.jobStore, workerCfg, handlers, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := workers.Start(ctx); err != nil {
			return fmt.Errorf("start job workers: %w", err)
		}
		defer workers.Shutdown(0)
	}

	server := api.NewServer(cfg, c.registry, c.contexts, c.jobStore, c.pipeline, c.generator)

	httpServer := &http.Server{
		Addr:    cfg.Address(),
		Handler: server.Handler(),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		}
	}()

	fmt.Printf("skillrtd v%s listening on %s\n", version, cfg.Address())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func cmdMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.MCP.Enabled {
		fmt.Fprintln(os.Stderr, "[skillrtd] warning: mcp.enabled is false in config, starting anyway")
	}

	c, cleanup, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	mcpServer := mcp.NewServer(c.registry, c.pipeline)
	return mcpServer.ServeStdio()
}

func cmdInitConfig() error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("created default configuration: %s\n", path)
	return nil
}

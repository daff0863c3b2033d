// Package mcp is a thin boundary adapter (spec.md section 1 scopes transport
// framing as an external collaborator) that exposes the Skill ABI's
// get-tools/execute-tool exports, plus the Retrieval Pipeline, as MCP tools
// via github.com/mark3labs/mcp-go, grounded on the teacher's
// index/mcp_server.go wiring of the same library.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kubiyabot/skillrt/internal/api"
	"github.com/kubiyabot/skillrt/pkg/retrieval"
	"github.com/kubiyabot/skillrt/pkg/skill"
	"github.com/kubiyabot/skillrt/pkg/vectorstore"
)

// Server wraps the core components to provide MCP tool access.
type Server struct {
	registry *api.Registry
	pipeline *retrieval.Pipeline
	server   *server.MCPServer
}

// NewServer builds an MCP server exposing the instance registry's tools
// and, if pipeline is non-nil, semantic search over indexed tools.
func NewServer(registry *api.Registry, pipeline *retrieval.Pipeline) *Server {
	s := &Server{registry: registry, pipeline: pipeline}

	mcpServer := server.NewMCPServer(
		"skillrt",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("get_tools",
			mcp.WithDescription("List the tools exposed by a registered skill instance."),
			mcp.WithString("skill_name", mcp.Required(), mcp.Description("Skill name the instance was registered under")),
			mcp.WithString("instance_name", mcp.Required(), mcp.Description("Instance name")),
		),
		s.handleGetTools,
	)

	mcpServer.AddTool(
		mcp.NewTool("execute_tool",
			mcp.WithDescription("Invoke one tool of a registered skill instance."),
			mcp.WithString("skill_name", mcp.Required(), mcp.Description("Skill name the instance was registered under")),
			mcp.WithString("instance_name", mcp.Required(), mcp.Description("Instance name")),
			mcp.WithString("tool_name", mcp.Required(), mcp.Description("Tool to invoke")),
			mcp.WithString("args_json", mcp.Description(`JSON array of {"key":...,"value":...} pairs, e.g. [{"key":"namespace","value":"prod"}]`)),
		),
		s.handleExecuteTool,
	)

	mcpServer.AddTool(
		mcp.NewTool("get_metadata",
			mcp.WithDescription("Get the metadata (name, version, description, author) of a registered skill instance."),
			mcp.WithString("skill_name", mcp.Required(), mcp.Description("Skill name the instance was registered under")),
			mcp.WithString("instance_name", mcp.Required(), mcp.Description("Instance name")),
		),
		s.handleGetMetadata,
	)

	mcpServer.AddTool(
		mcp.NewTool("search",
			mcp.WithDescription("Semantic + lexical search over indexed skill tools, with fusion, optional rerank, and compression."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query")),
			mcp.WithString("skill_name", mcp.Description("Restrict results to this skill")),
			mcp.WithString("instance_name", mcp.Description("Restrict results to this instance")),
		),
		s.handleSearch,
	)
}

func (s *Server) handleGetTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skillName := request.GetString("skill_name", "")
	instanceName := request.GetString("instance_name", "")
	if skillName == "" || instanceName == "" {
		return mcp.NewToolResultError("skill_name and instance_name are required"), nil
	}

	exec, err := s.registry.Get(skillName, instanceName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tools, err := exec.GetTools(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_tools failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal tools failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleExecuteTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skillName := request.GetString("skill_name", "")
	instanceName := request.GetString("instance_name", "")
	toolName := request.GetString("tool_name", "")
	if skillName == "" || instanceName == "" || toolName == "" {
		return mcp.NewToolResultError("skill_name, instance_name and tool_name are required"), nil
	}

	var args []skill.KV
	if raw := request.GetString("args_json", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid args_json: %v", err)), nil
		}
	}

	exec, err := s.registry.Get(skillName, instanceName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := exec.ExecuteTool(ctx, toolName, args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execute_tool failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skillName := request.GetString("skill_name", "")
	instanceName := request.GetString("instance_name", "")
	if skillName == "" || instanceName == "" {
		return mcp.NewToolResultError("skill_name and instance_name are required"), nil
	}

	exec, err := s.registry.Get(skillName, instanceName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	metadata, err := exec.GetMetadata(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_metadata failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal metadata failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.pipeline == nil {
		return mcp.NewToolResultError("retrieval pipeline is not configured"), nil
	}
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	filter := vectorstore.Filter{
		SkillName:    request.GetString("skill_name", ""),
		InstanceName: request.GetString("instance_name", ""),
	}

	result, err := s.pipeline.Retrieve(ctx, query, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio starts the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yarvis/internal/boilerplate"
	"yarvis/internal/logging"
	"yarvis/internal/project"
	"yarvis/internal/view"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName    = "yarvis"
	ServerVersion = "1.0.0"
)

// Projects is the read side of project.Manager.
type Projects interface {
	List(ctx context.Context, c project.Collection) ([]project.Record, error)
	Find(ctx context.Context, name string) (project.Record, project.Collection, error)
	Stats(ctx context.Context) (project.Stats, error)
}

// Server represents an MCP server instance using mcp-go
type Server struct {
	projects     Projects
	boilerplates *boilerplate.Catalog
	languages    view.Languages
	logger       *logging.AppLogger
	mcpServer    *server.MCPServer
}

// NewServer registers the tools. boilerplates may be nil.
func NewServer(projects Projects, boilerplates *boilerplate.Catalog, languages view.Languages, logger *logging.AppLogger) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	s := &Server{
		projects:     projects,
		boilerplates: boilerplates,
		languages:    languages,
		logger:       logger,
		mcpServer:    server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// Start serves stdio until EOF.
func (s *Server) Start() error {
	s.logger.Info("Starting MCP server on stdio")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// MCPServer exposes the underlying server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List project records. Archived projects live in the archives collection."),
		mcp.WithString("collection",
			mcp.Description("Collection to list"),
			mcp.Enum(string(project.Projects), string(project.Archives)),
		),
	), s.handleListProjects)

	s.mcpServer.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Describe one project: language, directory, deadline and repository."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
	), s.handleGetProject)

	s.mcpServer.AddTool(mcp.NewTool("project_stats",
		mcp.WithDescription("Count projects, archives and projects with a remote repository."),
	), s.handleStats)

	s.mcpServer.AddTool(mcp.NewTool("list_boilerplates",
		mcp.WithDescription("List the templates that can be copied into new projects."),
	), s.handleListBoilerplates)
}

func (s *Server) handleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := project.Collection(req.GetString("collection", string(project.Projects)))
	if collection != project.Projects && collection != project.Archives {
		return mcp.NewToolResultError(fmt.Sprintf("unknown collection %q", collection)), nil
	}

	records, err := s.projects.List(ctx, collection)
	if err != nil {
		s.logger.Error("list_projects failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	if records == nil {
		records = []project.Record{}
	}
	return jsonResult(records)
}

func (s *Server) handleGetProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, c, err := s.projects.Find(ctx, name)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no project named %q", name)), nil
		}
		s.logger.Error("get_project failed", "project", name, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view.ProjectMarkdown(rec, c, s.languages, time.Now())), nil
}

func (s *Server) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.projects.Stats(ctx)
	if err != nil {
		s.logger.Error("project_stats failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats)
}

type boilerplateInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
	Files       int    `json:"files"`
}

func (s *Server) handleListBoilerplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := []boilerplateInfo{}
	if s.boilerplates == nil {
		return jsonResult(out)
	}

	all, err := s.boilerplates.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, bp := range all {
		out = append(out, boilerplateInfo{
			ID:          bp.ID,
			Name:        bp.Name,
			Language:    bp.Language,
			Description: bp.Description,
			Files:       bp.Files,
		})
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

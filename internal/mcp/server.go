// Package mcp exposes the document tools over the Model Context Protocol
// so external MCP clients (editors, other agents) can search the ingested
// collections without going through the HTTP API.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finsight0/finsight/internal/namespace"
	"github.com/finsight0/finsight/internal/tools"
)

// MCP tool names. Snake case per MCP convention, unlike the camelCase
// Genkit registrations.
const (
	ToolSearchDocuments = "search_documents"
	ToolWebSearch       = "web_search"
	ToolCalculator      = "calculator"
	ToolListNamespaces  = "list_namespaces"
)

// Server wraps the MCP SDK server around the tool kit.
type Server struct {
	mcpServer *mcp.Server
	kit       *tools.Kit
	directory namespace.Directory
	logger    *slog.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name      string
	Version   string
	Kit       *tools.Kit
	Directory namespace.Directory
	Logger    *slog.Logger
}

// NewServer creates an MCP server with all tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("mcp: server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("mcp: server version is required")
	}
	if cfg.Kit == nil {
		return nil, fmt.Errorf("mcp: tool kit is required")
	}
	if cfg.Directory == nil {
		return nil, fmt.Errorf("mcp: namespace directory is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		kit:       cfg.Kit,
		directory: cfg.Directory,
		logger:    logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("mcp: registering tools: %w", err)
	}
	return s, nil
}

// Run serves the MCP protocol on the given transport. Blocks until the
// context is canceled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	searchSchema, err := jsonschema.For[tools.SearchDocumentsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolSearchDocuments, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolSearchDocuments,
		Description: "Search the ingested company documents (10-K filings, annual reports) " +
			"and return a summarized, cited answer. Optionally narrow by company names.",
		InputSchema: searchSchema,
	}, s.SearchDocuments)

	calcSchema, err := jsonschema.For[tools.CalculateInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolCalculator, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolCalculator,
		Description: "Evaluate a plain math expression like '200 / 5' or " +
			"'(4500 - 3200) / 4500'. Useful for ratios and margins.",
		InputSchema: calcSchema,
	}, s.Calculate)

	listSchema, err := jsonschema.For[ListNamespacesInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolListNamespaces, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListNamespaces,
		Description: "List the document namespaces available for search_documents.",
		InputSchema: listSchema,
	}, s.ListNamespaces)

	if s.kit.HasWebSearch() {
		webSchema, err := jsonschema.For[tools.WebSearchInput](nil)
		if err != nil {
			return fmt.Errorf("schema for %s: %w", ToolWebSearch, err)
		}
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolWebSearch,
			Description: "Search the live web for current events and real-time market data.",
			InputSchema: webSchema,
		}, s.WebSearch)
	}

	return nil
}

// SearchDocuments handles the search_documents MCP tool call.
func (s *Server) SearchDocuments(ctx context.Context, _ *mcp.CallToolRequest, input tools.SearchDocumentsInput) (*mcp.CallToolResult, any, error) {
	out, err := s.kit.SearchDocuments(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("search_documents failed: %w", err)
	}
	return textResult(out), nil, nil
}

// WebSearch handles the web_search MCP tool call.
func (s *Server) WebSearch(ctx context.Context, _ *mcp.CallToolRequest, input tools.WebSearchInput) (*mcp.CallToolResult, any, error) {
	out, err := s.kit.WebSearch(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("web_search failed: %w", err)
	}
	return textResult(out), nil, nil
}

// Calculate handles the calculator MCP tool call.
func (s *Server) Calculate(ctx context.Context, _ *mcp.CallToolRequest, input tools.CalculateInput) (*mcp.CallToolResult, any, error) {
	out, err := s.kit.Calculate(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("calculator failed: %w", err)
	}
	return textResult(out), nil, nil
}

// ListNamespacesInput is the (empty) input for list_namespaces.
type ListNamespacesInput struct{}

// ListNamespaces handles the list_namespaces MCP tool call.
func (s *Server) ListNamespaces(ctx context.Context, _ *mcp.CallToolRequest, _ ListNamespacesInput) (*mcp.CallToolResult, any, error) {
	namespaces, err := s.directory.Namespaces(ctx)
	if err != nil {
		s.logger.Error("listing namespaces", "error", err)
		return errorResult(fmt.Sprintf("Error fetching namespaces: %v", err)), nil, nil
	}
	if len(namespaces) == 0 {
		return textResult("No document namespaces are available. Ingest documents first."), nil, nil
	}
	return textResult("Available namespaces:\n- " + strings.Join(namespaces, "\n- ")), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// Package mcp implements the Model Context Protocol server for groupmapper.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/groupmapper/internal/mapper"
	"github.com/ajitpratap0/groupmapper/internal/report"
	"github.com/ajitpratap0/groupmapper/pkg/tokenizer"
)

const (
	// maxToolDepth keeps agent-initiated runs small; deeper maps belong to the CLI.
	maxToolDepth = 4

	// defaultRowBudget is the default token budget for the rows of a map_group response.
	defaultRowBudget = 4000
)

// Server wraps an MCPServer with the mapping service.
type Server struct {
	mcp    *mcpserver.MCPServer
	svc    *mapper.Service
	logger *slog.Logger
}

// NewServer creates a new MCP server. If svc is nil every tool call returns
// an error response instead of panicking.
func NewServer(svc *mapper.Service, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	mcpSrv := mcpserver.NewMCPServer(
		"groupmapper",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildSearchTool(), s.handleSearch)
	mcpSrv.AddTool(buildOfficersTool(), s.handleOfficers)
	mcpSrv.AddTool(buildMapTool(), s.handleMap)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleSearch is the exported handler for the "search_companies" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearch(ctx, req)
}

// HandleOfficers is the exported handler for the "list_officers" tool.
func (s *Server) HandleOfficers(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleOfficers(ctx, req)
}

// HandleMap is the exported handler for the "map_group" tool.
func (s *Server) HandleMap(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleMap(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolFailure turns a lookup or mapping error into a tool error result. An
// ambiguous name lists the candidates so the caller can retry with an id.
func toolFailure(op string, err error) *mcpgo.CallToolResult {
	var amb *mapper.AmbiguousMatchError
	if errors.As(err, &amb) {
		lines := make([]string, 0, len(amb.Candidates))
		for _, c := range amb.Candidates {
			lines = append(lines, fmt.Sprintf("%s (%s, %s)", c.Name, c.ID, strings.ToUpper(c.Jurisdiction)))
		}
		return mcpgo.NewToolResultErrorf("%s: %q matches several companies, pass company_id: %s",
			op, amb.Query, strings.Join(lines, "; "))
	}
	return mcpgo.NewToolResultErrorf("%s failed: %s", op, err.Error())
}

// --- tool definitions ---

func buildSearchTool() mcpgo.Tool {
	return mcpgo.NewTool("search_companies",
		mcpgo.WithDescription("Search a corporate registry for companies by name."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("Company name or fragment"),
		),
		mcpgo.WithString("jurisdiction",
			mcpgo.Description("Jurisdiction code such as gb or us_de (optional)"),
		),
		mcpgo.WithString("source",
			mcpgo.Description("Registry source name (default: first configured source)"),
		),
	)
}

func buildOfficersTool() mcpgo.Tool {
	return mcpgo.NewTool("list_officers",
		mcpgo.WithDescription("List the officers of a company, including resigned ones."),
		mcpgo.WithString("company_id",
			mcpgo.Required(),
			mcpgo.Description("Registry company id"),
		),
		mcpgo.WithString("source",
			mcpgo.Description("Registry source name (default: first configured source)"),
		),
	)
}

func buildMapTool() mcpgo.Tool {
	return mcpgo.NewTool("map_group",
		mcpgo.WithDescription("Map the companies connected to a root company through shared officers, level by level."),
		mcpgo.WithString("company_id",
			mcpgo.Description("Registry id of the root company"),
		),
		mcpgo.WithString("name",
			mcpgo.Description("Root company name, used when company_id is not given"),
		),
		mcpgo.WithString("jurisdiction",
			mcpgo.Description("Jurisdiction used to resolve the name (optional)"),
		),
		mcpgo.WithString("source",
			mcpgo.Description("Registry source name (default: first configured source)"),
		),
		mcpgo.WithNumber("max_depth",
			mcpgo.Description(fmt.Sprintf("Officer hops from the root, 1-%d (default: configured depth)", maxToolDepth)),
		),
		mcpgo.WithNumber("max_companies_per_level",
			mcpgo.Description("Cap on new companies per level (default: configured cap)"),
		),
		mcpgo.WithNumber("timeout_seconds",
			mcpgo.Description("Run time budget in seconds (default: configured timeout)"),
		),
		mcpgo.WithNumber("max_tokens",
			mcpgo.Description(fmt.Sprintf("Approximate token budget for the returned rows (default: %d)", defaultRowBudget)),
		),
	)
}

// --- handlers ---

func (s *Server) handleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("mapping service is unavailable"), nil
	}
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}

	results, err := s.svc.Search(ctx, req.GetString("source", ""), query, req.GetString("jurisdiction", ""))
	if err != nil {
		return toolFailure("search", err), nil
	}
	return toolResultJSON(map[string]any{"count": len(results), "results": results})
}

func (s *Server) handleOfficers(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("mapping service is unavailable"), nil
	}
	id := strings.TrimSpace(req.GetString("company_id", ""))
	if id == "" {
		return mcpgo.NewToolResultError("company_id is required and must not be empty"), nil
	}

	roster, err := s.svc.Officers(ctx, req.GetString("source", ""), id)
	if err != nil {
		return toolFailure("list officers", err), nil
	}
	return toolResultJSON(map[string]any{"company_id": id, "count": len(roster), "officers": roster})
}

func (s *Server) handleMap(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("mapping service is unavailable"), nil
	}
	id := strings.TrimSpace(req.GetString("company_id", ""))
	name := strings.TrimSpace(req.GetString("name", ""))
	if id == "" && name == "" {
		return mcpgo.NewToolResultError("company_id or name is required"), nil
	}

	depth := int(req.GetFloat("max_depth", 0))
	if depth < 0 || depth > maxToolDepth {
		return mcpgo.NewToolResultErrorf("max_depth must be between 1 and %d", maxToolDepth), nil
	}
	perLevel := int(req.GetFloat("max_companies_per_level", 0))
	if perLevel < 0 {
		return mcpgo.NewToolResultError("max_companies_per_level must not be negative"), nil
	}
	timeout := req.GetFloat("timeout_seconds", 0)
	if timeout < 0 {
		return mcpgo.NewToolResultError("timeout_seconds must not be negative"), nil
	}
	budget := int(req.GetFloat("max_tokens", defaultRowBudget))
	if budget <= 0 {
		return mcpgo.NewToolResultError("max_tokens must be positive"), nil
	}

	runID := uuid.NewString()
	res, err := s.svc.Map(ctx, mapper.Request{
		Source:               req.GetString("source", ""),
		CompanyID:            id,
		Name:                 name,
		Jurisdiction:         req.GetString("jurisdiction", ""),
		MaxDepth:             depth,
		MaxCompaniesPerLevel: perLevel,
		Timeout:              time.Duration(timeout * float64(time.Second)),
		RunID:                runID,
	})
	if err != nil {
		s.logger.Warn("map_group failed", "run_id", runID, "error", err)
		return toolFailure("map", err), nil
	}

	rep := report.Assemble(res)
	omitted, err := fitRows(&rep, budget)
	if err != nil {
		return nil, err
	}
	return toolResultJSON(map[string]any{"run_id": runID, "report": rep, "rows_omitted": omitted})
}

// fitRows keeps the leading rows of rep that fit within budget tokens and
// returns how many were cut. Rows are ordered by level, so the nearest
// companies survive. The summary still counts every company.
func fitRows(rep *report.Report, budget int) (int, error) {
	b := tokenizer.NewBudget(budget)
	for i, row := range rep.Rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("mcp: marshaling row: %w", err)
		}
		if !b.Take(string(raw)) {
			omitted := len(rep.Rows) - i
			rep.Rows = rep.Rows[:i]
			return omitted, nil
		}
	}
	return 0, nil
}

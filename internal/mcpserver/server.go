// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes export tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/pkg/export"
)

const conventionsURI = "kenaz-export://conventions"

// Server wraps the MCP server with export tools.
type Server struct {
	mcp *server.MCPServer
	svc *exportservice.Service
}

// New creates a new MCP server with all export tools registered.
func New(svc *exportservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"kenaz-export",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("export_vault",
		mcp.WithDescription("Export the configured vault into the destination directory "+
			"and return a summary with per-file results."),
	), s.exportVault)

	s.mcp.AddTool(mcp.NewTool("render_note",
		mcp.WithDescription("Return the exported Markdown of one note without writing anything. "+
			"Read the conventions via the kenaz-export://conventions resource to understand the output."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note (e.g. folder/note.md)")),
	), s.renderNote)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a wikilink target as seen from a note and return the file it points to "+
			"and the link that would be written."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Wikilink target, e.g. Note, Note#Heading or folder/Note")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Vault-relative path of the linking note")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("last_run",
		mcp.WithDescription("Summarize the most recent export: counts, failed files and unresolved links."),
	), s.lastRun)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Export Conventions",
			mcp.WithResourceDescription("How links, embeds and frontmatter are rewritten on export."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventions,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportVault(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.svc.Export(ctx)
	var fileErr *export.FileExportError
	if err != nil && !errors.As(err, &fileErr) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summary)
}

func (s *Server) renderNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Render(ctx, path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	case errors.Is(err, export.ErrSkipped):
		return mcp.NewToolResultError(fmt.Sprintf("skipped by postprocessor: %s", path)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Resolve(ctx, target, from)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unresolved: %s", target)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) lastRun(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.svc.LatestRun(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText("no export has run yet"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	failed, err := s.svc.LatestFiles(ctx, string(export.StatusFailed))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	unresolved, err := s.svc.LatestUnresolved(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"run":        run,
		"failed":     failed,
		"unresolved": unresolved,
	})
}

func (s *Server) readConventions(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     ExportConventions,
		},
	}, nil
}

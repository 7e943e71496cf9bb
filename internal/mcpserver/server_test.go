package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	vaultDir := testutil.Vault(t, map[string]string{
		"Index.md":   "See [[Other#Part Two]] and [[Nowhere]].\n",
		"b/Other.md": "other\n",
	})
	dest := t.TempDir()
	return New(exportservice.New(vaultDir, dest, nil)), dest
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so the
	// handler functions are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "export_vault":
		result, err = srv.exportVault(ctx, req)
	case "render_note":
		result, err = srv.renderNote(ctx, req)
	case "resolve_link":
		result, err = srv.resolveLink(ctx, req)
	case "last_run":
		result, err = srv.lastRun(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRenderNote(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "render_note", map[string]interface{}{"path": "Index.md"})
	if r.IsError {
		t.Fatalf("render error: %s", resultText(r))
	}
	if got := resultText(r); got != "See [Other > Part Two](b/Other.md#part-two) and *Nowhere*.\n" {
		t.Errorf("render = %q", got)
	}
}

func TestRenderNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "render_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
	r = callTool(t, srv, "render_note", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing path argument")
	}
}

func TestResolveLink(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "resolve_link", map[string]interface{}{"target": "Other", "from": "Index.md"})
	var res exportservice.Resolution
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if res.Target != "b/Other.md" || res.Link != "b/Other.md" {
		t.Errorf("resolution = %+v", res)
	}

	r = callTool(t, srv, "resolve_link", map[string]interface{}{"target": "Nowhere", "from": "Index.md"})
	if !r.IsError || !strings.Contains(resultText(r), "unresolved") {
		t.Errorf("unresolved result = %q", resultText(r))
	}
}

func TestExportThenLastRun(t *testing.T) {
	srv, dest := testServer(t)

	r := callTool(t, srv, "last_run", map[string]interface{}{})
	if resultText(r) != "no export has run yet" {
		t.Errorf("last_run before export = %q", resultText(r))
	}

	r = callTool(t, srv, "export_vault", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("export error: %s", resultText(r))
	}
	tree := testutil.Tree(t, dest)
	if _, ok := tree["b/Other.md"]; !ok || len(tree) != 2 {
		t.Errorf("tree = %v", tree)
	}

	r = callTool(t, srv, "last_run", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"exported": 2`) || !strings.Contains(text, `"target": "Nowhere"`) {
		t.Errorf("last_run = %s", text)
	}
}

func TestConventionsResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readConventions(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != conventionsURI || !strings.Contains(tc.Text, "Embeds") {
		t.Errorf("resource = %+v", contents)
	}
}

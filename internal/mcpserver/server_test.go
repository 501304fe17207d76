package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/typedmdx/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, cat := testutil.TestCatalog(t)
	return New(cat, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_collections":
		result, err = srv.listCollections(ctx, req)
	case "list_entries":
		result, err = srv.listEntries(ctx, req)
	case "get_entry":
		result, err = srv.getEntry(ctx, req)
	case "check_collection":
		result, err = srv.checkCollection(ctx, req)
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

func TestListCollections(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_collections", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"name": "authors"`) || !strings.Contains(text, `"name": "blog"`) {
		t.Errorf("list_collections = %s", text)
	}
}

func TestListEntries(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_entries", map[string]interface{}{"collection": "blog"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var entries []entryResult
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Slug != "hello" {
		t.Fatalf("entries = %+v, want only hello", entries)
	}
	if entries[0].Body != "" {
		t.Error("bodies should be omitted by default")
	}

	r = callTool(t, srv, "list_entries", map[string]interface{}{"collection": "blog", "body": true})
	entries = nil
	_ = json.Unmarshal([]byte(resultText(r)), &entries)
	if len(entries) != 1 || !strings.Contains(entries[0].Body, "First post.") {
		t.Errorf("entries = %+v, want body included", entries)
	}
}

func TestListEntries_MissingArgument(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_entries", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing collection")
	}
}

func TestGetEntry(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_entry", map[string]interface{}{"collection": "authors", "slug": "ann"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"name": "Ann"`) {
		t.Errorf("get_entry = %s", resultText(r))
	}
}

func TestGetEntry_Invalid(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_entry", map[string]interface{}{"collection": "blog", "slug": "untitled"})
	if !r.IsError {
		t.Fatal("expected error for invalid document")
	}
	if text := resultText(r); !strings.Contains(text, "- title: required") {
		t.Errorf("error = %q, want title issue", text)
	}
}

func TestGetEntry_Missing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_entry", map[string]interface{}{"collection": "blog", "slug": "nope"})
	if !r.IsError || !strings.HasPrefix(resultText(r), "not found") {
		t.Errorf("missing entry = %q", resultText(r))
	}
}

func TestCheckCollection(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "check_collection", map[string]interface{}{"collection": "blog"})
	text := resultText(r)
	if !strings.Contains(text, `"slug": "untitled"`) || !strings.Contains(text, `"path": "title"`) {
		t.Errorf("check_collection = %s", text)
	}

	r = callTool(t, srv, "check_collection", map[string]interface{}{"collection": "authors"})
	if text := resultText(r); text != "all 1 documents in authors are valid" {
		t.Errorf("check_collection = %q", text)
	}
}

func TestReadCollectionsResource(t *testing.T) {
	srv := testServer(t)

	contents, err := srv.readCollectionsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != CollectionsURI || !strings.Contains(tc.Text, `"publishedAt": "date"`) {
		t.Errorf("resource = %+v", contents[0])
	}
}

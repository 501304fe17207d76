// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes content collections to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/typedmdx/internal/catalog"
	"github.com/starford/typedmdx/pkg/apperr"
	"github.com/starford/typedmdx/pkg/schema"
)

// Resource URIs.
const (
	CollectionsURI    = "typedmdx://collections"
	DocumentFormatURI = "typedmdx://document-format"
)

// Server wraps the MCP server with collection tools.
type Server struct {
	mcp *server.MCPServer
	cat *catalog.Catalog
}

// New creates a new MCP server with all collection tools registered.
func New(cat *catalog.Catalog, version string) *Server {
	s := &Server{cat: cat}

	s.mcp = server.NewMCPServer(
		"typedmdx",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the declared content collections with their folders and field types."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the valid entries of a collection, ordered by filename. "+
			"Documents that fail validation are left out; use check_collection to see why."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name (see list_collections)")),
		mcp.WithBoolean("body", mcp.Description("Include document bodies (default false)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Read one entry by slug: validated frontmatter plus the raw body."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("File name without extension, e.g. hello-world")),
	), s.getEntry)

	s.mcp.AddTool(mcp.NewTool("check_collection",
		mcp.WithDescription("Validate every document of a collection and report the ones that fail, "+
			"with one issue per offending field."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
	), s.checkCollection)

	s.mcp.AddResource(
		mcp.NewResource(CollectionsURI, "Collections",
			mcp.WithResourceDescription("Declared collections and the type of every top-level field."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCollectionsResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(DocumentFormatURI, "Document Format",
			mcp.WithResourceDescription("How collection documents are laid out on disk and validated."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

type entryResult struct {
	Slug string        `json:"slug"`
	Path string        `json:"path"`
	Data schema.Record `json:"data"`
	Body string        `json:"body,omitempty"`
}

type skippedResult struct {
	Slug   string         `json:"slug"`
	Path   string         `json:"path"`
	Error  string         `json:"error"`
	Issues []schema.Issue `json:"issues,omitempty"`
}

func toResult(e catalog.Entry, withBody bool) entryResult {
	r := entryResult{Slug: e.Metadata.Slug, Path: e.Metadata.StoragePath, Data: e.Data}
	if withBody {
		r.Body = e.Body
	}
	return r
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// errorResult renders an engine error for the model, spelling out field
// issues so it can fix the document.
func errorResult(err error) *mcp.CallToolResult {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		lines := make([]string, len(verr.Issues))
		for i, issue := range verr.Issues {
			lines[i] = "- " + issue.String()
		}
		return mcp.NewToolResultError("invalid document:\n" + strings.Join(lines, "\n"))
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.cat.Describe()), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	withBody := false
	if v, bErr := req.RequireBool("body"); bErr == nil {
		withBody = v
	}

	entries, err := s.cat.List(ctx, name)
	if err != nil {
		return errorResult(err), nil
	}
	out := make([]entryResult, len(entries))
	for i, e := range entries {
		out[i] = toResult(e, withBody)
	}
	return jsonResult(out), nil
}

func (s *Server) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := s.cat.Get(ctx, name, slug)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(toResult(entry, true)), nil
}

func (s *Server) checkCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.cat.Scan(ctx, name)
	if err != nil {
		return errorResult(err), nil
	}
	if len(res.Skipped) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("all %d documents in %s are valid", len(res.Entries), name)), nil
	}

	skipped := make([]skippedResult, len(res.Skipped))
	for i, sk := range res.Skipped {
		skipped[i] = skippedResult{Slug: sk.Slug, Path: sk.StoragePath, Error: sk.Err.Error()}
		var verr *schema.ValidationError
		if errors.As(sk.Err, &verr) {
			skipped[i].Issues = verr.Issues
		}
	}
	return jsonResult(map[string]any{
		"collection": name,
		"valid":      len(res.Entries),
		"skipped":    skipped,
	}), nil
}

func (s *Server) readCollectionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.cat.Describe(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CollectionsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}

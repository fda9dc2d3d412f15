// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes marginalia tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/annotationservice"
)

// SyntaxURI is the resource URI of AnnotationSyntax.
const SyntaxURI = "marginalia://syntax"

// Server wraps the MCP server with marginalia tools.
type Server struct {
	mcp *server.MCPServer
	svc *annotationservice.Service
}

// New creates a new MCP server with all marginalia tools registered.
func New(svc *annotationservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Marginalia",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_annotations",
		mcp.WithDescription("List the notes and comments of an Org document, optionally limited to one heading subtree."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. papers/draft.org)")),
		mcp.WithString("heading", mcp.Description("Heading title whose subtree to scan")),
		mcp.WithString("kind", mcp.Description("Comma-separated kinds to include: note, comment")),
	), s.listAnnotations)

	s.mcp.AddTool(mcp.NewTool("add_annotation",
		mcp.WithDescription("Insert a note or comment marker. With end > start the marker wraps that span "+
			"of text; otherwise it is inserted at start without text. Read get_annotation_syntax first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("note or comment")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Annotation body; newlines are folded")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Byte offset where the marker starts")),
		mcp.WithNumber("end", mcp.Description("Byte offset where the annotated text ends")),
	), s.addAnnotation)

	s.mcp.AddTool(mcp.NewTool("delete_annotation",
		mcp.WithDescription("Remove the marker containing offset. Its annotated text stays in the document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithNumber("offset", mcp.Required(), mcp.Description("Byte offset inside the marker")),
		mcp.WithString("checksum", mcp.Description("Expected document checksum from list_annotations")),
	), s.deleteAnnotation)

	s.mcp.AddTool(mcp.NewTool("export_document",
		mcp.WithDescription("Render a document with its markers converted for an export backend."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("backend", mcp.Required(), mcp.Description("html, latex, odt or any other backend id")),
	), s.exportDocument)

	s.mcp.AddTool(mcp.NewTool("search_annotations",
		mcp.WithDescription("Full-text search through annotation bodies and annotated text across the vault."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("kind", mcp.Description("Comma-separated kinds to include")),
	), s.searchAnnotations)

	s.mcp.AddTool(mcp.NewTool("get_annotation_syntax",
		mcp.WithDescription("Returns the annotation syntax. Call this before editing documents by hand."),
	), s.getAnnotationSyntax)

	s.mcp.AddResource(
		mcp.NewResource(SyntaxURI, "Annotation Syntax",
			mcp.WithResourceDescription("How notes and comments are embedded in Org documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
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

// kindsArg parses the optional kind argument. Absent returns nil so the
// service applies the configured kinds.
func kindsArg(req mcp.CallToolRequest) ([]annotation.Kind, error) {
	raw := req.GetString("kind", "")
	if raw == "" {
		return nil, nil
	}
	return annotation.ParseKinds(strings.Split(raw, ","))
}

func (s *Server) listAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kinds, err := kindsArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.List(ctx, annotationservice.ListRequest{
		Path:    path,
		Heading: req.GetString("heading", ""),
		Kinds:   kinds,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) addAnnotation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kindName, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := annotation.ParseKind(kindName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireInt("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ch, err := s.svc.Add(ctx, annotationservice.AddRequest{
		Path:  path,
		Kind:  kind,
		Body:  body,
		Start: start,
		End:   req.GetInt("end", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ch)
}

func (s *Server) deleteAnnotation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	off, err := req.RequireInt("offset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ch, err := s.svc.Delete(ctx, annotationservice.MarkerRequest{
		Path:    path,
		Offset:  off,
		IfMatch: req.GetString("checksum", ""),
	})
	if err != nil {
		if annotation.IsNotAMarker(err) {
			return mcp.NewToolResultError(fmt.Sprintf("no annotation at offset %d in %s", off, path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ch)
}

func (s *Server) exportDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	backend, err := req.RequireString("backend")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Export(ctx, path, backend)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) searchAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kinds, err := kindsArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.Search(ctx, query, kinds, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits)
}

func (s *Server) getAnnotationSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AnnotationSyntax), nil
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SyntaxURI,
			MIMEType: "text/markdown",
			Text:     AnnotationSyntax,
		},
	}, nil
}

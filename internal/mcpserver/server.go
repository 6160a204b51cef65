// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Argument tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/argument/internal/apperr"
	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/note"
	"github.com/starford/argument/internal/noteservice"
	"github.com/starford/argument/internal/share"
)

const formatURI = "argument://note-format"

// Server wraps the MCP server with Argument tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	clip  clipboard.Sink
	share share.Sink
}

// New creates a new MCP server with all Argument tools registered. shareSink
// may be nil, in which case share_note returns the payload inline.
func New(svc *noteservice.Service, clip clipboard.Sink, shareSink share.Sink) *Server {
	s := &Server{svc: svc, clip: clip, share: shareSink}

	s.mcp = server.NewMCPServer(
		"Argument",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes, most recently modified first."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's title and full content."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a text note. Read the format via get_note_contract or the "+
			formatURI+" resource first."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (1-200 characters)")),
		mcp.WithString("content", mcp.Description("Note body")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("create_image_note",
		mcp.WithDescription("Create an image note from a data: URI or an http(s) URL."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (1-200 characters)")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:image/...;base64,... or http(s) URL")),
	), s.createImageNote)

	s.mcp.AddTool(mcp.NewTool("edit_note",
		mcp.WithDescription("Change a note's title and/or content. Omitted fields are left as is."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New content (text notes only)")),
	), s.editNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete one or more notes. Unknown IDs are ignored."),
		mcp.WithArray("ids", mcp.Required(), mcp.Description("Note IDs"), mcp.WithStringItems()),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("copy_note",
		mcp.WithDescription("Copy a note to the server clipboard: image formats for image notes, content otherwise."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.copyNote)

	s.mcp.AddTool(mcp.NewTool("share_note",
		mcp.WithDescription("Share a note: the image for image notes, title and content otherwise."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.shareNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Argument note format. Call this before creating or editing notes."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format",
			mcp.WithResourceDescription("What an Argument note is and how tools treat it."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

type noteSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Preview    string `json:"preview"`
	IsImage    bool   `json:"is_image"`
	ModifiedAt string `json:"modified_at"`
}

func summarize(notes []*note.Note) []noteSummary {
	out := make([]noteSummary, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteSummary{
			ID:         n.ID,
			Title:      n.Title,
			Preview:    n.ContentPreview(),
			IsImage:    n.IsImageNote(),
			ModifiedAt: n.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// toolError turns a service error into a tool-level error result. Only
// unexpected failures are logged.
func toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrNothingToCopy),
		errors.Is(err, apperr.ErrNothingToShare):
	default:
		slog.Error("mcp tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.ListNotes(ctx, query)
	if err != nil {
		return toolError("search_notes", err), nil
	}
	return jsonResult(summarize(notes)), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.ListNotes(ctx, "")
	if err != nil {
		return toolError("list_notes", err), nil
	}
	return jsonResult(summarize(notes)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return toolError("read_note", err), nil
	}
	if n.IsImageNote() {
		return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n[image note, %d bytes]", n.Title, len(n.ImageData))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n%s", n.Title, n.Content)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CreateNote(ctx, noteservice.CreateParams{
		Title:   title,
		Content: req.GetString("content", ""),
	})
	if err != nil {
		return toolError("create_note", err), nil
	}
	return mcp.NewToolResultText("created: " + n.ID), nil
}

func (s *Server) editNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var p noteservice.Patch
	args := req.GetArguments()
	if v, ok := args["title"].(string); ok {
		p.Title = &v
	}
	if v, ok := args["content"].(string); ok {
		p.Content = &v
	}
	n, err := s.svc.EditNote(ctx, id, p)
	if err != nil {
		return toolError("edit_note", err), nil
	}
	return mcp.NewToolResultText("updated: " + n.ID), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := req.GetStringSlice("ids", nil)
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids must list at least one note id"), nil
	}
	deleted, err := s.svc.DeleteNotes(ctx, ids...)
	if err != nil {
		return toolError("delete_note", err), nil
	}
	if len(deleted) == 0 {
		return mcp.NewToolResultText("no matching notes"), nil
	}
	return mcp.NewToolResultText("deleted: " + strings.Join(deleted, ", ")), nil
}

func (s *Server) copyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CopyNote(ctx, id, s.clip)
	if err != nil {
		return toolError("copy_note", err), nil
	}
	return mcp.NewToolResultText("copied: " + strings.Join(res.Tags, ", ")), nil
}

func (s *Server) shareNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.share != nil {
		loc, err := s.svc.PresentShare(ctx, id, s.share)
		if err != nil {
			return toolError("share_note", err), nil
		}
		return mcp.NewToolResultText("shared: " + loc), nil
	}

	p, err := s.svc.ShareNote(ctx, id)
	if err != nil {
		return toolError("share_note", err), nil
	}
	if !p.IsImage() {
		return mcp.NewToolResultText(p.Text), nil
	}
	f, err := share.Render(p)
	if err != nil {
		return toolError("share_note", err), nil
	}
	return mcp.NewToolResultImage(p.Title, base64Std(f.Data), f.ContentType), nil
}

func (s *Server) getNoteContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

package api

import (
	"encoding/base64"
	"time"

	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/imagecodec"
	"github.com/starford/argument/internal/note"
)

// CreateNoteRequest is the request body for creating a note. Image is
// base64-encoded; when present the content is discarded.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

// PatchNoteRequest is the request body for editing a note.
type PatchNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Preview    string    `json:"preview"`
	IsImage    bool      `json:"is_image"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NoteDetail is the full note representation.
type NoteDetail struct {
	NoteListItem
	Content   string `json:"content"`
	Shareable bool   `json:"shareable"`
	ImageURL  string `json:"image_url,omitempty"`
	ImageType string `json:"image_type,omitempty"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}

// DeleteResponse lists the ids that were actually removed.
type DeleteResponse struct {
	Deleted []string `json:"deleted"`
}

// ShareResponse is returned after presenting a note to the share sink.
type ShareResponse struct {
	Location string `json:"location"`
}

// ClipboardResponse mirrors the in-memory clipboard.
type ClipboardResponse struct {
	Representations map[string]string `json:"representations,omitempty"`
	Text            string            `json:"text,omitempty"`
	CopiedAt        time.Time         `json:"copied_at"`
}

func toListItem(n *note.Note) NoteListItem {
	return NoteListItem{
		ID:         n.ID,
		Title:      n.Title,
		Preview:    n.ContentPreview(),
		IsImage:    n.IsImageNote(),
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
	}
}

func toDetail(n *note.Note) NoteDetail {
	d := NoteDetail{
		NoteListItem: toListItem(n),
		Content:      n.Content,
		Shareable:    n.Shareable(),
	}
	if n.IsImageNote() {
		d.ImageURL = "/api/notes/" + n.ID + "/image"
		if f, ok := imagecodec.Sniff(n.ImageData); ok {
			d.ImageType = imagecodec.ContentType(f)
		}
	}
	return d
}

func toClipboard(e clipboard.Entry) ClipboardResponse {
	resp := ClipboardResponse{Text: e.Text, CopiedAt: e.CopiedAt}
	if len(e.Representations) > 0 {
		resp.Representations = make(map[string]string, len(e.Representations))
		for tag, data := range e.Representations {
			resp.Representations[tag] = base64.StdEncoding.EncodeToString(data)
		}
	}
	return resp
}

package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/argument/internal/checksum"
	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/imagecodec"
	"github.com/starford/argument/internal/noteservice"
	"github.com/starford/argument/internal/share"
)

const (
	maxJSONBytes   = 10 << 20
	maxUploadBytes = 50 << 20
)

// Handler holds API route handlers.
type Handler struct {
	svc       *noteservice.Service
	clip      clipboard.Sink
	clipView  *clipboard.Memory
	shareSink share.Sink
}

// NewHandler creates a new Handler. clipView may be nil when the clipboard
// sink is not inspectable; shareSink may be nil to disable POST share.
func NewHandler(svc *noteservice.Service, clip clipboard.Sink, clipView *clipboard.Memory, shareSink share.Sink) *Handler {
	return &Handler{svc: svc, clip: clip, clipView: clipView, shareSink: shareSink}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, most recently modified first
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive search term"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, toListItem(n))
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(n))
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a text or image note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	params := noteservice.CreateParams{Title: req.Title, Content: req.Content}
	if req.Image != "" {
		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("image must be base64"))
			return
		}
		params.ImageData = data
	}

	n, err := h.svc.CreateNote(r.Context(), params)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDetail(n))
}

// UploadImageNote handles POST /api/notes/image (multipart/form-data,
// fields "title" and "file").
//
//	@Summary		Create an image note from an uploaded file
//	@Tags			notes
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			title	formData	string	true	"Note title"
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/image [post]
func (h *Handler) UploadImageNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("read upload failed"))
		return
	}
	if _, ok := imagecodec.Sniff(data); !ok {
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody("unsupported image format"))
		return
	}

	n, err := h.svc.CreateNote(r.Context(), noteservice.CreateParams{
		Title:     r.FormValue("title"),
		ImageData: data,
	})
	if err != nil {
		writeError(w, "upload image note", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDetail(n))
}

// PatchNote handles PATCH /api/notes/{id}.
//
//	@Summary		Edit a note's title or content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note ID"
//	@Param			body	body		PatchNoteRequest	true	"Fields to change"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) PatchNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req PatchNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	n, err := h.svc.EditNote(r.Context(), chi.URLParam(r, "id"), noteservice.Patch{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, "edit note", err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(n))
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteNotes(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNotes handles DELETE /api/notes?id=a&id=b.
//
//	@Summary		Delete several notes
//	@Tags			notes
//	@Produce		json
//	@Param			id	query		[]string	true	"Note IDs"
//	@Success		200	{object}	DeleteResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [delete]
func (h *Handler) DeleteNotes(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("at least one id is required"))
		return
	}
	deleted, err := h.svc.DeleteNotes(r.Context(), ids...)
	if err != nil {
		writeError(w, "delete notes", err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// NoteImage handles GET /api/notes/{id}/image.
//
//	@Summary		Raw image bytes of an image note
//	@Tags			notes
//	@Produce		image/png,image/jpeg,image/webp,image/gif
//	@Param			id	path	string	true	"Note ID"
//	@Success		200
//	@Success		304
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/image [get]
func (h *Handler) NoteImage(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "note image", err)
		return
	}
	if !n.IsImageNote() {
		writeJSON(w, http.StatusNotFound, errorBody("note has no image"))
		return
	}

	etag := checksum.ETag(n.ImageData)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	ct := "application/octet-stream"
	if f, ok := imagecodec.Sniff(n.ImageData); ok {
		ct = imagecodec.ContentType(f)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(n.ImageData)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(n.ImageData)
}

// CopyNote handles POST /api/notes/{id}/copy.
//
//	@Summary		Copy a note to the clipboard
//	@Tags			export
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	noteservice.CopyResult
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/copy [post]
func (h *Handler) CopyNote(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CopyNote(r.Context(), chi.URLParam(r, "id"), h.clip)
	if err != nil {
		writeError(w, "copy note", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Clipboard handles GET /api/clipboard.
//
//	@Summary		Last clipboard entry
//	@Tags			export
//	@Produce		json
//	@Success		200	{object}	ClipboardResponse
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/clipboard [get]
func (h *Handler) Clipboard(w http.ResponseWriter, r *http.Request) {
	if h.clipView == nil {
		writeJSON(w, http.StatusNotFound, errorBody("clipboard is not inspectable"))
		return
	}
	e, ok := h.clipView.Last()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toClipboard(e))
}

// DownloadShare handles GET /api/notes/{id}/share. The body is the rendered
// share file: the stored image for image notes, plain text otherwise.
//
//	@Summary		Download the share rendition of a note
//	@Tags			export
//	@Produce		image/png,image/jpeg,image/webp,image/gif,text/plain
//	@Param			id	path	string	true	"Note ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/share [get]
func (h *Handler) DownloadShare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.svc.ShareNote(r.Context(), id)
	if err != nil {
		writeError(w, "share note", err)
		return
	}
	f, err := share.Render(p)
	if err != nil {
		writeError(w, "render share "+id, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

// ShareNote handles POST /api/notes/{id}/share.
//
//	@Summary		Present a note to the configured share destination
//	@Tags			export
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	ShareResponse
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Failure		501	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/share [post]
func (h *Handler) ShareNote(w http.ResponseWriter, r *http.Request) {
	if h.shareSink == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("no share destination configured"))
		return
	}
	loc, err := h.svc.PresentShare(r.Context(), chi.URLParam(r, "id"), h.shareSink)
	if err != nil {
		writeError(w, "present share", err)
		return
	}
	writeJSON(w, http.StatusOK, ShareResponse{Location: loc})
}

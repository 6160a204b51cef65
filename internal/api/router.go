package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/noteservice"
	"github.com/starford/argument/internal/share"
)

// RouterConfig carries the collaborators and switches of the API router.
type RouterConfig struct {
	Clipboard     clipboard.Sink
	ClipboardView *clipboard.Memory
	Share         share.Sink

	AuthEnabled bool
	Token       string

	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *noteservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, cfg.Clipboard, cfg.ClipboardView, cfg.Share)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Delete("/notes", h.DeleteNotes)
	r.Post("/notes/image", h.UploadImageNote)

	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Patch("/", h.PatchNote)
		r.Delete("/", h.DeleteNote)
		r.Get("/image", h.NoteImage)
		r.Post("/copy", h.CopyNote)
		r.Get("/share", h.DownloadShare)
		r.Post("/share", h.ShareNote)
	})

	r.Get("/clipboard", h.Clipboard)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}

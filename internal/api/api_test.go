package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/export"
	"github.com/starford/argument/internal/imagecodec"
	"github.com/starford/argument/internal/note"
	"github.com/starford/argument/internal/noteservice"
	"github.com/starford/argument/internal/share"
	"github.com/starford/argument/internal/testutil"
)

type testEnv struct {
	router   http.Handler
	clip     *clipboard.Memory
	shareDir string
}

// setup builds a router over a temp SQLite store. A non-empty token turns
// auth on.
func setup(t *testing.T, token string) testEnv {
	t.Helper()
	db := testutil.TestStore(t)
	dir, files := testutil.TestDir(t)
	svc := noteservice.NewService(db, export.NewEncoder(imagecodec.NewStandard()))
	clip := clipboard.NewMemory()
	router := NewRouter(svc, RouterConfig{
		Clipboard:     clip,
		ClipboardView: clip,
		Share:         share.NewDir(files),
		AuthEnabled:   token != "",
		Token:         token,
	})
	return testEnv{router: router, clip: clip, shareDir: dir}
}

func (e testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e testEnv) create(t *testing.T, req CreateNoteRequest) NoteDetail {
	t.Helper()
	w := e.do(t, http.MethodPost, "/notes", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var d NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateAndGetNote(t *testing.T) {
	env := setup(t, "")
	created := env.create(t, CreateNoteRequest{Title: " Argument ", Content: "Le corps"})
	if created.Title != "Argument" || created.ID == "" {
		t.Fatalf("created = %+v", created)
	}

	w := env.do(t, http.MethodGet, "/notes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Content != "Le corps" || got.Preview != "Le corps" || got.IsImage || !got.Shareable {
		t.Errorf("got = %+v", got)
	}
	if a, b := created.CreatedAt.Format(time.RFC3339Nano), got.CreatedAt.Format(time.RFC3339Nano); a != b {
		t.Errorf("created_at changed across reads: %s vs %s", a, b)
	}
}

func TestCreateNote_Invalid(t *testing.T) {
	env := setup(t, "")

	w := env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Title: "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", rec.Code)
	}

	w = env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Title: "x", Image: "%%%"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad base64 = %d, want 400", w.Code)
	}
}

func TestCreateImageNote_JSON(t *testing.T) {
	env := setup(t, "")
	img := testutil.PNG(t, 3, 3)
	d := env.create(t, CreateNoteRequest{
		Title:   "Photo",
		Content: "dropped",
		Image:   base64.StdEncoding.EncodeToString(img),
	})
	if !d.IsImage || d.Content != "" || d.Preview != note.ImagePlaceholder {
		t.Errorf("image note = %+v", d)
	}
	if d.ImageURL != "/api/notes/"+d.ID+"/image" || d.ImageType != "image/png" {
		t.Errorf("image url/type = %q %q", d.ImageURL, d.ImageType)
	}

	w := env.do(t, http.MethodGet, "/notes/"+d.ID+"/image", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("image status = %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), img) {
		t.Error("image bytes differ")
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes/"+d.ID+"/image", nil)
	req.Header.Set("If-None-Match", w.Header().Get("ETag"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", rec.Code)
	}
}

func TestNoteImage_TextNote(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "t", Content: "c"})
	if w := env.do(t, http.MethodGet, "/notes/"+d.ID+"/image", nil); w.Code != http.StatusNotFound {
		t.Errorf("text note image = %d, want 404", w.Code)
	}
}

func multipartUpload(t *testing.T, title string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if title != "" {
		_ = mw.WriteField("title", title)
	}
	if data != nil {
		fw, err := mw.CreateFormFile("file", "upload.bin")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/notes/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadImageNote(t *testing.T) {
	env := setup(t, "")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartUpload(t, "Scan", testutil.PNG(t, 2, 2)))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var d NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Title != "Scan" || !d.IsImage {
		t.Errorf("uploaded = %+v", d)
	}
}

func TestUploadImageNote_Rejects(t *testing.T) {
	env := setup(t, "")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartUpload(t, "Scan", []byte("plain text")))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("non-image = %d, want 415", w.Code)
	}

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartUpload(t, "Scan", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartUpload(t, "", testutil.PNG(t, 2, 2)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}
}

func TestPatchNote(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "Old", Content: "body"})

	title := "New"
	w := env.do(t, http.MethodPatch, "/notes/"+d.ID, PatchNoteRequest{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var got NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "New" || got.Content != "body" {
		t.Errorf("patched = %+v", got)
	}
	if got.ModifiedAt.Before(d.ModifiedAt) {
		t.Errorf("modified_at went backwards")
	}

	if w := env.do(t, http.MethodPatch, "/notes/missing", PatchNoteRequest{Title: &title}); w.Code != http.StatusNotFound {
		t.Errorf("patch missing = %d, want 404", w.Code)
	}
	empty := ""
	if w := env.do(t, http.MethodPatch, "/notes/"+d.ID, PatchNoteRequest{Title: &empty}); w.Code != http.StatusBadRequest {
		t.Errorf("blank title patch = %d, want 400", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "bye", Content: "gone"})

	if w := env.do(t, http.MethodDelete, "/notes/"+d.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/notes/"+d.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/notes/"+d.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("second delete = %d, want 204", w.Code)
	}
}

func TestDeleteNotes_Batch(t *testing.T) {
	env := setup(t, "")
	a := env.create(t, CreateNoteRequest{Title: "a"})
	b := env.create(t, CreateNoteRequest{Title: "b"})

	w := env.do(t, http.MethodDelete, "/notes?id="+a.ID+"&id="+b.ID+"&id=ghost", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("batch delete = %d", w.Code)
	}
	var resp DeleteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Deleted) != 2 {
		t.Errorf("deleted = %v", resp.Deleted)
	}

	if w := env.do(t, http.MethodDelete, "/notes", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no ids = %d, want 400", w.Code)
	}
}

func TestListNotes_Search(t *testing.T) {
	env := setup(t, "")
	var first NoteDetail
	for i, title := range []string{"Argument important", "Note personnelle", "Argument secondaire"} {
		d := env.create(t, CreateNoteRequest{Title: title, Content: "x"})
		if i == 0 {
			first = d
		}
	}
	content := "retouchée"
	if w := env.do(t, http.MethodPatch, "/notes/"+first.ID, PatchNoteRequest{Content: &content}); w.Code != http.StatusOK {
		t.Fatalf("patch = %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/notes", nil)
	var all NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &all)
	if all.Total != 3 {
		t.Fatalf("total = %d", all.Total)
	}
	if all.Notes[0].Title != "Argument important" {
		t.Errorf("first = %q, want most recent", all.Notes[0].Title)
	}

	w = env.do(t, http.MethodGet, "/notes?q=ARGUMENT", nil)
	var found NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &found)
	if found.Total != 2 {
		t.Errorf("search total = %d, want 2", found.Total)
	}
}

func TestCopyNote_Text(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "t", Content: "à copier"})

	w := env.do(t, http.MethodPost, "/notes/"+d.ID+"/copy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("copy = %d, body = %s", w.Code, w.Body.String())
	}
	e, ok := env.clip.Last()
	if !ok || e.Text != "à copier" {
		t.Errorf("clipboard = %+v", e)
	}

	w = env.do(t, http.MethodGet, "/clipboard", nil)
	var cr ClipboardResponse
	_ = json.Unmarshal(w.Body.Bytes(), &cr)
	if cr.Text != "à copier" {
		t.Errorf("clipboard response = %+v", cr)
	}
}

func TestCopyNote_Image(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "p", Image: base64.StdEncoding.EncodeToString(testutil.PNG(t, 4, 4))})

	w := env.do(t, http.MethodPost, "/notes/"+d.ID+"/copy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("copy = %d, body = %s", w.Code, w.Body.String())
	}
	var res noteservice.CopyResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Text || len(res.Tags) < 2 {
		t.Errorf("copy result = %+v", res)
	}

	w = env.do(t, http.MethodGet, "/clipboard", nil)
	var cr ClipboardResponse
	_ = json.Unmarshal(w.Body.Bytes(), &cr)
	if _, ok := cr.Representations[export.TagPNG]; !ok {
		t.Errorf("png representation missing: %v", cr.Representations)
	}
}

func TestCopyNote_NothingToCopy(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "empty"})
	if w := env.do(t, http.MethodPost, "/notes/"+d.ID+"/copy", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("copy empty = %d, want 422", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/clipboard", nil); w.Code != http.StatusNoContent {
		t.Errorf("empty clipboard = %d, want 204", w.Code)
	}
}

func TestShare(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "Été", Content: "soleil"})

	w := env.do(t, http.MethodGet, "/notes/"+d.ID+"/share", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download = %d", w.Code)
	}
	if w.Body.String() != "Été\n\nsoleil" {
		t.Errorf("share body = %q", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="ete-`) {
		t.Errorf("disposition = %q", cd)
	}

	w = env.do(t, http.MethodPost, "/notes/"+d.ID+"/share", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("present = %d, body = %s", w.Code, w.Body.String())
	}
	var sr ShareResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if !strings.HasPrefix(sr.Location, env.shareDir) {
		t.Errorf("location %q not under %q", sr.Location, env.shareDir)
	}
}

func TestShare_EmptyNote(t *testing.T) {
	env := setup(t, "")
	d := env.create(t, CreateNoteRequest{Title: "vide"})
	if w := env.do(t, http.MethodGet, "/notes/"+d.ID+"/share", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("share empty = %d, want 422", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/notes/missing/share", nil); w.Code != http.StatusNotFound {
		t.Errorf("share missing = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := setup(t, "secret123")
	body, _ := json.Marshal(CreateNoteRequest{Title: "auth", Content: "test"})
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := setup(t, "secret123")
	if w := env.do(t, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := setup(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	env := setup(t, "")
	if w := env.do(t, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(0.001, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	h := CORS([]string{" https://app.example ", ""})(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}

	passthrough := CORS(nil)(ok)
	w = httptest.NewRecorder()
	passthrough.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" || w.Code != http.StatusOK {
		t.Errorf("passthrough altered response")
	}
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jbsn-app/file-service/internal/api"
	"github.com/jbsn-app/file-service/internal/api/handlers"
	"github.com/jbsn-app/file-service/internal/catalog"
	"github.com/jbsn-app/file-service/internal/contentstore"
	"github.com/jbsn-app/file-service/internal/models"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	store, err := contentstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	r := gin.New()
	api.RegisterRoutes(r, handlers.New(cat, store, nil), "")
	return r
}

type filePart struct {
	name    string
	content string
}

func multipartBody(t *testing.T, parts []filePart, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := w.CreateFormFile("files", p.name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := io.WriteString(fw, p.content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

type uploadResponse struct {
	Success  bool                `json:"success"`
	Uploaded []models.FileRecord `json:"uploaded"`
	Errors   []struct {
		Filename string `json:"filename"`
		Error    string `json:"error"`
	} `json:"errors"`
	Message string `json:"message"`
}

func doUpload(t *testing.T, r *gin.Engine, parts []filePart, fields map[string]string) (*httptest.ResponseRecorder, uploadResponse) {
	t.Helper()
	body, contentType := multipartBody(t, parts, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp uploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	return w, resp
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	content := "date,amount\n2026-01-02,99.50\n"

	w, resp := doUpload(t, r, []filePart{{"january.csv", content}}, map[string]string{"notes": "jan import"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !resp.Success || len(resp.Uploaded) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rec := resp.Uploaded[0]
	if rec.OriginalName != "january.csv" || rec.FileType != models.TypeSpreadsheet {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Notes != "jan import" {
		t.Errorf("expected notes to be recorded, got %q", rec.Notes)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+itoa(rec.ID), nil)
	dw := httptest.NewRecorder()
	r.ServeHTTP(dw, req)

	if dw.Code != http.StatusOK {
		t.Fatalf("expected 200 on download, got %d", dw.Code)
	}
	if dw.Body.String() != content {
		t.Errorf("downloaded bytes differ from uploaded bytes")
	}
	if cd := dw.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="january.csv"`) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
}

func TestUploadPartialFailure(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doUpload(t, r, []filePart{
		{"one.csv", "a,b"},
		{"two.exe", "bad"},
		{"three.pdf", "%PDF"},
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for partial success, got %d", w.Code)
	}
	if !resp.Success {
		t.Error("expected success flag for partial success")
	}
	if len(resp.Uploaded) != 2 || len(resp.Errors) != 1 {
		t.Fatalf("unexpected counts: %d uploaded, %d errors", len(resp.Uploaded), len(resp.Errors))
	}
	if resp.Errors[0].Filename != "two.exe" {
		t.Errorf("error attributed to %q", resp.Errors[0].Filename)
	}
}

func TestUploadAllRejected(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doUpload(t, r, []filePart{{"bad.exe", "x"}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when no file succeeds, got %d", w.Code)
	}
	if resp.Success || len(resp.Uploaded) != 0 || len(resp.Errors) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"files": []}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-multipart body, got %d", w.Code)
	}
}

func TestDownloadInvalidAndUnknownID(t *testing.T) {
	r := newTestRouter(t)

	t.Run("non-integer id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/download/abc", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/download/9999", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestDeleteEndpoint(t *testing.T) {
	r := newTestRouter(t)

	_, resp := doUpload(t, r, []filePart{{"gone.pdf", "%PDF"}}, nil)
	id := itoa(resp.Uploaded[0].ID)

	req := httptest.NewRequest(http.MethodGet, "/api/delete/"+id, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Second delete hits a missing record.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/delete/"+id, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}

	// Listing no longer includes it.
	lw := httptest.NewRecorder()
	r.ServeHTTP(lw, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	var list struct {
		Success bool                `json:"success"`
		Files   []models.FileRecord `json:"files"`
	}
	if err := json.Unmarshal(lw.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode files response: %v", err)
	}
	if len(list.Files) != 0 {
		t.Errorf("expected empty listing after delete, got %d files", len(list.Files))
	}
}

func TestStatsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	doUpload(t, r, []filePart{{"a.csv", "12345"}}, nil)
	doUpload(t, r, []filePart{{"b.pdf", "abc"}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Success bool         `json:"success"`
		Stats   models.Stats `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode stats response: %v", err)
	}

	if resp.Stats.TotalFiles != 2 {
		t.Errorf("expected 2 files, got %d", resp.Stats.TotalFiles)
	}
	if resp.Stats.TotalSize != 8 {
		t.Errorf("expected total size 8, got %d", resp.Stats.TotalSize)
	}
	if resp.Stats.ByType[models.TypeSpreadsheet] != 1 || resp.Stats.ByType[models.TypePDF] != 1 {
		t.Errorf("unexpected by_type %v", resp.Stats.ByType)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", w.Code)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected permissive origin header, got %q", origin)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

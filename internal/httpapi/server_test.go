package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joelkehle/casewatch/internal/analysis"
	"github.com/joelkehle/casewatch/internal/casestore"
)

type stubReader struct {
	texts map[string]string
}

func (s *stubReader) ReadDocument(_ context.Context, url string, _ map[string]string) (string, error) {
	return s.texts[url], nil
}

func newTestServer(t *testing.T) (http.Handler, *casestore.Store) {
	t.Helper()
	store, err := casestore.New(filepath.Join(t.TempDir(), "cases.db"))
	if err != nil {
		t.Fatalf("casestore.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reader := &stubReader{texts: map[string]string{
		"https://docs.example/self.xml": "heterojunction bipolar transistor disclosure content for testing",
	}}
	pipeline, err := analysis.NewPipeline(analysis.Config{Store: store, Reader: reader})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return NewServer(Config{Store: store, Pipeline: pipeline, LLMName: "none"}), store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetCase(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/cases", `{"title":"New disclosure"}`)
	if rec.Code != 201 {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(created.ID, "local_") {
		t.Fatalf("id = %q, want local_ prefix", created.ID)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/cases/"+created.ID, "")
	if rec.Code != 200 {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got casestore.Case
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "New disclosure" {
		t.Fatalf("case = %+v", got)
	}
}

func TestCreateCaseRequiresTitle(t *testing.T) {
	h, _ := newTestServer(t)
	if rec := doJSON(t, h, http.MethodPost, "/v1/cases", `{}`); rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetMissingCase(t *testing.T) {
	h, _ := newTestServer(t)
	if rec := doJSON(t, h, http.MethodGet, "/v1/cases/uspto_nope", ""); rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	h, store := newTestServer(t)
	if err := store.Put(&casestore.Case{
		ID:        "local_api00001",
		Title:     "API case",
		Documents: []casestore.Document{{URL: "https://docs.example/self.xml"}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/cases/local_api00001/analyze", "")
	if rec.Code != 200 {
		t.Fatalf("analyze status = %d body=%s", rec.Code, rec.Body.String())
	}
	c, err := store.Get("local_api00001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c.Keywords) == 0 || len(c.Embedding) == 0 {
		t.Fatalf("analysis artifacts missing: %+v", c)
	}
}

func TestAnalyzeMissingCaseReturns404(t *testing.T) {
	h, _ := newTestServer(t)
	if rec := doJSON(t, h, http.MethodPost, "/v1/cases/uspto_nope/analyze", ""); rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestReportHTMLRequiresGeneratedReport(t *testing.T) {
	h, store := newTestServer(t)
	store.Put(&casestore.Case{ID: "local_api00002", Title: "No report yet"})
	if rec := doJSON(t, h, http.MethodGet, "/v1/cases/local_api00002/report.html", ""); rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	store.UpdateReport("local_api00002", "\n-----\n ##1. Section\n\nbody", "## Summary\n\nshort")
	rec := doJSON(t, h, http.MethodGet, "/v1/cases/local_api00002/report.html", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Similarity Report") {
		t.Fatalf("body missing heading:\n%s", rec.Body.String())
	}
}

func TestReportPDFWithoutRenderer(t *testing.T) {
	h, store := newTestServer(t)
	store.Put(&casestore.Case{ID: "local_api00003", Title: "x", Report: "body", Summary: "s"})
	if rec := doJSON(t, h, http.MethodGet, "/v1/cases/local_api00003/report.pdf", ""); rec.Code != 501 {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestImportsValidation(t *testing.T) {
	h, _ := newTestServer(t)
	if rec := doJSON(t, h, http.MethodPost, "/v1/imports", `{}`); rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAlertsEndpoint(t *testing.T) {
	h, store := newTestServer(t)
	store.PutAlert(&casestore.Alert{ID: "a1", CaseID: "local_x", SimilarCaseID: "uspto_y", SimilarityRate: 0.9})
	rec := doJSON(t, h, http.MethodGet, "/v1/alerts?case_id=local_x", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Alerts []casestore.Alert `json:"alerts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Alerts) != 1 {
		t.Fatalf("alerts = %+v", payload.Alerts)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/health", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t)
	if rec := doJSON(t, h, http.MethodDelete, "/v1/alerts", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

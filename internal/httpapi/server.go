// Package httpapi exposes the case pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/joelkehle/casewatch/internal/analysis"
	"github.com/joelkehle/casewatch/internal/casestore"
	"github.com/joelkehle/casewatch/internal/report"
)

// Store is the persistence surface the HTTP layer reads from directly;
// writes that involve derivation go through the pipeline.
type Store interface {
	Get(id string) (*casestore.Case, error)
	Put(c *casestore.Case) error
	List() ([]casestore.Case, error)
	Delete(id string) error
	ListAlerts(caseID string) ([]casestore.Alert, error)
}

// PDFRenderer prints a markdown report to PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

type Server struct {
	store    Store
	pipeline *analysis.Pipeline
	pdf      PDFRenderer
	llmName  string
}

type Config struct {
	Store    Store
	Pipeline *analysis.Pipeline
	PDF      PDFRenderer
	LLMName  string
}

func NewServer(cfg Config) http.Handler {
	s := &Server{
		store:    cfg.Store,
		pipeline: cfg.Pipeline,
		pdf:      cfg.PDF,
		llmName:  cfg.LLMName,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/cases", s.handleCases)
	mux.HandleFunc("/v1/cases/", s.handleCaseByID)
	mux.HandleFunc("/v1/imports", s.handleImports)
	mux.HandleFunc("/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cases, err := s.store.List()
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, map[string]any{"cases": cases})
	case http.MethodPost:
		blob, err := readBody(r)
		if err != nil {
			writeError(w, 400, err.Error())
			return
		}
		var c casestore.Case
		if err := json.Unmarshal(blob, &c); err != nil {
			writeError(w, 400, "invalid case payload: "+err.Error())
			return
		}
		if strings.TrimSpace(c.Title) == "" {
			writeError(w, 400, "title is required")
			return
		}
		if c.ID == "" {
			c.ID = analysis.NewCaseID()
		}
		if err := s.store.Put(&c); err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 201, map[string]any{"ok": true, "id": c.ID})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCaseByID routes /v1/cases/{id} and its sub-resources:
// analyze, report, report.html, report.pdf, related.
func (s *Server) handleCaseByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/cases/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch action {
	case "":
		s.handleCase(w, r, id)
	case "analyze":
		s.handleAnalyze(w, r, id)
	case "report":
		s.handleReport(w, r, id)
	case "report.html":
		s.handleReportHTML(w, r, id)
	case "report.pdf":
		s.handleReportPDF(w, r, id)
	case "related":
		s.handleRelated(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleCase(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.store.Get(id)
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		if c == nil {
			writeError(w, 404, "case not found")
			return
		}
		writeJSON(w, 200, c)
	case http.MethodDelete:
		if err := s.store.Delete(id); err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	res, err := s.pipeline.AnalyzeCase(r.Context(), id)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	status := 200
	if !res.Success {
		status = 404
	}
	writeJSON(w, status, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	res, err := s.pipeline.GenerateReport(r.Context(), id)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	status := 200
	if !res.Success {
		status = 422
	}
	writeJSON(w, status, res)
}

func (s *Server) reportMarkdown(w http.ResponseWriter, id string) (string, bool) {
	c, err := s.store.Get(id)
	if err != nil {
		writeError(w, 500, err.Error())
		return "", false
	}
	if c == nil {
		writeError(w, 404, "case not found")
		return "", false
	}
	if strings.TrimSpace(c.Report) == "" {
		writeError(w, 404, "no report generated for this case")
		return "", false
	}
	return report.WithSummary(c.Report, c.Summary), true
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	markdown, ok := s.reportMarkdown(w, id)
	if !ok {
		return
	}
	html, err := report.RenderHTML(markdown)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if s.pdf == nil {
		writeError(w, 501, "pdf rendering not configured")
		return
	}
	markdown, ok := s.reportMarkdown(w, id)
	if !ok {
		return
	}
	pdf, err := s.pdf.Render(r.Context(), markdown)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`-report.pdf"`)
	_, _ = w.Write(pdf)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	related, err := s.pipeline.RelatedCases(r.Context(), id)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"related": related})
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	var req struct {
		Keywords          []string `json:"keywords"`
		ApplicationNumber string   `json:"applicationNumber"`
		Persist           bool     `json:"persist"`
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "invalid import payload: "+err.Error())
		return
	}

	if req.ApplicationNumber != "" {
		c, err := s.pipeline.ImportByID(r.Context(), req.ApplicationNumber, req.Persist)
		if err != nil {
			writeError(w, 502, err.Error())
			return
		}
		if c == nil {
			writeError(w, 404, "no filing found for "+req.ApplicationNumber)
			return
		}
		writeJSON(w, 200, map[string]any{"cases": []casestore.Case{*c}})
		return
	}
	if len(req.Keywords) == 0 {
		writeError(w, 400, "keywords or applicationNumber required")
		return
	}
	cases, err := s.pipeline.ImportByKeywords(r.Context(), req.Keywords, req.Persist)
	if err != nil {
		writeError(w, 502, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"cases": cases})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	alerts, err := s.store.ListAlerts(strings.TrimSpace(r.URL.Query().Get("case_id")))
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"alerts": alerts})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":  true,
		"llm": s.llmName,
	})
}

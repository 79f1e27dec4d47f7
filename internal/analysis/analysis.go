// Package analysis orchestrates the case pipeline: acquire document text,
// derive keywords and an embedding, score the case against the rest of the
// store, and synthesize a similarity report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/casewatch/internal/casestore"
	"github.com/joelkehle/casewatch/internal/embedding"
	"github.com/joelkehle/casewatch/internal/keywords"
	"github.com/joelkehle/casewatch/internal/registry"
	"github.com/joelkehle/casewatch/internal/report"
	"github.com/joelkehle/casewatch/internal/similarity"
	"github.com/joelkehle/casewatch/internal/textextract"
)

// AlertThreshold is the similarity score above which a newly analyzed case
// raises an alert against an existing one.
const AlertThreshold = 0.8

// Store is the persistence surface the pipeline needs.
type Store interface {
	Get(id string) (*casestore.Case, error)
	Put(c *casestore.Case) error
	ListExcept(id string) ([]casestore.Case, error)
	UpdateAnalysis(id string, kw []string, emb []float64, refs []casestore.Reference) error
	UpdateReport(id, report, summary string) error
	PutAlert(a *casestore.Alert) error
}

// RegistryClient is the slice of the USPTO client the import path uses.
type RegistryClient interface {
	SearchPatents(ctx context.Context, kw []string) (registry.SearchResult, error)
	GetFiling(ctx context.Context, applicationNumber string) (map[string]any, error)
	FilingDocumentURLs(ctx context.Context, applicationNumber string) (grant, pgpub string)
}

// DocumentReader fetches and extracts text from a document URL.
type DocumentReader interface {
	ReadDocument(ctx context.Context, url string, headers map[string]string) (string, error)
}

type Config struct {
	Store       Store
	Registry    RegistryClient
	Reader      DocumentReader
	Keywords    keywords.Strategy
	Embedder    embedding.Strategy
	Synthesizer *report.Synthesizer
	USPTOAPIKey string
}

// Pipeline runs analysis, import, and reporting over the case store. The
// registry client and synthesizer are optional; operations needing them
// fail with a clear message when they are absent.
type Pipeline struct {
	store    Store
	registry RegistryClient
	reader   DocumentReader
	keywords keywords.Strategy
	embedder embedding.Strategy
	synth    *report.Synthesizer
	usptoKey string
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("analysis: store is required")
	}
	if cfg.Reader == nil {
		return nil, errors.New("analysis: document reader is required")
	}
	if cfg.Keywords == nil {
		cfg.Keywords = keywords.BatchTFIDF()
	}
	if cfg.Embedder == nil {
		cfg.Embedder = embedding.Offline{}
	}
	return &Pipeline{
		store:    cfg.Store,
		registry: cfg.Registry,
		reader:   cfg.Reader,
		keywords: cfg.Keywords,
		embedder: cfg.Embedder,
		synth:    cfg.Synthesizer,
		usptoKey: cfg.USPTOAPIKey,
	}, nil
}

// Result reports how a pipeline operation went. Success false with a nil
// error means the operation ran but had nothing to act on.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	CaseID  string `json:"caseId,omitempty"`
}

var tracer = otel.Tracer("casewatch/analysis")

// NewCaseID mints an identifier for a locally created case.
func NewCaseID() string {
	return "local_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AnalyzeCase derives keywords and an embedding from a case's documents,
// rebuilds its reference list against every other stored case, and raises
// alerts for matches above AlertThreshold. A missing case is not an error:
// the result says so and the caller decides what that means.
func (p *Pipeline) AnalyzeCase(ctx context.Context, id string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "AnalyzeCase")
	defer span.End()
	span.SetAttributes(attribute.String("case.id", id))

	c, err := p.store.Get(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &Result{Success: false, Message: fmt.Sprintf("case %s not found", id), CaseID: id}, nil
	}

	text := p.caseText(ctx, c)
	if strings.TrimSpace(text) == "" {
		return &Result{Success: false, Message: "no readable document content", CaseID: id}, nil
	}

	kw, err := p.keywords.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}
	emb, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed case text: %w", err)
	}

	others, err := p.store.ListExcept(id)
	if err != nil {
		return nil, err
	}
	matches := p.scoreCandidates(emb, others)
	refs := make([]casestore.Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m.ref)
	}
	if err := p.store.UpdateAnalysis(id, kw, emb, refs); err != nil {
		return nil, err
	}
	p.raiseAlerts(id, matches)

	log.Printf("analysis case_analyzed id=%s keywords=%d references=%d", id, len(kw), len(refs))
	return &Result{Success: true, Message: fmt.Sprintf("analyzed with %d references", len(refs)), CaseID: id}, nil
}

// scoredMatch pairs a reference with the case it scored against, so alerting
// never has to re-derive the candidate from the reference URL. Two candidates
// may legitimately share a document URL.
type scoredMatch struct {
	ref   casestore.Reference
	match *casestore.Case
}

// scoreCandidates scores the case embedding against every candidate that has
// both a document and an embedding. Candidates missing either are skipped:
// there is nothing to link to or nothing to score.
func (p *Pipeline) scoreCandidates(emb []float64, candidates []casestore.Case) []scoredMatch {
	matches := []scoredMatch{}
	for i := range candidates {
		cand := &candidates[i]
		if len(cand.Documents) == 0 || len(cand.Embedding) == 0 {
			continue
		}
		matches = append(matches, scoredMatch{
			ref: casestore.Reference{
				URL:            cand.Documents[0].URL,
				Title:          cand.Title,
				GrantedDate:    cand.FilingDate,
				SimilarityRate: similarity.Score(emb, cand.Embedding),
			},
			match: cand,
		})
	}
	return matches
}

// raiseAlerts files one alert per match above the threshold, addressed to
// whoever created the matching case.
func (p *Pipeline) raiseAlerts(id string, matches []scoredMatch) {
	for _, m := range matches {
		if m.ref.SimilarityRate <= AlertThreshold {
			continue
		}
		alert := &casestore.Alert{
			ID:             uuid.NewString(),
			CaseID:         id,
			SimilarCaseID:  m.match.ID,
			SimilarityRate: m.ref.SimilarityRate,
			Recipients:     m.match.CreatedBy,
		}
		if err := p.store.PutAlert(alert); err != nil {
			log.Printf("analysis alert_failed case=%s similar=%s err=%q", id, m.match.ID, err.Error())
			continue
		}
		log.Printf("analysis alert_raised case=%s similar=%s score=%.3f", id, m.match.ID, m.ref.SimilarityRate)
	}
}

// GenerateReport synthesizes the similarity report for a case from its
// references and persists both the report and its summary.
func (p *Pipeline) GenerateReport(ctx context.Context, id string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "GenerateReport")
	defer span.End()
	span.SetAttributes(attribute.String("case.id", id))

	if p.synth == nil {
		return nil, errors.New("analysis: no report synthesizer configured")
	}
	c, err := p.store.Get(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &Result{Success: false, Message: fmt.Sprintf("case %s not found", id), CaseID: id}, nil
	}
	if len(c.References) == 0 {
		return &Result{Success: false, Message: "no references to report on", CaseID: id}, nil
	}

	referenceText := p.caseText(ctx, c)
	documentTexts := make([]string, 0, len(c.References))
	for _, ref := range c.References {
		text, err := p.reader.ReadDocument(ctx, ref.URL, p.usptoHeaders())
		if err != nil {
			log.Printf("analysis reference_read_failed case=%s url=%s err=%q", id, ref.URL, err.Error())
			continue
		}
		if usable(text) {
			documentTexts = append(documentTexts, text)
		}
	}
	if len(documentTexts) == 0 {
		return &Result{Success: false, Message: "no readable reference content", CaseID: id}, nil
	}

	full, err := p.synth.CompleteReport(ctx, referenceText, documentTexts)
	if err != nil {
		return nil, err
	}
	summary, err := p.synth.Summary(ctx, full)
	if err != nil {
		return nil, err
	}
	if err := p.store.UpdateReport(id, full, summary); err != nil {
		return nil, err
	}
	log.Printf("analysis report_generated id=%s sections=%d", id, len(documentTexts))
	return &Result{Success: true, Message: "report generated", CaseID: id}, nil
}

// ImportByKeywords searches the registry, normalizes every hit, enriches
// each with document URLs, keywords, and an embedding, and cross-scores the
// batch. When the registry rate-limits the whole import, the canned demo
// record is returned so the caller still has something to show.
func (p *Pipeline) ImportByKeywords(ctx context.Context, kw []string, persist bool) ([]casestore.Case, error) {
	ctx, span := tracer.Start(ctx, "ImportByKeywords")
	defer span.End()
	span.SetAttributes(attribute.Int("keywords.count", len(kw)))

	if p.registry == nil {
		return nil, errors.New("analysis: no registry client configured")
	}
	res, err := p.registry.SearchPatents(ctx, kw)
	if err != nil {
		var rl registry.RateLimitError
		if errors.As(err, &rl) {
			log.Printf("analysis import_rate_limited retry_after=%s fallback=demo", rl.RetryAfter)
			demo := registry.DemoRecord()
			if p.synth != nil {
				rep, sum, derr := p.synth.DummyReport(ctx, demo.Title)
				if derr != nil {
					log.Printf("analysis demo_report_failed err=%q", derr.Error())
				} else {
					demo.Report, demo.Summary = rep, sum
				}
			}
			if persist {
				if perr := p.store.Put(demo); perr != nil {
					return nil, perr
				}
			}
			return []casestore.Case{*demo}, nil
		}
		return nil, err
	}

	cases := make([]casestore.Case, 0, len(res.Filings))
	for _, raw := range res.Filings {
		c := registry.Normalize(raw)
		p.enrich(ctx, c)
		cases = append(cases, *c)
	}
	p.crossScore(cases)

	if persist {
		for i := range cases {
			if err := p.store.Put(&cases[i]); err != nil {
				return nil, err
			}
		}
	}
	log.Printf("analysis import_complete keywords=%d cases=%d persisted=%t", len(kw), len(cases), persist)
	return cases, nil
}

// ImportByID imports a single filing by application number, or (nil, nil)
// when the registry has no record of it.
func (p *Pipeline) ImportByID(ctx context.Context, applicationNumber string, persist bool) (*casestore.Case, error) {
	ctx, span := tracer.Start(ctx, "ImportByID")
	defer span.End()
	span.SetAttributes(attribute.String("application.number", applicationNumber))

	if p.registry == nil {
		return nil, errors.New("analysis: no registry client configured")
	}
	raw, err := p.registry.GetFiling(ctx, applicationNumber)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	c := registry.Normalize(raw)
	p.enrich(ctx, c)
	if persist {
		if err := p.store.Put(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// enrich attaches document URLs from the registry, then derives keywords and
// an embedding from whatever text those documents yield.
func (p *Pipeline) enrich(ctx context.Context, c *casestore.Case) {
	appNumber := strings.TrimPrefix(c.ID, "uspto_")
	grant, pgpub := p.registry.FilingDocumentURLs(ctx, appNumber)
	if grant != "" {
		c.Documents = append(c.Documents, casestore.Document{URL: grant, Source: "uspto"})
	}
	if pgpub != "" {
		c.Documents = append(c.Documents, casestore.Document{URL: pgpub, Source: "uspto"})
	}

	text := p.caseText(ctx, c)
	if strings.TrimSpace(text) == "" {
		return
	}
	kw, err := p.keywords.Extract(ctx, text)
	if err == nil {
		c.Keywords = kw
	}
	emb, err := p.embedder.Embed(ctx, text)
	if err == nil {
		c.Embedding = emb
	}
}

// crossScore builds each imported case's references from the rest of the
// batch. Cases without an embedding neither score nor get scored.
func (p *Pipeline) crossScore(cases []casestore.Case) {
	for i := range cases {
		if len(cases[i].Embedding) == 0 {
			continue
		}
		for j := range cases {
			if i == j || len(cases[j].Embedding) == 0 || len(cases[j].Documents) == 0 {
				continue
			}
			cases[i].References = append(cases[i].References, casestore.Reference{
				URL:            cases[j].Documents[0].URL,
				Title:          cases[j].Title,
				GrantedDate:    cases[j].FilingDate,
				SimilarityRate: similarity.Score(cases[i].Embedding, cases[j].Embedding),
			})
		}
	}
}

// RelatedCases ranks stored cases by keyword overlap with the given case.
// The overlap is the share of this case's keywords the other case also has,
// scaled to 0..100.
func (p *Pipeline) RelatedCases(ctx context.Context, id string) (map[string]float64, error) {
	c, err := p.store.Get(id)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Keywords) == 0 {
		return map[string]float64{}, nil
	}
	mine := map[string]struct{}{}
	for _, kw := range c.Keywords {
		mine[strings.ToLower(kw)] = struct{}{}
	}

	others, err := p.store.ListExcept(id)
	if err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, other := range others {
		shared := 0
		for _, kw := range other.Keywords {
			if _, ok := mine[strings.ToLower(kw)]; ok {
				shared++
			}
		}
		if shared > 0 {
			out[other.ID] = float64(shared) / float64(len(mine)) * 100
		}
	}
	return out, nil
}

// caseText concatenates the extracted text of every readable case document.
func (p *Pipeline) caseText(ctx context.Context, c *casestore.Case) string {
	var b strings.Builder
	for _, doc := range c.Documents {
		text, err := p.reader.ReadDocument(ctx, doc.URL, p.usptoHeaders())
		if err != nil {
			log.Printf("analysis document_read_failed case=%s url=%s err=%q", c.ID, doc.URL, err.Error())
			continue
		}
		if !usable(text) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String()
}

func (p *Pipeline) usptoHeaders() map[string]string {
	if p.usptoKey == "" {
		return nil
	}
	return map[string]string{"X-API-KEY": p.usptoKey}
}

func usable(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && trimmed != textextract.NoContent
}

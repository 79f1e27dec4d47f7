// Package report synthesizes similarity reports from case and reference
// texts, and renders them to HTML or PDF.
package report

import (
	"context"
	"fmt"
	"log"

	"github.com/joelkehle/casewatch/internal/llm"
)

const (
	titlePrompt = "You are given two documents: Document A and Document B. Generate a clear and informative title " +
		"describing the comparison between these two documents in 10 words or fewer. Use only information from the " +
		"documents and no external references. Do not add any formatting. Strictly stay within the word limit."
	reportPrompt = "You are given two documents: Document A and Document B. Compare them and generate a concise " +
		"comparison report of 250 words or fewer. Use only information explicitly contained in the documents and do " +
		"not include any external references. Do not use any formatting such as headings, bullet points, or numbered " +
		"lists. Write in plain continuous text. Strictly stay within the word limit."
	summaryPrompt = "You are given a report. Generate a concise summary of the report in 100 words or fewer. Use " +
		"only information explicitly contained in the report and do not include any external references. Do not use " +
		"any formatting such as headings, bullet points, or numbered lists. Write in plain continuous text. Strictly " +
		"stay within the word limit."
	dummyReportPrompt = "You are given the patent application under the title %s from the US Patent Office. Create a " +
		"list of 5 similar patents from the US Patent Office. The list can be dummy patents. For each patent provide " +
		"the following: \n\n- Title of comparison\n- Brief report comparing these 2 patents (limit to 250 words)\n\n" +
		"The generated reports should be in MD format with title having \"##\" and summary having no formatting."
)

// Synthesizer builds markdown similarity reports one pairwise section at a
// time. A failed section is skipped rather than failing the whole report; a
// failed title falls back to "Untitled".
type Synthesizer struct {
	gen llm.Generator
}

func NewSynthesizer(gen llm.Generator) (*Synthesizer, error) {
	if gen == nil {
		return nil, llm.ErrNoProvider
	}
	return &Synthesizer{gen: gen}, nil
}

// DocumentTitle names the comparison between the reference and one document.
func (s *Synthesizer) DocumentTitle(ctx context.Context, referenceText, documentText string) (string, error) {
	return s.gen.Generate(ctx, fmt.Sprintf("%s\n\nReference Text: %s\n\nDocument Text: %s", titlePrompt, referenceText, documentText))
}

// DocumentReport writes one pairwise comparison in plain continuous text.
func (s *Synthesizer) DocumentReport(ctx context.Context, referenceText, documentText string) (string, error) {
	return s.gen.Generate(ctx, fmt.Sprintf("%s\n\nReference Text: %s\n\nDocument Text: %s", reportPrompt, referenceText, documentText))
}

// CompleteReport assembles one numbered section per document. Section order
// follows the input order, and numbering counts every input slot so a
// skipped document leaves a visible gap in the numbering rather than
// silently renumbering what follows.
func (s *Synthesizer) CompleteReport(ctx context.Context, referenceText string, documents []string) (string, error) {
	final := ""
	for i, doc := range documents {
		title, err := s.DocumentTitle(ctx, referenceText, doc)
		if err != nil || title == "" {
			title = "Untitled"
		}
		body, err := s.DocumentReport(ctx, referenceText, doc)
		if err != nil {
			log.Printf("report section_failed index=%d err=%q", i+1, err.Error())
			continue
		}
		final = fmt.Sprintf("%s\n-----\n ##%d. %s\n\n%s", final, i+1, title, body)
	}
	return final, nil
}

// Summary condenses a report and prefixes it with a markdown heading.
func (s *Synthesizer) Summary(ctx context.Context, report string) (string, error) {
	text, err := s.gen.Generate(ctx, fmt.Sprintf("%s\n\nReport: %s", summaryPrompt, report))
	if err != nil {
		return "", err
	}
	return "## Summary\n\n" + text, nil
}

// WithSummary assembles the final document: top heading, then summary, then
// the full report.
func WithSummary(report, summary string) string {
	return fmt.Sprintf("# Similarity Report \n\n%s\n\n%s", summary, report)
}

// DummyReport produces a placeholder report and summary for seeded demo
// cases that have no real references yet.
func (s *Synthesizer) DummyReport(ctx context.Context, title string) (string, string, error) {
	report, err := s.gen.Generate(ctx, fmt.Sprintf(dummyReportPrompt, title)+fmt.Sprintf("\n\nTitle: %s", title))
	if err != nil {
		return "", "", err
	}
	summary, err := s.Summary(ctx, report)
	if err != nil {
		return "", "", err
	}
	return report, summary, nil
}

package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/joelkehle/casewatch/internal/llm"
)

const extractPrompt = "Extract the most important, domain-specific keywords from the following text. " +
	"Only output a JSON array of keyword strings, no explanations or comments.\n\nText:\n%s\n\nKeywords:"

// LLM asks a generation provider for keywords and falls back to TF-IDF when
// the reply cannot be parsed as a list of strings or the call itself fails.
// The fallback is silent: keyword extraction degrades, it does not error.
type LLM struct {
	gen      llm.Generator
	fallback Strategy
}

func NewLLM(gen llm.Generator) *LLM {
	return &LLM{gen: gen, fallback: SingleContentTFIDF()}
}

func (l *LLM) Extract(ctx context.Context, text string) ([]string, error) {
	if len(strings.TrimSpace(text)) < MinTextLen {
		return []string{}, nil
	}
	raw, err := l.gen.Generate(ctx, fmt.Sprintf(extractPrompt, text))
	if err != nil {
		log.Printf("keywords llm_extract_failed err=%q fallback=tfidf", err.Error())
		return l.fallback.Extract(ctx, text)
	}
	parsed, ok := parseKeywordList(raw)
	if !ok {
		log.Printf("keywords llm_parse_failed response_chars=%d fallback=tfidf", len(raw))
		return l.fallback.Extract(ctx, text)
	}
	return parsed, nil
}

// parseKeywordList accepts a strict JSON array of strings, tolerating code
// fences around the payload. Anything else is a parse failure.
func parseKeywordList(raw string) ([]string, bool) {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		parts := strings.SplitN(clean, "\n", 2)
		if len(parts) == 2 {
			clean = parts[1]
		}
		clean = strings.TrimPrefix(clean, "json")
		clean = strings.TrimSpace(strings.TrimSuffix(clean, "```"))
	}
	var items []any
	if err := json.Unmarshal([]byte(clean), &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// Select returns the strategy matching the caller's capability: the LLM
// strategy when a generator is configured, bare TF-IDF otherwise.
func Select(gen llm.Generator) Strategy {
	if gen == nil {
		return SingleContentTFIDF()
	}
	return NewLLM(gen)
}

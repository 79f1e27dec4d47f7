// Package embedding converts text into numeric vectors for similarity
// comparison. The offline strategy builds a TF-IDF vector from the input's
// own vocabulary, which means two offline vectors from different texts
// rarely share a dimensionality and usually cannot be compared; Vocabulary
// exists for callers that need comparable offline vectors across a corpus.
// The online strategy delegates to a configured embedding provider and is
// preferred whenever a key exists, with offline as the silent fallback.
package embedding

import (
	"context"
	"log"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/joelkehle/casewatch/internal/llm"
)

// Strategy converts text into a vector. Empty input returns (nil, nil):
// no vector, no work, no error.
type Strategy interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}]+`)

// Offline builds a per-call TF-IDF vector. No stopword removal: the vector
// is a representation, not a keyword ranking. Dimensions are the input's
// unique terms in lexicographic order and the vector is L2-normalized.
//
// Comparability caveat: each call fits its own vocabulary, so vectors from
// different texts have different lengths except by coincidence. Use
// Vocabulary when vectors must be comparable.
type Offline struct{}

func (Offline) Embed(_ context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	counts, terms := countTerms(text)
	if len(terms) == 0 {
		return nil, nil
	}
	vec := make([]float64, len(terms))
	for i, term := range terms {
		vec[i] = float64(counts[term])
	}
	normalize(vec)
	return vec, nil
}

// Vocabulary is a term index fitted once over a corpus so that every text
// embeds into the same dimensionality. This is the corrected design for
// offline similarity; the per-call Offline strategy is kept for parity with
// the original system's behavior.
type Vocabulary struct {
	index map[string]int
	terms []string
}

// FitVocabulary collects the union of terms across texts.
func FitVocabulary(texts []string) *Vocabulary {
	seen := map[string]struct{}{}
	for _, text := range texts {
		for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
			seen[tok] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return &Vocabulary{index: index, terms: terms}
}

// Dimensions reports the fixed vector length this vocabulary produces.
func (v *Vocabulary) Dimensions() int { return len(v.terms) }

func (v *Vocabulary) Embed(_ context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	vec := make([]float64, len(v.terms))
	matched := false
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if i, ok := v.index[tok]; ok {
			vec[i]++
			matched = true
		}
	}
	if !matched {
		return vec, nil
	}
	normalize(vec)
	return vec, nil
}

// Online delegates to a provider's embedding endpoint and returns its vector
// unmodified.
type Online struct {
	embedder llm.Embedder
}

func NewOnline(embedder llm.Embedder) *Online {
	return &Online{embedder: embedder}
}

func (o *Online) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return o.embedder.Embed(ctx, text)
}

// withFallback tries the primary strategy and retries with the secondary on
// any error. Online-first, offline-fallback: the online path is preferred
// when a key exists but is never fatal.
type withFallback struct {
	primary   Strategy
	secondary Strategy
}

func (w withFallback) Embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := w.primary.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	log.Printf("embedding online_failed err=%q fallback=offline", err.Error())
	return w.secondary.Embed(ctx, text)
}

// Select returns the strategy matching the caller's capability: online with
// offline fallback when an embedder is configured, bare offline otherwise.
func Select(embedder llm.Embedder) Strategy {
	if embedder == nil {
		return Offline{}
	}
	return withFallback{primary: NewOnline(embedder), secondary: Offline{}}
}

func countTerms(text string) (map[string]int, []string) {
	counts := map[string]int{}
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		counts[tok]++
	}
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return counts, terms
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

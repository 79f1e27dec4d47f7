// Package keywords derives salient terms from patent text. Two strategies
// exist behind one interface: single-document TF-IDF scoring (no key needed)
// and an LLM extraction that silently falls back to TF-IDF whenever the
// online path misbehaves, so keyword extraction never fails the caller.
package keywords

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// MinTextLen is the shortest input worth extracting from. Anything shorter
// returns an empty keyword list without invoking any backend.
const MinTextLen = 25

// Strategy extracts salient terms from text. Implementations never return
// an error for ordinary bad input; an error means the backend itself broke.
type Strategy interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}]+`)

// TFIDF scores terms of a single document. With one document every term's
// inverse document frequency is identical, so the ranking reduces to term
// frequency over the capped vocabulary; that matches the original system's
// single-document vectorizer behavior.
type TFIDF struct {
	MaxFeatures int // vocabulary cap, highest-frequency terms kept
	TopN        int
	NGramMax    int // 1 = unigrams only, 2 = unigrams + bigrams
}

// SingleContentTFIDF is tuned for one pasted or uploaded document.
func SingleContentTFIDF() *TFIDF {
	return &TFIDF{MaxFeatures: 20, TopN: 10, NGramMax: 1}
}

// BatchTFIDF is tuned for per-document extraction during bulk import.
func BatchTFIDF() *TFIDF {
	return &TFIDF{MaxFeatures: 1000, TopN: 15, NGramMax: 2}
}

func (t *TFIDF) Extract(_ context.Context, text string) ([]string, error) {
	if len(strings.TrimSpace(text)) < MinTextLen {
		return []string{}, nil
	}
	terms := termFrequencies(text, t.NGramMax)
	if len(terms) == 0 {
		return []string{}, nil
	}

	type scored struct {
		term  string
		count int
	}
	all := make([]scored, 0, len(terms))
	for term, count := range terms {
		if count <= 0 {
			continue
		}
		all = append(all, scored{term, count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].term < all[j].term
	})
	if len(all) > t.MaxFeatures {
		all = all[:t.MaxFeatures]
	}
	n := t.TopN
	if n > len(all) {
		n = len(all)
	}
	out := make([]string, 0, n)
	for _, s := range all[:n] {
		out = append(out, s.term)
	}
	return out, nil
}

// termFrequencies lowercases, tokenizes, strips stopwords, and counts
// unigrams plus (when nmax >= 2) bigrams over consecutive surviving tokens.
func termFrequencies(text string, nmax int) map[string]int {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	filtered := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		filtered = append(filtered, tok)
	}
	counts := map[string]int{}
	for i, tok := range filtered {
		counts[tok]++
		if nmax >= 2 && i+1 < len(filtered) {
			counts[tok+" "+filtered[i+1]]++
		}
	}
	return counts
}

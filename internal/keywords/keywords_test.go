package keywords

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestTFIDFShortInputYieldsEmpty(t *testing.T) {
	for _, s := range []string{"", "short text", "exactly twentyfour chr"} {
		got, err := BatchTFIDF().Extract(context.Background(), s)
		if err != nil {
			t.Fatalf("Extract(%q): %v", s, err)
		}
		if len(got) != 0 {
			t.Fatalf("Extract(%q) = %v, want empty", s, got)
		}
	}
}

func TestTFIDFHeterojunctionScenario(t *testing.T) {
	text := "the patent describes a heterojunction bipolar transistor heterojunction bipolar"
	got, err := BatchTFIDF().Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected non-empty keyword list")
	}
	if !slices.Contains(got, "heterojunction bipolar") && !slices.Contains(got, "heterojunction") {
		t.Fatalf("expected heterojunction term among keywords, got %v", got)
	}
	for _, kw := range got {
		if kw == "the" || kw == "a" {
			t.Fatalf("stopword %q leaked into keywords %v", kw, got)
		}
	}
	// Repeated terms outrank singletons.
	if got[0] != "bipolar" && got[0] != "heterojunction" && got[0] != "heterojunction bipolar" {
		t.Fatalf("top keyword %q is not one of the repeated terms", got[0])
	}
}

func TestTFIDFRespectsTopN(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi omicron pi rho sigma tau"
	tf := &TFIDF{MaxFeatures: 1000, TopN: 5, NGramMax: 1}
	got, err := tf.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
}

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.response, f.err
}

func (f *fakeGenerator) Name() string { return "fake" }

func TestLLMExtractParsesJSONArray(t *testing.T) {
	gen := &fakeGenerator{response: `["heterojunction bipolar", "transistor", "semiconductor device"]`}
	got, err := NewLLM(gen).Extract(context.Background(), "the patent describes a heterojunction bipolar transistor")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"heterojunction bipolar", "transistor", "semiconductor device"}
	if !slices.Equal(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

func TestLLMExtractCodeFencedReply(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n[\"transistor\"]\n```"}
	got, err := NewLLM(gen).Extract(context.Background(), "the patent describes a heterojunction bipolar transistor")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !slices.Equal(got, []string{"transistor"}) {
		t.Fatalf("Extract = %v", got)
	}
}

func TestLLMExtractFallsBackOnGarbage(t *testing.T) {
	text := "the patent describes a heterojunction bipolar transistor heterojunction bipolar"
	for _, gen := range []*fakeGenerator{
		{response: "Sure! Here are some keywords: transistor, bipolar"},
		{response: `{"keywords": ["a"]}`},
		{response: `["ok", 42]`},
		{err: errors.New("boom")},
	} {
		got, err := NewLLM(gen).Extract(context.Background(), text)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(got) == 0 {
			t.Fatalf("fallback produced no keywords for response %q", gen.response)
		}
		if !slices.Contains(got, "heterojunction") && !slices.Contains(got, "bipolar") {
			t.Fatalf("fallback keywords look wrong: %v", got)
		}
	}
}

func TestLLMExtractShortInputSkipsBackend(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("must not be called")}
	got, err := NewLLM(gen).Extract(context.Background(), "tiny")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Extract = %v, want empty", got)
	}
}

func TestSelect(t *testing.T) {
	if _, ok := Select(nil).(*TFIDF); !ok {
		t.Fatal("Select(nil) should be the TF-IDF strategy")
	}
	if _, ok := Select(&fakeGenerator{}).(*LLM); !ok {
		t.Fatal("Select(generator) should be the LLM strategy")
	}
}

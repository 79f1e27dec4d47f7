package casestore

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cases.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := &Case{
		ID:          "uspto_16123456",
		Title:       "HETEROJUNCTION BIPOLAR TRANSISTOR",
		Status:      "Patented Case",
		StatusCode:  150,
		FilingDate:  "2019-08-01",
		Inventors:   []string{"Ada Example"},
		Attorneys:   []Attorney{{Name: "Pat Counsel", RegistrationNumber: "12345", Contacts: []Contact{{Kind: "email", Value: "pat@example.com"}}}},
		Documents:   []Document{{URL: "https://example.com/doc.pdf", Source: "grant"}},
		Keywords:    []string{"heterojunction", "bipolar"},
		Embedding:   []float64{0.6, 0.8},
		References:  []Reference{{URL: "https://example.com/prior.pdf", Title: "Prior Art", SimilarityRate: 0.91}},
		CreatedBy:   []string{"alice@example.com"},
		CreatedDate: time.Now().UTC(),
	}
	if err := s.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(want.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for stored case")
	}
	if got.Title != want.Title || got.StatusCode != 150 {
		t.Fatalf("round trip mangled case: %+v", got)
	}
	if len(got.Attorneys) != 1 || got.Attorneys[0].Contacts[0].Value != "pat@example.com" {
		t.Fatalf("attorneys not preserved: %+v", got.Attorneys)
	}
	if len(got.Embedding) != 2 || got.Embedding[1] != 0.8 {
		t.Fatalf("embedding not preserved: %v", got.Embedding)
	}
	if len(got.References) != 1 || got.References[0].SimilarityRate != 0.91 {
		t.Fatalf("references not preserved: %+v", got.References)
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get("uspto_nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get = %+v, want nil", got)
	}
}

func TestPutRequiresID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(&Case{Title: "No ID"}); err == nil {
		t.Fatal("Put without ID should fail")
	}
}

func TestListExceptExcludesSelf(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"local_aaaa1111", "local_bbbb2222", "local_cccc3333"} {
		if err := s.Put(&Case{ID: id, Title: id}); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}
	got, err := s.ListExcept("local_bbbb2222")
	if err != nil {
		t.Fatalf("ListExcept: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListExcept returned %d cases, want 2", len(got))
	}
	for _, c := range got {
		if c.ID == "local_bbbb2222" {
			t.Fatal("ListExcept returned the excluded case")
		}
	}
}

func TestUpdateAnalysisReplacesReferencesWholesale(t *testing.T) {
	s := newTestStore(t)
	c := &Case{
		ID:         "local_dddd4444",
		Title:      "Test",
		References: []Reference{{URL: "https://old.example.com", SimilarityRate: 0.5}},
	}
	if err := s.Put(c); err != nil {
		t.Fatalf("Put: %v", err)
	}
	refs := []Reference{{URL: "https://new.example.com", SimilarityRate: 0.9}}
	if err := s.UpdateAnalysis(c.ID, []string{"new"}, []float64{1, 0}, refs); err != nil {
		t.Fatalf("UpdateAnalysis: %v", err)
	}
	got, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.References) != 1 || got.References[0].URL != "https://new.example.com" {
		t.Fatalf("references not replaced: %+v", got.References)
	}
	if len(got.Keywords) != 1 || got.Keywords[0] != "new" {
		t.Fatalf("keywords not updated: %v", got.Keywords)
	}
}

func TestUpdateAnalysisMissingCase(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateAnalysis("uspto_missing", nil, nil, nil); err == nil {
		t.Fatal("UpdateAnalysis on missing case should fail")
	}
}

func TestUpdateReport(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(&Case{ID: "local_eeee5555", Title: "Report target"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.UpdateReport("local_eeee5555", "# Similarity Report \n\nbody", "## Summary\n\nshort"); err != nil {
		t.Fatalf("UpdateReport: %v", err)
	}
	got, err := s.Get("local_eeee5555")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Report == "" || got.Summary == "" {
		t.Fatalf("report/summary not persisted: %+v", got)
	}
}

func TestAlerts(t *testing.T) {
	s := newTestStore(t)
	a := &Alert{
		ID:             "alert-1",
		CaseID:         "local_ffff6666",
		SimilarCaseID:  "uspto_16123456",
		SimilarityRate: 0.87,
		Recipients:     []string{"alice@example.com"},
	}
	if err := s.PutAlert(a); err != nil {
		t.Fatalf("PutAlert: %v", err)
	}
	got, err := s.ListAlerts("local_ffff6666")
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(got) != 1 || got[0].SimilarityRate != 0.87 {
		t.Fatalf("ListAlerts = %+v", got)
	}
	all, err := s.ListAlerts("")
	if err != nil {
		t.Fatalf("ListAlerts(all): %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListAlerts(all) = %d entries, want 1", len(all))
	}
}

func TestDeleteRemovesCaseAndAlerts(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(&Case{ID: "local_gggg7777", Title: "Doomed"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.PutAlert(&Alert{ID: "alert-2", CaseID: "local_gggg7777", SimilarCaseID: "x", SimilarityRate: 0.9}); err != nil {
		t.Fatalf("PutAlert: %v", err)
	}
	if err := s.Delete("local_gggg7777"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Get("local_gggg7777")
	if err != nil || got != nil {
		t.Fatalf("case survived delete: %+v, %v", got, err)
	}
	alerts, err := s.ListAlerts("local_gggg7777")
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("alerts survived delete: %+v", alerts)
	}
}

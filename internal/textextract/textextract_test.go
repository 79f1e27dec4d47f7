package textextract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestXMLToText(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"nested elements", `<doc><title>Transistor</title><body>A <b>bipolar</b> device.</body></doc>`, "Transistor A bipolar device."},
		{"whitespace trimmed", "<a>\n  hello  \n<b> world </b>\n</a>", "hello world"},
		{"malformed", `<doc><unclosed>`, ""},
		{"not xml at all", `{"json": true}`, ""},
		{"empty", ``, ""},
	}
	for _, tc := range cases {
		if got := XMLToText([]byte(tc.raw)); got != tc.want {
			t.Fatalf("%s: XMLToText = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPDFToTextMalformed(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte("not a pdf"), []byte("%PDF-1.4 truncated garbage")} {
		if got := PDFToText(raw); got != NoContent {
			t.Fatalf("PDFToText(%q) = %q, want %q", raw, got, NoContent)
		}
	}
}

func TestReadDocumentXML(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-API-KEY")
		w.Write([]byte(`<doc><t>heterojunction</t><t>bipolar</t></doc>`))
	}))
	defer srv.Close()

	reader := NewReader(srv.Client())
	got, err := reader.ReadDocument(context.Background(), srv.URL+"/filing.xml", map[string]string{"X-API-KEY": "k123"})
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if got != "heterojunction bipolar" {
		t.Fatalf("ReadDocument = %q", got)
	}
	if gotHeader != "k123" {
		t.Fatalf("header not passed through, got %q", gotHeader)
	}
}

func TestReadDocumentXMLFetchFailureIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	reader := NewReader(srv.Client())
	got, err := reader.ReadDocument(context.Background(), srv.URL+"/filing.xml", nil)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if got != "" {
		t.Fatalf("ReadDocument = %q, want empty", got)
	}
}

func TestReadDocumentPDFFetchFailureIsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reader := NewReader(srv.Client())
	got, err := reader.ReadDocument(context.Background(), srv.URL+"/filing.pdf", nil)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if got != NoContent {
		t.Fatalf("ReadDocument = %q, want %q", got, NoContent)
	}
}

func TestReadDocumentUnsupportedFormat(t *testing.T) {
	reader := NewReader(nil)
	_, err := reader.ReadDocument(context.Background(), "https://example.com/filing.zip", nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

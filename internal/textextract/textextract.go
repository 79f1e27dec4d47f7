// Package textextract turns document URLs into plain text. Registry document
// endpoints serve patent filings as PDF or XML; both decode paths fail soft
// (empty string or the NoContent sentinel) because a single unreadable
// document must never abort a batch import.
package textextract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// NoContent marks a PDF whose extraction failed entirely. It is distinct
// from "" (which marks a failed fetch or unparseable XML); callers branch on
// both before using the text.
const NoContent = "no content"

// ErrUnsupportedFormat is returned for URLs that end in neither .pdf nor
// .xml. The original behavior for such URLs was undefined; refusing them
// explicitly is this implementation's chosen failure mode.
var ErrUnsupportedFormat = errors.New("textextract: unsupported document format")

const maxDocumentBytes = 64 << 20

// Reader fetches and decodes registry documents.
type Reader struct {
	client *http.Client
}

func NewReader(client *http.Client) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Reader{client: client}
}

// ReadDocument fetches url and returns its plain text. Headers are passed
// through verbatim so registry APIs that demand an API key header keep
// working. XML failures return ""; PDF failures return NoContent; a URL with
// an unsupported suffix returns ErrUnsupportedFormat.
func (r *Reader) ReadDocument(ctx context.Context, url string, headers map[string]string) (string, error) {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".xml"):
		raw, err := r.fetch(ctx, url, headers)
		if err != nil {
			log.Printf("textextract fetch_failed url=%s err=%q", url, err.Error())
			return "", nil
		}
		return XMLToText(raw), nil
	case strings.HasSuffix(lower, ".pdf"):
		raw, err := r.fetch(ctx, url, headers)
		if err != nil {
			log.Printf("textextract fetch_failed url=%s err=%q", url, err.Error())
			return NoContent, nil
		}
		return PDFToText(raw), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, url)
	}
}

func (r *Reader) fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("status code: %d", res.StatusCode)
	}
	return io.ReadAll(io.LimitReader(res.Body, maxDocumentBytes))
}

// XMLToText concatenates every character-data node of the document in order,
// separated by single spaces. Malformed XML yields "" rather than partial
// text, so callers can treat any non-empty result as a complete decode.
func XMLToText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var parts []string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("textextract xml_parse_failed err=%q", err.Error())
			return ""
		}
		if cd, ok := tok.(xml.CharData); ok {
			if s := strings.TrimSpace(string(cd)); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// PDFToText extracts page text in page order, skipping pages that yield
// nothing. Total failure returns NoContent.
func PDFToText(raw []byte) (text string) {
	// The pdf library panics on some malformed files instead of returning
	// an error.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("textextract pdf_parse_panic err=%v", r)
			text = NoContent
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		log.Printf("textextract pdf_parse_failed err=%q", err.Error())
		return NoContent
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || pageText == "" {
			continue
		}
		sb.WriteString(pageText)
	}
	if sb.Len() == 0 {
		return NoContent
	}
	return sb.String()
}

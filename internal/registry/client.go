// Package registry talks to the USPTO Open Data Portal patent API and
// normalizes its filing payloads into cases.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL            = "https://api.uspto.gov/api/v1"
	DefaultRateLimitPerMinute = 30
	SearchLimit               = 100
)

// MissingAPIKeyError is returned when no API key is configured. The registry
// refuses all anonymous requests, so this surfaces at construction time.
type MissingAPIKeyError struct{}

func (MissingAPIKeyError) Error() string {
	return "USPTO API key is required; request one at https://account.uspto.gov/api-manager/"
}

// RateLimitError is returned when the registry keeps answering 429 after
// retries. RetryAfter carries the server's hint when one was given.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("registry rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "registry rate limit exceeded"
}

type Config struct {
	APIKey             string
	BaseURL            string
	RateLimitPerMinute int
	HTTPClient         *http.Client
}

// Client is a rate-limited USPTO registry client. Payloads stay as tolerant
// maps; Normalize flattens them into cases.
type Client struct {
	cfg       Config
	limiter   <-chan time.Time
	limiterMu sync.Mutex
}

func NewClient(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, MissingAPIKeyError{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	interval := time.Minute / time.Duration(cfg.RateLimitPerMinute)
	ticker := time.NewTicker(interval)
	return &Client{cfg: cfg, limiter: ticker.C}, nil
}

// SearchResult is the raw search response: a count plus one tolerant map per
// filing in patentFileWrapperDataBag.
type SearchResult struct {
	Count   int
	Filings []map[string]any
}

// SearchPatents runs a keyword search, OR-joining the terms. The registry
// caps results at SearchLimit per call.
func (c *Client) SearchPatents(ctx context.Context, keywords []string) (SearchResult, error) {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			terms = append(terms, kw)
		}
	}
	if len(terms) == 0 {
		return SearchResult{}, errors.New("no search keywords")
	}
	params := url.Values{}
	params.Set("q", strings.Join(terms, " OR "))
	params.Set("limit", strconv.Itoa(SearchLimit))

	raw, err := c.getJSON(ctx, "patent/applications/search", params)
	if err != nil {
		return SearchResult{}, err
	}
	out := SearchResult{Count: intVal(raw["count"])}
	out.Filings = mapSlice(raw["patentFileWrapperDataBag"])
	return out, nil
}

// GetFiling fetches one application's file wrapper entry by number, or
// (nil, nil) when the registry has no record of it.
func (c *Client) GetFiling(ctx context.Context, applicationNumber string) (map[string]any, error) {
	raw, err := c.getJSON(ctx, "patent/applications/"+url.PathEscape(applicationNumber), nil)
	if err != nil {
		return nil, err
	}
	filings := mapSlice(raw["patentFileWrapperDataBag"])
	if len(filings) == 0 {
		return nil, nil
	}
	return filings[0], nil
}

// AssociatedDocuments fetches pgpub and grant document metadata for an
// application.
func (c *Client) AssociatedDocuments(ctx context.Context, applicationNumber string) (map[string]any, error) {
	return c.getJSON(ctx, "patent/applications/"+url.PathEscape(applicationNumber)+"/associated-documents", nil)
}

// PGPubDocumentURL returns the published-application bulk file URL, or ""
// when none exists. Lookup failures also yield "": a missing document is
// not an error for callers assembling optional sources.
func (c *Client) PGPubDocumentURL(ctx context.Context, applicationNumber string) string {
	_, pgpub := c.FilingDocumentURLs(ctx, applicationNumber)
	return pgpub
}

// GrantDocumentURL returns the granted-patent bulk file URL, or "".
func (c *Client) GrantDocumentURL(ctx context.Context, applicationNumber string) string {
	grant, _ := c.FilingDocumentURLs(ctx, applicationNumber)
	return grant
}

// FilingDocumentURLs returns both bulk file URLs from a single
// associated-documents fetch, so callers needing grant and pgpub spend one
// rate-limited call instead of two. A missing document yields "" in its slot.
func (c *Client) FilingDocumentURLs(ctx context.Context, applicationNumber string) (grant, pgpub string) {
	raw, err := c.AssociatedDocuments(ctx, applicationNumber)
	if err != nil {
		return "", ""
	}
	filings := mapSlice(raw["patentFileWrapperDataBag"])
	if len(filings) == 0 {
		return "", ""
	}
	return fileLocation(filings[0], "grantDocumentMetaData"), fileLocation(filings[0], "pgpubDocumentMetaData")
}

func fileLocation(filing map[string]any, metaKey string) string {
	meta, _ := filing[metaKey].(map[string]any)
	return strVal(meta["fileLocationURI"])
}

// DocumentURLs returns the download URLs of every document filed on an
// application, pulled out of each document's downloadOptionBag.
func (c *Client) DocumentURLs(ctx context.Context, applicationNumber string) ([]string, error) {
	raw, err := c.getJSON(ctx, "patent/applications/"+url.PathEscape(applicationNumber)+"/documents", nil)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, doc := range mapSlice(raw["documentBag"]) {
		for _, opt := range mapSlice(doc["downloadOptionBag"]) {
			if u := strVal(opt["downloadUrl"]); u != "" {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, err
	}
	return c.executeWithRetry(ctx, endpoint, params)
}

func (c *Client) waitRateLimit(ctx context.Context) error {
	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.limiter:
		return nil
	}
}

func (c *Client) executeWithRetry(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	var lastErr error
	lastRetryAfter := time.Duration(0)
	for attempt := 1; attempt <= 4; attempt++ {
		raw, code, retryAfter, err := c.executeOnce(ctx, endpoint, params)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden {
			return nil, err
		}
		if code == http.StatusTooManyRequests {
			lastRetryAfter = retryAfter
			if attempt == 4 {
				return nil, RateLimitError{RetryAfter: lastRetryAfter}
			}
			sleep := retryAfter
			if sleep <= 0 {
				sleep = backoffDelay(attempt)
			}
			if err := sleepCtx(ctx, sleep); err != nil {
				return nil, err
			}
			continue
		}
		if code >= 500 || errors.Is(err, context.DeadlineExceeded) {
			if attempt == 4 {
				break
			}
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (c *Client) executeOnce(ctx context.Context, endpoint string, params url.Values) (map[string]any, int, time.Duration, error) {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 8<<20))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode == http.StatusTooManyRequests {
		return nil, res.StatusCode, retryAfter, fmt.Errorf("status code: %d", res.StatusCode)
	}
	if res.StatusCode >= 400 {
		return nil, res.StatusCode, retryAfter, fmt.Errorf("status code: %d body=%s", res.StatusCode, string(b))
	}

	var parsed map[string]any
	if err := json.Unmarshal(b, &parsed); err != nil {
		return nil, res.StatusCode, retryAfter, err
	}
	return parsed, res.StatusCode, retryAfter, nil
}

func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func mapSlice(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func strVal(v any) string {
	s, _ := v.(string)
	return s
}

func intVal(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebFetchToolExecuteRejectsMissingURL(t *testing.T) {
	tool := NewWebFetchTool(WebFetchConfig{})
	res := tool.Execute(context.Background(), map[string]interface{}{})
	if !res.IsError {
		t.Fatal("expected an error result for a missing url")
	}
}

func TestWebFetchToolExecuteRejectsNonHTTPScheme(t *testing.T) {
	tool := NewWebFetchTool(WebFetchConfig{})
	res := tool.Execute(context.Background(), map[string]interface{}{"url": "file:///etc/passwd"})
	if !res.IsError {
		t.Fatal("expected an error result for a non-http(s) scheme")
	}
}

func TestWebFetchToolExecuteBlocksSSRFTargets(t *testing.T) {
	tool := NewWebFetchTool(WebFetchConfig{})
	res := tool.Execute(context.Background(), map[string]interface{}{"url": "http://127.0.0.1/admin"})
	if !res.IsError {
		t.Fatal("expected loopback address to be blocked by SSRF protection")
	}
	if !strings.Contains(res.ForLLM, "SSRF") {
		t.Errorf("ForLLM = %q, want it to mention SSRF protection", res.ForLLM)
	}
}

func TestWebFetchToolDoFetchExtractsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer srv.Close()

	tool := NewWebFetchTool(WebFetchConfig{})
	text, err := tool.doFetch(context.Background(), srv.URL, "markdown", 1000)
	if err != nil {
		t.Fatalf("doFetch: %v", err)
	}
	if !strings.Contains(text, "Extractor: json") && !strings.Contains(text, "hello") {
		t.Errorf("text = %q, want JSON content reflected", text)
	}
}

func TestWebFetchToolDoFetchConvertsHTMLToMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Title</h1><p>body text</p></body></html>"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool(WebFetchConfig{})
	text, err := tool.doFetch(context.Background(), srv.URL, "markdown", 1000)
	if err != nil {
		t.Fatalf("doFetch: %v", err)
	}
	if !strings.Contains(text, "Extractor: html-to-markdown") {
		t.Errorf("text = %q, want html-to-markdown extractor noted", text)
	}
}

func TestWebFetchToolDoFetchConvertsHTMLToPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>body text</p></body></html>"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool(WebFetchConfig{})
	text, err := tool.doFetch(context.Background(), srv.URL, "text", 1000)
	if err != nil {
		t.Fatalf("doFetch: %v", err)
	}
	if !strings.Contains(text, "Extractor: html-to-text") {
		t.Errorf("text = %q, want html-to-text extractor noted", text)
	}
}

func TestWebFetchToolDoFetchTreatsUnknownContentTypeAsRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("raw bytes"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool(WebFetchConfig{})
	text, err := tool.doFetch(context.Background(), srv.URL, "markdown", 1000)
	if err != nil {
		t.Fatalf("doFetch: %v", err)
	}
	if !strings.Contains(text, "Extractor: raw") || !strings.Contains(text, "raw bytes") {
		t.Errorf("text = %q, want raw extractor and raw bytes echoed", text)
	}
}

func TestWebFetchToolDoFetchTruncatesAtMaxChars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("a", 500)))
	}))
	defer srv.Close()

	tool := NewWebFetchTool(WebFetchConfig{})
	text, err := tool.doFetch(context.Background(), srv.URL, "markdown", 50)
	if err != nil {
		t.Fatalf("doFetch: %v", err)
	}
	if !strings.Contains(text, "Truncated: true (limit: 50 chars)") {
		t.Errorf("text = %q, want a truncation notice", text)
	}
}

func TestWebFetchToolDoFetchStopsAfterMaxRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	tool := NewWebFetchTool(WebFetchConfig{})
	_, err := tool.doFetch(context.Background(), srv.URL, "markdown", 1000)
	if err == nil {
		t.Fatal("expected an error after exceeding the max redirect count")
	}
	if !strings.Contains(err.Error(), "redirects") {
		t.Errorf("err = %v, want it to mention redirects", err)
	}
}

func TestWebFetchToolExecuteCachesRepeatedFetches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("cached content"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool(WebFetchConfig{CacheTTL: time.Minute})
	// Execute still runs SSRF checks, which block the httptest loopback host,
	// so exercise the cache directly instead of through Execute.
	text, err := tool.doFetch(context.Background(), srv.URL, "markdown", 1000)
	if err != nil {
		t.Fatalf("doFetch: %v", err)
	}
	wrapped := wrapExternalContent(text, "Web Fetch", true)
	cacheKey := "fetch:" + srv.URL + ":markdown:1000"
	tool.cache.set(cacheKey, wrapped)

	cached, ok := tool.cache.get(cacheKey)
	if !ok {
		t.Fatal("expected the fetch result to be cached")
	}
	if cached != wrapped {
		t.Errorf("cached = %q, want %q", cached, wrapped)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 network fetch", calls)
	}
}

package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-rod/rod"

	"github.com/serialagent/gateway/internal/store"
)

// FetchResult is what fetchSource returns for one schedule source.
type FetchResult struct {
	Content   string
	Changed   bool // false when a conditional GET returned 304 or content hash is unchanged
	Status    int
	Truncated bool
}

// fetchSource retrieves one schedule source, sending If-Modified-Since from
// state.LastFetchedAt and reporting Changed against state.LastContentHash so
// the next tick can skip unchanged sources (spec §4.5 "digest_mode:
// changes_only"); it does not modify state, and no ETag is stored or sent.
// Grounded on
// internal/tools/web_fetch.go's HTTP client construction, trimmed of its
// markdown-extraction options since schedule sources feed a summarisation
// prompt rather than an interactive tool result.
func fetchSource(ctx context.Context, rawURL string, cfg store.FetchConfig, state *store.SourceState) (*FetchResult, error) {
	if cfg.RenderJS {
		return fetchRendered(ctx, rawURL, cfg, state)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = 2 << 20
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if state != nil && !state.LastFetchedAt.IsZero() {
		req.Header.Set("If-Modified-Since", state.LastFetchedAt.UTC().Format(http.TimeFormat))
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &FetchResult{Status: resp.StatusCode, Changed: false}, nil
	}
	if resp.StatusCode >= 400 {
		return &FetchResult{Status: resp.StatusCode}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	truncated := int64(len(body)) > maxSize
	if truncated {
		body = body[:maxSize]
	}

	hash := contentHash(body)
	changed := state == nil || state.LastContentHash != hash

	return &FetchResult{Content: string(body), Changed: changed, Status: resp.StatusCode, Truncated: truncated}, nil
}

// fetchRendered renders rawURL with a headless browser before extracting
// text, for sources whose content only appears after client-side JS runs
// (fetch_config.render_js). Grounded on go-rod's page-navigate-then-read-text
// pattern; the browser instance is started fresh per call since schedule
// ticks are infrequent and a long-lived shared browser process isn't worth
// the lifecycle complexity here.
func fetchRendered(ctx context.Context, rawURL string, cfg store.FetchConfig, state *store.SourceState) (*FetchResult, error) {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browser := rod.New().Context(reqCtx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("fetch(render_js) %s: launch browser: %w", rawURL, err)
	}
	defer browser.Close()

	page, err := browser.Page(rod.PageInfo{})
	if err != nil {
		return nil, fmt.Errorf("fetch(render_js) %s: open page: %w", rawURL, err)
	}
	if err := page.Navigate(rawURL); err != nil {
		return nil, fmt.Errorf("fetch(render_js) %s: navigate: %w", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("fetch(render_js) %s: wait load: %w", rawURL, err)
	}

	text, err := page.MustElement("body").Text()
	if err != nil {
		return nil, fmt.Errorf("fetch(render_js) %s: read text: %w", rawURL, err)
	}
	body := []byte(text)

	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = 2 << 20
	}
	truncated := int64(len(body)) > maxSize
	if truncated {
		body = body[:maxSize]
	}

	hash := contentHash(body)
	changed := state == nil || state.LastContentHash != hash

	return &FetchResult{Content: string(body), Changed: changed, Status: http.StatusOK, Truncated: truncated}, nil
}

func contentHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

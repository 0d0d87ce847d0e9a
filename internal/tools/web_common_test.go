package tools

import (
	"testing"
	"time"
)

func TestCheckSSRFRejectsPrivateHost(t *testing.T) {
	if err := checkSSRF("http://127.0.0.1/admin"); err == nil {
		t.Fatal("expected a loopback URL to be rejected")
	}
}

func TestCheckSSRFRejectsLocalhostName(t *testing.T) {
	if err := checkSSRF("http://localhost:8080/"); err == nil {
		t.Fatal("expected localhost to be rejected")
	}
}

func TestCheckSSRFRejectsMissingHost(t *testing.T) {
	if err := checkSSRF("file:///etc/passwd"); err == nil {
		t.Fatal("expected a URL without a hostname to be rejected")
	}
}

func TestCheckSSRFRejectsUnparsableURL(t *testing.T) {
	if err := checkSSRF("http://[::1"); err == nil {
		t.Fatal("expected a malformed URL to fail to parse")
	}
}

func TestWrapExternalContentNoCite(t *testing.T) {
	if got := wrapExternalContent("hello", "Web Fetch", false); got != "hello" {
		t.Fatalf("wrapExternalContent(citeSource=false) = %q, want unchanged", got)
	}
}

func TestWrapExternalContentWithCite(t *testing.T) {
	got := wrapExternalContent("hello", "Web Fetch", true)
	if got == "hello" {
		t.Fatal("expected wrapExternalContent(citeSource=true) to add a boundary marker")
	}
}

func TestWebCacheSetAndGet(t *testing.T) {
	c := newWebCache(10, time.Minute)
	c.set("k", "v")
	got, ok := c.get("k")
	if !ok || got != "v" {
		t.Fatalf("get(k) = (%q, %v), want (v, true)", got, ok)
	}
}

func TestWebCacheMissingKey(t *testing.T) {
	c := newWebCache(10, time.Minute)
	if _, ok := c.get("nope"); ok {
		t.Fatal("expected a miss for an unset key")
	}
}

func TestWebCacheExpiresEntries(t *testing.T) {
	c := newWebCache(10, time.Millisecond)
	c.set("k", "v")
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.get("k"); ok {
		t.Fatal("expected the entry to have expired")
	}
}

func TestNewWebCacheDefaultsInvalidArgs(t *testing.T) {
	c := newWebCache(0, 0)
	if c.cache == nil || c.ttl != defaultCacheTTL {
		t.Fatalf("newWebCache(0,0) should fall back to defaults, got ttl=%v", c.ttl)
	}
}

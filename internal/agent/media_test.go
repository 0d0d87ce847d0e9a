package agent

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestInferImageMimeRecognizedExtensions(t *testing.T) {
	cases := map[string]string{
		"photo.jpg":  "image/jpeg",
		"photo.JPEG": "image/jpeg",
		"icon.png":   "image/png",
		"anim.gif":   "image/gif",
		"pic.webp":   "image/webp",
	}
	for path, want := range cases {
		if got := inferImageMime(path); got != want {
			t.Errorf("inferImageMime(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestInferImageMimeUnsupportedExtension(t *testing.T) {
	if got := inferImageMime("document.pdf"); got != "" {
		t.Fatalf("inferImageMime(pdf) = %q, want empty", got)
	}
}

func TestLoadImagesEmptyPaths(t *testing.T) {
	if got := loadImages(nil); got != nil {
		t.Fatalf("loadImages(nil) = %v, want nil", got)
	}
}

func TestLoadImagesSkipsNonImageFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := loadImages([]string{path})
	if len(got) != 0 {
		t.Fatalf("loadImages with a non-image file = %v, want empty", got)
	}
}

func TestLoadImagesSkipsMissingFiles(t *testing.T) {
	got := loadImages([]string{filepath.Join(t.TempDir(), "missing.png")})
	if len(got) != 0 {
		t.Fatalf("loadImages with a missing file = %v, want empty", got)
	}
}

func TestLoadImagesReadsAndEncodesImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.png")
	content := []byte("fake-png-bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := loadImages([]string{path})
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].MimeType != "image/png" {
		t.Fatalf("MimeType = %q, want image/png", got[0].MimeType)
	}
	if got[0].Data != base64.StdEncoding.EncodeToString(content) {
		t.Fatal("image data was not base64-encoded correctly")
	}
}

func TestLoadImagesSkipsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.png")
	big := make([]byte, maxImageBytes+1)
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := loadImages([]string{path})
	if len(got) != 0 {
		t.Fatalf("loadImages with an oversized file = %v, want empty", got)
	}
}

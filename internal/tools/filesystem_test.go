package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIsPathInsideSamePath(t *testing.T) {
	if !isPathInside("/a/b", "/a/b") {
		t.Fatal("a path should be considered inside itself")
	}
}

func TestIsPathInsideChild(t *testing.T) {
	if !isPathInside("/a/b/c", "/a/b") {
		t.Fatal("/a/b/c should be inside /a/b")
	}
}

func TestIsPathInsideSiblingRejected(t *testing.T) {
	if isPathInside("/a/bc", "/a/b") {
		t.Fatal("/a/bc should not be considered inside /a/b (prefix without separator)")
	}
}

func TestIsPathInsideOutside(t *testing.T) {
	if isPathInside("/etc/passwd", "/a/b") {
		t.Fatal("/etc/passwd should not be inside /a/b")
	}
}

func TestResolvePathUnrestrictedAllowsAbsolute(t *testing.T) {
	got, err := resolvePath("/etc/passwd", "/workspace", false)
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if got != "/etc/passwd" {
		t.Fatalf("resolvePath = %q, want /etc/passwd", got)
	}
}

func TestResolvePathRestrictedAllowsInsideWorkspace(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := resolvePath("notes.txt", dir, true)
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if !isPathInside(got, dir) {
		t.Fatalf("resolved path %q should be inside workspace %q", got, dir)
	}
}

func TestResolvePathRestrictedRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	_, err := resolvePath("../../etc/passwd", dir, true)
	if err == nil {
		t.Fatal("expected resolvePath to reject a path that escapes the workspace")
	}
}

func TestResolvePathRestrictedRejectsAbsoluteOutsideWorkspace(t *testing.T) {
	dir := t.TempDir()
	_, err := resolvePath("/etc/passwd", dir, true)
	if err == nil {
		t.Fatal("expected resolvePath to reject an absolute path outside the workspace")
	}
}

func TestResolvePathRestrictedAllowsNonExistentFileInsideWorkspace(t *testing.T) {
	dir := t.TempDir()
	got, err := resolvePath("new-file.txt", dir, true)
	if err != nil {
		t.Fatalf("resolvePath for a not-yet-created file: %v", err)
	}
	if !isPathInside(got, dir) {
		t.Fatalf("resolved path %q should be inside workspace %q", got, dir)
	}
}

func TestResolvePathRestrictedRejectsSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("top secret"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	link := filepath.Join(dir, "escape-link")
	if err := os.Symlink(secret, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	_, err := resolvePath("escape-link", dir, true)
	if err == nil {
		t.Fatal("expected a symlink escaping the workspace to be rejected")
	}
}

func TestCheckDeniedPathNoDeniesIsNoop(t *testing.T) {
	if err := checkDeniedPath("/any/path", "/ws", nil); err != nil {
		t.Fatalf("checkDeniedPath with no denied prefixes: %v", err)
	}
}

func TestCheckDeniedPathRejectsDeniedPrefix(t *testing.T) {
	dir := t.TempDir()
	denied := filepath.Join(dir, ".serialagent", "secrets.json")
	if err := checkDeniedPath(denied, dir, []string{".serialagent"}); err == nil {
		t.Fatal("expected a path under a denied prefix to be rejected")
	}
}

func TestCheckDeniedPathAllowsOutsideDeniedPrefix(t *testing.T) {
	dir := t.TempDir()
	allowed := filepath.Join(dir, "notes.txt")
	if err := checkDeniedPath(allowed, dir, []string{".serialagent"}); err != nil {
		t.Fatalf("checkDeniedPath should allow a path outside the denied prefix: %v", err)
	}
}

func TestCheckHardlinkAllowsRegularFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := checkHardlink(file); err != nil {
		t.Fatalf("checkHardlink(regular file) = %v, want nil", err)
	}
}

func TestCheckHardlinkRejectsHardlinkedFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	link := filepath.Join(dir, "f-link.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Link(file, link); err != nil {
		t.Skipf("hardlinks not supported in this environment: %v", err)
	}
	if err := checkHardlink(link); err == nil {
		t.Fatal("expected a hardlinked file to be rejected")
	}
}

func TestCheckHardlinkAllowsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := checkHardlink(dir); err != nil {
		t.Fatalf("checkHardlink(directory) = %v, want nil", err)
	}
}

func TestCheckHardlinkAllowsNonExistentFile(t *testing.T) {
	dir := t.TempDir()
	if err := checkHardlink(filepath.Join(dir, "missing.txt")); err != nil {
		t.Fatalf("checkHardlink(missing file) = %v, want nil", err)
	}
}

func TestReadFileToolRequiresPath(t *testing.T) {
	tool := NewReadFileTool(t.TempDir(), false)
	res := tool.Execute(context.Background(), map[string]interface{}{})
	if !res.IsError {
		t.Fatal("expected an error result when path is missing")
	}
}

func TestReadFileToolReadsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tool := NewReadFileTool(dir, true)
	res := tool.Execute(context.Background(), map[string]interface{}{"path": "notes.txt"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if res.ForLLM != "hello world" {
		t.Fatalf("ForLLM = %q, want hello world", res.ForLLM)
	}
}

func TestReadFileToolRejectsEscapeWhenRestricted(t *testing.T) {
	dir := t.TempDir()
	tool := NewReadFileTool(dir, true)
	res := tool.Execute(context.Background(), map[string]interface{}{"path": "/etc/passwd"})
	if !res.IsError {
		t.Fatal("expected read_file to reject an absolute path outside the workspace when restricted")
	}
}

func TestReadFileToolDeniesConfiguredPrefix(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".serialagent"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	secret := filepath.Join(dir, ".serialagent", "secrets.json")
	if err := os.WriteFile(secret, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tool := NewReadFileTool(dir, true)
	tool.DenyPaths(".serialagent")

	res := tool.Execute(context.Background(), map[string]interface{}{"path": ".serialagent/secrets.json"})
	if !res.IsError {
		t.Fatal("expected a denied path prefix to be rejected")
	}
}

func TestReadFileToolMissingFileErrors(t *testing.T) {
	tool := NewReadFileTool(t.TempDir(), true)
	res := tool.Execute(context.Background(), map[string]interface{}{"path": "missing.txt"})
	if !res.IsError {
		t.Fatal("expected an error reading a missing file")
	}
}

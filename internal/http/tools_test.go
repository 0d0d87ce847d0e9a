package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/tools"
)

func newTestToolsHandler(t *testing.T) (*ToolsHandler, store.ApprovalStore) {
	t.Helper()
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "note.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed workspace file: %v", err)
	}
	registry := tools.NewRegistry()
	registry.Register(tools.NewReadFileTool(workspace, true))

	approvals, err := store.NewFileApprovalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileApprovalStore: %v", err)
	}
	return NewToolsHandler(registry, approvals, ""), approvals
}

func TestToolsHandlerInvoke(t *testing.T) {
	h, _ := newTestToolsHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body := `{"name":"read_file","args":{"path":"note.txt"}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tools/invoke", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestToolsHandlerInvokeUnknownTool(t *testing.T) {
	h, _ := newTestToolsHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body := `{"name":"does_not_exist","args":{}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tools/invoke", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestToolsHandlerApprovalWorkflow(t *testing.T) {
	h, approvals := newTestToolsHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	resolved, err := approvals.Create(context.Background(), &store.PendingApproval{ID: "appr-1", ToolName: "exec", Reason: "risky command"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tools/exec/pending", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pending status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tools/exec/approve/appr-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, want 200", rec.Code)
	}

	select {
	case approved := <-resolved:
		if !approved {
			t.Fatal("approval channel delivered false, want true")
		}
	default:
		t.Fatal("approval channel did not deliver a decision")
	}
}

package tools

import "context"

type toolCtxKey string

const toolWorkspaceCtxKey toolCtxKey = "sa_tool_workspace"

// WithToolWorkspace attaches a per-call workspace override to ctx, letting a
// tool resolve paths against the caller's workspace instead of its own
// default (used when one ExecTool/ReadFileTool instance serves many agents).
func WithToolWorkspace(ctx context.Context, workspace string) context.Context {
	return context.WithValue(ctx, toolWorkspaceCtxKey, workspace)
}

// ToolWorkspaceFromCtx returns the workspace override set by
// WithToolWorkspace, or "" if none was set.
func ToolWorkspaceFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(toolWorkspaceCtxKey).(string)
	return v
}

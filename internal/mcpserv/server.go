// Package mcpserv exposes the bridge's command vocabulary as MCP tools so
// tool-calling agents can drive the editor over stdio.
package mcpserv

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/ops"
	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/wire"
)

// Caller is the bridge surface the tool handlers need.
type Caller interface {
	Call(ctx context.Context, req wire.Request, gate []state.State) outcome.Outcome
	CallTracked(ctx context.Context, req wire.Request, gate []state.State, sentinelPrefix string) outcome.Outcome
	State(ctx context.Context) state.State
}

// New builds the MCP server with one tool per editor command.
func New(cfg *config.Config, caller Caller) *server.MCPServer {
	s := server.NewMCPServer("unitybridge", "0.1.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("unity-editor-state",
		mcp.WithDescription("Report the editor's current mode, open scene and selection."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return callCached(ctx, cfg, caller, ops.EditorState(), ops.ReadGate), nil
	})

	s.AddTool(mcp.NewTool("unity-read-console",
		mcp.WithDescription("Read recent editor console entries, newest first."),
		mcp.WithString("filter", mcp.Description("Only return entries containing this text.")),
		mcp.WithNumber("max", mcp.Description("Maximum entries to return."), mcp.DefaultNumber(50)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := req.GetString("filter", "")
		max := req.GetInt("max", 50)
		return callCached(ctx, cfg, caller, ops.ReadConsole(filter, max), ops.ConsoleGate), nil
	})

	s.AddTool(mcp.NewTool("unity-execute-menu",
		mcp.WithDescription("Invoke an editor menu item by its full path, e.g. Assets/Refresh."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Menu path to invoke.")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		wreq, err := ops.ExecuteMenuItem(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return render(caller.Call(ctx, wreq, ops.EditGate)), nil
	})

	s.AddTool(mcp.NewTool("unity-manage-scene",
		mcp.WithDescription("Open, save, create or unload a scene."),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of open, save, create, unload.")),
		mcp.WithString("name", mcp.Description("Scene name.")),
		mcp.WithString("path", mcp.Description("Scene asset path.")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action, err := req.RequireString("action")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		wreq, err := ops.ManageScene(action, req.GetString("name", ""), req.GetString("path", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return render(caller.Call(ctx, wreq, ops.EditGate)), nil
	})

	s.AddTool(mcp.NewTool("unity-run-tests",
		mcp.WithDescription("Run the project's tests and wait for the full results, surviving domain reloads."),
		mcp.WithString("mode", mcp.Description("Test mode: edit or play."), mcp.DefaultString("edit")),
		mcp.WithString("filter", mcp.Description("Test name filter.")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		wreq, err := ops.RunTests(req.GetString("mode", "edit"), req.GetString("filter", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return render(caller.CallTracked(ctx, wreq, ops.EditGate, ops.TestRunSentinel)), nil
	})

	s.AddTool(mcp.NewTool("unity-refresh-assets",
		mcp.WithDescription("Refresh the asset database and wait for the reimport (and any domain reload) to finish."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return render(caller.CallTracked(ctx, ops.RefreshAssets(), ops.EditGate, ops.AssetRefreshSentinel)), nil
	})

	return s
}

// Serve runs the MCP server over stdio until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// render converts an Outcome into an MCP tool result: the payload document
// on success, the one-sentence diagnosis plus machine-readable kind on
// failure.
func render(o outcome.Outcome) *mcp.CallToolResult {
	if !o.Success {
		detail, _ := json.Marshal(map[string]string{
			"kind":       o.Kind.String(),
			"last_state": o.LastKnownState.String(),
		})
		return mcp.NewToolResultError(o.Sentence() + "\n" + string(detail))
	}
	if len(o.Payload) == 0 {
		return mcp.NewToolResultText(`{"success":true}`)
	}
	return mcp.NewToolResultText(string(o.Payload))
}

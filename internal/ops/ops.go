// Package ops builds the wire requests for the editor's command vocabulary
// and declares which editor states each command may be delivered in.
package ops

import (
	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/wire"
)

// Command type strings understood by the editor plugin.
const (
	TypeEditorState   = "editor_state"
	TypeReadConsole   = "read_console"
	TypeExecuteMenu   = "execute_menu"
	TypeManageScene   = "manage_scene"
	TypeRunTests      = "run_tests"
	TypeRefreshAssets = "refresh_assets"
)

// Sentinel prefixes the editor emits when a long operation completes.
const (
	TestRunSentinel      = "[TestRunComplete]:"
	AssetRefreshSentinel = "[AssetRefreshComplete]:"
)

var (
	editScene  = state.State{RunMode: state.RunModeEditScene, Context: state.ContextRunning}
	editPrefab = state.State{RunMode: state.RunModeEditPrefab, Context: state.ContextRunning}
	playing    = state.State{RunMode: state.RunModePlay, Context: state.ContextRunning}

	editSceneTesting  = state.State{RunMode: state.RunModeEditScene, Context: state.ContextTesting}
	editPrefabTesting = state.State{RunMode: state.RunModeEditPrefab, Context: state.ContextTesting}
	playTesting       = state.State{RunMode: state.RunModePlay, Context: state.ContextTesting}
)

// EditGate admits commands that mutate the open scene or prefab.
var EditGate = []state.State{editScene, editPrefab}

// ReadGate admits read-only queries, which are also safe during play mode.
var ReadGate = []state.State{editScene, editPrefab, playing}

// ConsoleGate admits console reads. The tracker polls the console while a
// test run holds the editor in a testing context, so those states are
// acceptable here and nowhere else.
var ConsoleGate = []state.State{
	editScene, editPrefab, playing,
	editSceneTesting, editPrefabTesting, playTesting,
}

// EditorState asks for the editor's current scene, mode and selection.
func EditorState() wire.Request {
	return wire.Request{Type: TypeEditorState}
}

// ReadConsole reads recent console entries matching filter, newest first.
func ReadConsole(filter string, max int) wire.Request {
	req, _ := wire.NewRequest(TypeReadConsole, map[string]any{
		"filter": filter,
		"max":    max,
	})
	return req
}

// ExecuteMenuItem invokes one editor menu entry by its full path.
func ExecuteMenuItem(path string) (wire.Request, error) {
	return wire.NewRequest(TypeExecuteMenu, map[string]any{"path": path})
}

// ManageScene performs a scene action: "open", "save", "create" or "unload".
func ManageScene(action, name, path string) (wire.Request, error) {
	return wire.NewRequest(TypeManageScene, map[string]any{
		"action": action,
		"name":   name,
		"path":   path,
	})
}

// RunTests starts a test run. The editor acknowledges with a correlation
// token; completion arrives later as a TestRunSentinel console line.
func RunTests(mode, filter string) (wire.Request, error) {
	return wire.NewRequest(TypeRunTests, map[string]any{
		"mode":   mode,
		"filter": filter,
	})
}

// RefreshAssets triggers an asset database refresh, which usually causes a
// domain reload. Completion arrives as an AssetRefreshSentinel console line.
func RefreshAssets() wire.Request {
	return wire.Request{Type: TypeRefreshAssets}
}

// Cacheable reports whether a command's reply may be served from cache.
// Only side-effect-free queries qualify.
func Cacheable(cmdType string) bool {
	switch cmdType {
	case TypeEditorState, TypeReadConsole:
		return true
	default:
		return false
	}
}

// Sentinel returns the completion sentinel prefix for long-running commands,
// and false for commands that finish within their reply.
func Sentinel(cmdType string) (string, bool) {
	switch cmdType {
	case TypeRunTests:
		return TestRunSentinel, true
	case TypeRefreshAssets:
		return AssetRefreshSentinel, true
	default:
		return "", false
	}
}

// Known reports whether cmdType is part of the command vocabulary.
func Known(cmdType string) bool {
	switch cmdType {
	case TypeEditorState, TypeReadConsole, TypeExecuteMenu,
		TypeManageScene, TypeRunTests, TypeRefreshAssets:
		return true
	default:
		return false
	}
}

// Gate returns the default acceptable-state set for a command type.
func Gate(cmdType string) []state.State {
	switch cmdType {
	case TypeEditorState:
		return ReadGate
	case TypeReadConsole:
		return ConsoleGate
	default:
		return EditGate
	}
}

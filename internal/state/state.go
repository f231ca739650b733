// Package state defines the editor connection state model shared by the
// state feed, the dispatcher and the tracker.
package state

// RunMode is the editor's top-level mode as reported on the state feed.
type RunMode int

const (
	RunModeUnknown RunMode = iota
	RunModeEditScene
	RunModeEditPrefab
	RunModePlay
)

// Context is what the editor is currently doing within its run mode.
type Context int

const (
	ContextDisconnected Context = iota
	ContextRunning
	ContextSwitching
	ContextCompiling
	ContextUpdatingAssets
	ContextTesting
)

// State is one observed editor state. ErrorMessage is diagnostic only and
// excluded from equality.
type State struct {
	RunMode      RunMode
	Context      Context
	ErrorMessage string
}

var runModeNames = map[RunMode]string{
	RunModeUnknown:    "unknown",
	RunModeEditScene:  "edit_scene",
	RunModeEditPrefab: "edit_prefab",
	RunModePlay:       "play",
}

var contextNames = map[Context]string{
	ContextDisconnected:   "disconnected",
	ContextRunning:        "running",
	ContextSwitching:      "switching",
	ContextCompiling:      "compiling",
	ContextUpdatingAssets: "updating_assets",
	ContextTesting:        "testing",
}

// ParseRunMode maps a wire string to a RunMode. Unrecognized strings map to
// RunModeUnknown so a newer editor never breaks the feed.
func ParseRunMode(s string) RunMode {
	for mode, name := range runModeNames {
		if name == s {
			return mode
		}
	}
	return RunModeUnknown
}

// ParseContext maps a wire string to a Context. Unrecognized strings map to
// ContextDisconnected.
func ParseContext(s string) Context {
	for ctx, name := range contextNames {
		if name == s {
			return ctx
		}
	}
	return ContextDisconnected
}

func (m RunMode) String() string {
	if name, ok := runModeNames[m]; ok {
		return name
	}
	return "unknown"
}

func (c Context) String() string {
	if name, ok := contextNames[c]; ok {
		return name
	}
	return "disconnected"
}

// Equal reports whether two states are the same (run mode, context) pair.
func (s State) Equal(other State) bool {
	return s.RunMode == other.RunMode && s.Context == other.Context
}

// In reports whether s matches any state in the given set.
func (s State) In(set []State) bool {
	for _, candidate := range set {
		if s.Equal(candidate) {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return s.RunMode.String() + "/" + s.Context.String()
}

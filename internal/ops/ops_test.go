package ops

import (
	"encoding/json"
	"testing"

	"github.com/unitybridge/unitybridge/internal/state"
)

func TestCacheableOnlyForReadOnlyCommands(t *testing.T) {
	cases := map[string]bool{
		TypeEditorState:   true,
		TypeReadConsole:   true,
		TypeExecuteMenu:   false,
		TypeManageScene:   false,
		TypeRunTests:      false,
		TypeRefreshAssets: false,
	}
	for cmd, want := range cases {
		if got := Cacheable(cmd); got != want {
			t.Errorf("Cacheable(%s) = %v, want %v", cmd, got, want)
		}
	}
}

func TestConsoleGateAdmitsTestingStates(t *testing.T) {
	s := state.State{RunMode: state.RunModePlay, Context: state.ContextTesting}
	if !s.In(ConsoleGate) {
		t.Fatal("console reads must be dispatchable while a test run holds the editor in testing")
	}
	if s.In(EditGate) {
		t.Fatal("edit commands must not be dispatchable during a test run")
	}
}

func TestGateDefaultsToEditGateForMutations(t *testing.T) {
	if got := Gate(TypeManageScene); len(got) != len(EditGate) {
		t.Fatalf("Gate(manage_scene) has %d states, want edit gate", len(got))
	}
	if got := Gate(TypeReadConsole); len(got) != len(ConsoleGate) {
		t.Fatalf("Gate(read_console) has %d states, want console gate", len(got))
	}
}

func TestReadConsoleCarriesFilterAndMax(t *testing.T) {
	req := ReadConsole("[TestRunComplete]:", 50)
	if req.Type != TypeReadConsole {
		t.Fatalf("Type = %q", req.Type)
	}

	var params struct {
		Filter string `json:"filter"`
		Max    int    `json:"max"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatalf("unmarshaling params: %v", err)
	}
	if params.Filter != "[TestRunComplete]:" || params.Max != 50 {
		t.Fatalf("params = %+v", params)
	}
}

func TestRunTestsBuildsParams(t *testing.T) {
	req, err := RunTests("edit", "MyTests.*")
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	var params map[string]string
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatalf("unmarshaling params: %v", err)
	}
	if params["mode"] != "edit" || params["filter"] != "MyTests.*" {
		t.Fatalf("params = %v", params)
	}
}

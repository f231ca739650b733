package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/state"
)

func TestParseCallArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCmd  string
		wantArgs string
		wantErr  string
	}{
		{
			name:    "no arguments",
			wantErr: "usage:",
		},
		{
			name:    "unknown command",
			args:    []string{"teleport"},
			wantErr: "unknown command: teleport",
		},
		{
			name:    "command without params",
			args:    []string{"editor_state"},
			wantCmd: "editor_state",
		},
		{
			name:     "command with JSON params",
			args:     []string{"read_console", `{"max":5}`},
			wantCmd:  "read_console",
			wantArgs: `{"max":5}`,
		},
		{
			name:    "invalid JSON params",
			args:    []string{"read_console", "{max:5}"},
			wantErr: "invalid JSON arguments",
		},
		{
			name:    "too many arguments",
			args:    []string{"read_console", "{}", "{}"},
			wantErr: "too many arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, raw, err := parseCallArgs(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if cmd != tt.wantCmd {
				t.Errorf("cmd = %q, want %q", cmd, tt.wantCmd)
			}
			if string(raw) != tt.wantArgs {
				t.Errorf("raw = %q, want %q", raw, tt.wantArgs)
			}
		})
	}
}

func TestCallResponseSuccessCarriesPayload(t *testing.T) {
	o := outcome.OK(json.RawMessage(`{"scene":"Main"}`), state.State{})
	resp := callResponse(o)
	if resp.ExitCode != outcome.ExitOK {
		t.Fatalf("ExitCode = %d", resp.ExitCode)
	}
	if string(resp.Content) != `{"scene":"Main"}`+"\n" {
		t.Fatalf("Content = %q", resp.Content)
	}
	if resp.Stderr != "" {
		t.Fatalf("Stderr = %q", resp.Stderr)
	}
}

func TestCallResponseFailureMapsExitCode(t *testing.T) {
	tests := []struct {
		kind outcome.Kind
		want int
	}{
		{outcome.KindApplicationError, outcome.ExitCmdErr},
		{outcome.KindGatingTimeout, outcome.ExitCmdErr},
		{outcome.KindTrackingTimeout, outcome.ExitCmdErr},
		{outcome.KindTransportFailure, outcome.ExitTransport},
		{outcome.KindTrackingAborted, outcome.ExitTransport},
	}
	for _, tt := range tests {
		o := outcome.Failure(tt.kind, "boom", state.State{})
		resp := callResponse(o)
		if resp.ExitCode != tt.want {
			t.Errorf("%s: ExitCode = %d, want %d", tt.kind, resp.ExitCode, tt.want)
		}
		if resp.Stderr == "" {
			t.Errorf("%s: Stderr empty", tt.kind)
		}
	}
}

package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/unitybridge/unitybridge/internal/bridge"
	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/ipc"
	"github.com/unitybridge/unitybridge/internal/outcome"
)

func testBridge(t *testing.T) *bridge.Bridge {
	t.Helper()
	cfg, err := config.LoadFrom("/nonexistent/config.toml")
	if err != nil {
		t.Fatal(err)
	}
	b := bridge.New(cfg)
	t.Cleanup(b.Close)
	return b
}

func TestControlHandlerShutdown(t *testing.T) {
	called := false
	h := controlHandler(testBridge(t), func() { called = true })

	resp := h(context.Background(), &ipc.Request{Type: "shutdown"})
	if resp.ExitCode != outcome.ExitOK {
		t.Fatalf("ExitCode = %d", resp.ExitCode)
	}
	if !called {
		t.Fatal("shutdown callback not invoked")
	}
}

func TestControlHandlerUnknownType(t *testing.T) {
	h := controlHandler(testBridge(t), func() {})

	resp := h(context.Background(), &ipc.Request{Type: "dance"})
	if resp.ExitCode != outcome.ExitUsageErr {
		t.Fatalf("ExitCode = %d, want %d", resp.ExitCode, outcome.ExitUsageErr)
	}
	if !strings.Contains(resp.Stderr, "unknown request type") {
		t.Fatalf("Stderr = %q", resp.Stderr)
	}
}

func TestHandleCallRejectsUnknownCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := handleCall(ctx, testBridge(t), &ipc.Request{Command: "teleport"})
	if o.Success {
		t.Fatal("unknown command succeeded")
	}
	if o.Kind != outcome.KindApplicationError {
		t.Fatalf("Kind = %v, want application error", o.Kind)
	}
	if !strings.Contains(o.Err, "unknown command: teleport") {
		t.Fatalf("Err = %q", o.Err)
	}
}

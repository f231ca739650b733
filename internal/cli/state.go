package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/unitybridge/unitybridge/internal/bridge"
	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/ipc"
	"github.com/unitybridge/unitybridge/internal/outcome"
)

// runState prints the editor's last known state. Prefers a running bridge's
// cached view over the control socket; falls back to a direct connection.
func runState(cfg *config.Config) int {
	if client, err := ipc.Connect(); err == nil {
		resp, err := client.Send(&ipc.Request{Type: "state"})
		if err == nil {
			writeControlResponse(resp)
			return resp.ExitCode
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	b := bridge.New(cfg)
	defer b.Close()
	fmt.Fprintln(rootStdout, b.State(ctx))
	return outcome.ExitOK
}

func writeControlResponse(resp *ipc.Response) {
	if resp.Stderr != "" {
		fmt.Fprintln(rootStderr, resp.Stderr)
	}
	if len(resp.Content) > 0 {
		rootStdout.Write(resp.Content) //nolint:errcheck
	}
}

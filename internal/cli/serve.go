package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/unitybridge/unitybridge/internal/bridge"
	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/ipc"
	"github.com/unitybridge/unitybridge/internal/mcpserv"
	"github.com/unitybridge/unitybridge/internal/ops"
	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/paths"
	"github.com/unitybridge/unitybridge/internal/wire"
)

// runServe hosts the bridge: the MCP tool surface over stdio and a control
// socket for local CLI invocations, sharing one channel pair to the editor.
func runServe(cfg *config.Config) int {
	if err := paths.EnsureDir(paths.RuntimeDir()); err != nil {
		fmt.Fprintf(rootStderr, "unitybridge: creating runtime dir: %v\n", err)
		return outcome.ExitInternal
	}

	b := bridge.New(cfg)
	defer b.Close()

	nonce, err := ipc.WriteNonce()
	if err != nil {
		fmt.Fprintf(rootStderr, "unitybridge: %v\n", err)
		return outcome.ExitInternal
	}
	defer os.Remove(paths.StatePath()) //nolint:errcheck

	shutdown := make(chan struct{})
	var once sync.Once
	requestShutdown := func() { once.Do(func() { close(shutdown) }) }

	srv := ipc.NewServer(paths.SocketPath(), nonce, controlHandler(b, requestShutdown))
	if err := srv.Start(); err != nil {
		fmt.Fprintf(rootStderr, "unitybridge: %v\n", err)
		return outcome.ExitInternal
	}
	defer srv.Stop()

	mcpErr := make(chan error, 1)
	go func() {
		mcpErr <- mcpserv.Serve(mcpserv.New(cfg, b))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-shutdown:
		return outcome.ExitOK
	case <-sigCh:
		return outcome.ExitOK
	case err := <-mcpErr:
		if err != nil {
			fmt.Fprintf(rootStderr, "unitybridge: mcp server: %v\n", err)
			return outcome.ExitInternal
		}
		return outcome.ExitOK
	}
}

// controlHandler maps control socket requests onto the bridge.
func controlHandler(b *bridge.Bridge, requestShutdown func()) ipc.Handler {
	return func(ctx context.Context, req *ipc.Request) *ipc.Response {
		switch req.Type {
		case "state":
			s := b.State(ctx)
			return &ipc.Response{
				Content:  []byte(s.String() + "\n"),
				ExitCode: outcome.ExitOK,
			}
		case "call":
			return callResponse(handleCall(ctx, b, req))
		case "shutdown":
			requestShutdown()
			return &ipc.Response{ExitCode: outcome.ExitOK}
		default:
			return &ipc.Response{
				ExitCode: outcome.ExitUsageErr,
				Stderr:   fmt.Sprintf("unknown request type: %s", req.Type),
			}
		}
	}
}

func handleCall(ctx context.Context, b *bridge.Bridge, req *ipc.Request) outcome.Outcome {
	if !ops.Known(req.Command) {
		return outcome.Failure(outcome.KindApplicationError,
			fmt.Sprintf("unknown command: %s", req.Command), b.State(ctx))
	}

	wreq := wire.Request{Type: req.Command, Params: req.Args}
	gate := ops.Gate(req.Command)

	if prefix, ok := ops.Sentinel(req.Command); ok {
		return b.CallTracked(ctx, wreq, gate, prefix)
	}
	return b.Call(ctx, wreq, gate)
}

func callResponse(o outcome.Outcome) *ipc.Response {
	resp := &ipc.Response{ExitCode: outcome.ExitCode(o.Kind)}
	if o.Success {
		if len(o.Payload) > 0 {
			resp.Content = append([]byte(o.Payload), '\n')
		}
		return resp
	}
	resp.Stderr = o.Sentence()
	return resp
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/unitybridge/unitybridge/internal/bridge"
	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/ipc"
	"github.com/unitybridge/unitybridge/internal/ops"
	"github.com/unitybridge/unitybridge/internal/outcome"
)

// runCall sends one editor command: `unitybridge call <command> [JSON-ARGS]`.
// A running bridge is used when available so its cached state and open
// connections are shared; otherwise the command goes straight to the editor.
func runCall(cfg *config.Config, args []string) int {
	cmdName, rawArgs, err := parseCallArgs(args)
	if err != nil {
		fmt.Fprintf(rootStderr, "unitybridge: %v\n", err)
		return outcome.ExitUsageErr
	}

	if client, cerr := ipc.Connect(); cerr == nil {
		resp, serr := client.Send(&ipc.Request{
			Type:    "call",
			Command: cmdName,
			Args:    rawArgs,
		})
		if serr == nil {
			writeControlResponse(resp)
			return resp.ExitCode
		}
		fmt.Fprintf(rootStderr, "unitybridge: control socket: %v, connecting directly\n", serr)
	}

	b := bridge.New(cfg)
	defer b.Close()

	o := handleCall(context.Background(), b, &ipc.Request{Command: cmdName, Args: rawArgs})
	if !o.Success {
		fmt.Fprintf(rootStderr, "unitybridge: %s\n", o.Sentence())
		return outcome.ExitCode(o.Kind)
	}
	if len(o.Payload) > 0 {
		fmt.Fprintln(rootStdout, string(o.Payload))
	}
	return outcome.ExitOK
}

func parseCallArgs(args []string) (cmdName string, rawArgs json.RawMessage, err error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("usage: unitybridge call <command> [JSON-ARGS]")
	}
	cmdName = args[0]
	if !ops.Known(cmdName) {
		return "", nil, fmt.Errorf("unknown command: %s", cmdName)
	}
	if len(args) > 2 {
		return "", nil, fmt.Errorf("too many arguments: command parameters must be one JSON object")
	}
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return "", nil, fmt.Errorf("invalid JSON arguments: %s", args[1])
		}
		rawArgs = json.RawMessage(args[1])
	}
	return cmdName, rawArgs, nil
}

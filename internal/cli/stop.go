package cli

import (
	"fmt"

	"github.com/unitybridge/unitybridge/internal/ipc"
	"github.com/unitybridge/unitybridge/internal/outcome"
)

// runStop asks a running bridge to shut down over its control socket.
func runStop() int {
	client, err := ipc.Connect()
	if err != nil {
		fmt.Fprintf(rootStderr, "unitybridge: %v\n", err)
		return outcome.ExitUsageErr
	}

	resp, err := client.Send(&ipc.Request{Type: "shutdown"})
	if err != nil {
		fmt.Fprintf(rootStderr, "unitybridge: %v\n", err)
		return outcome.ExitTransport
	}
	writeControlResponse(resp)
	return resp.ExitCode
}

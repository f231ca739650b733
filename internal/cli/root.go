// Package cli implements the unitybridge command line front end.
package cli

import (
	"fmt"
	"io"

	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/outcome"
)

// Run is the main CLI entry point. Returns an exit code.
func Run(args []string) int {
	if handled, code := handleRootFlags(args); handled {
		return code
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(rootStderr, "unitybridge: %v\n", err)
		return outcome.ExitInternal
	}
	if verr := config.Validate(cfg); verr != nil {
		fmt.Fprintf(rootStderr, "unitybridge: invalid config: %v\n", verr)
		return outcome.ExitUsageErr
	}

	if len(args) == 0 {
		printRootHelp(rootStdout)
		return outcome.ExitOK
	}

	switch args[0] {
	case "serve":
		return runServe(cfg)
	case "state":
		return runState(cfg)
	case "call":
		return runCall(cfg, args[1:])
	case "stop":
		return runStop()
	default:
		fmt.Fprintf(rootStderr, "unitybridge: unknown command: %s\n", args[0])
		printRootHelp(rootStderr)
		return outcome.ExitUsageErr
	}
}

func printRootHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  unitybridge serve")
	fmt.Fprintln(out, "  unitybridge state")
	fmt.Fprintln(out, "  unitybridge call <command> [JSON-ARGS]")
	fmt.Fprintln(out, "  unitybridge stop")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  serve    Run the bridge: MCP tools over stdio plus a local control socket")
	fmt.Fprintln(out, "  state    Print the editor's last known state")
	fmt.Fprintln(out, "  call     Send one editor command and print its reply")
	fmt.Fprintln(out, "  stop     Ask a running bridge to shut down")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Global flags:")
	fmt.Fprintln(out, "  --help, -h       Show help")
	fmt.Fprintln(out, "  --version, -V    Show version")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Config file: %s\n", config.ExampleConfigPath())
}

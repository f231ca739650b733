package ipc

import "encoding/json"

// Request is sent from the CLI to a running bridge over the control socket.
type Request struct {
	Nonce   string          `json:"nonce"`             // bridge nonce for auth
	Type    string          `json:"type"`              // "state", "call", "shutdown"
	Command string          `json:"command,omitempty"` // editor command type for "call"
	Args    json.RawMessage `json:"args,omitempty"`    // command parameters
}

// Response is sent from the bridge back to the CLI.
type Response struct {
	Content  []byte `json:"content"`          // raw output for stdout
	ExitCode int    `json:"exit_code"`        // outcome.Exit* codes
	Stderr   string `json:"stderr,omitempty"` // error message for stderr
}

// Package wire defines the line-framed JSON messages exchanged with the
// editor on the command and state connections.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/unitybridge/unitybridge/internal/state"
)

// Request is one command sent to the editor on the command connection.
type Request struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Reply is the editor's answer to one Request. Long operations answer with
// Status "running" and a correlation token in Data.
type Reply struct {
	Success bool            `json:"success"`
	Status  string          `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StateEvent is one frame pushed by the editor on the state connection.
type StateEvent struct {
	RunMode   string `json:"runmode"`
	Context   string `json:"context"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// State converts the wire frame into the internal state value.
func (e StateEvent) State() state.State {
	return state.State{
		RunMode:      state.ParseRunMode(e.RunMode),
		Context:      state.ParseContext(e.Context),
		ErrorMessage: e.Error,
	}
}

// StatusRunning marks a reply as a long-operation start acknowledgment.
const StatusRunning = "running"

// StartAck extracts the correlation token from a long-operation start reply.
func StartAck(r Reply) (string, error) {
	if !r.Success || r.Status != StatusRunning {
		return "", fmt.Errorf("reply is not a start acknowledgment (status %q)", r.Status)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return "", fmt.Errorf("parsing start acknowledgment: %w", err)
	}
	if data.Token == "" {
		return "", fmt.Errorf("start acknowledgment carries no token")
	}
	return data.Token, nil
}

// NewRequest builds a Request, marshaling params. A nil params value yields a
// request with no params document.
func NewRequest(typ string, params any) (Request, error) {
	if params == nil {
		return Request{Type: typ}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("marshaling %s params: %w", typ, err)
	}
	return Request{Type: typ, Params: raw}, nil
}

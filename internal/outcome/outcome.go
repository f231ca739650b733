// Package outcome defines the uniform result type returned by the dispatcher
// and the tracker, and the failure taxonomy carried with it.
package outcome

import (
	"encoding/json"
	"fmt"

	"github.com/unitybridge/unitybridge/internal/state"
)

// Kind classifies how a command attempt ended.
type Kind int

const (
	// KindOK: the editor replied and reported success.
	KindOK Kind = iota
	// KindGatingTimeout: the editor never reached an acceptable state
	// within the poll budget; the command was never sent.
	KindGatingTimeout
	// KindTransportFailure: connecting, sending or receiving failed at the
	// socket level.
	KindTransportFailure
	// KindApplicationError: a structurally valid reply reported failure.
	KindApplicationError
	// KindTrackingTimeout: a long operation's completion sentinel was not
	// observed within budget. The operation may still be running.
	KindTrackingTimeout
	// KindTrackingAborted: sentinel polling gave up after too many
	// consecutive transport failures; the editor itself may be unreachable.
	KindTrackingAborted
)

var kindNames = map[Kind]string{
	KindOK:               "ok",
	KindGatingTimeout:    "gating_timeout",
	KindTransportFailure: "transport_failure",
	KindApplicationError: "application_error",
	KindTrackingTimeout:  "tracking_timeout",
	KindTrackingAborted:  "tracking_aborted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Exit codes for the CLI front end.
const (
	ExitOK        = 0
	ExitCmdErr    = 1
	ExitUsageErr  = 2
	ExitInternal  = 3
	ExitTransport = 4
)

// ExitCode maps an outcome kind to a CLI exit code.
func ExitCode(k Kind) int {
	switch k {
	case KindOK:
		return ExitOK
	case KindApplicationError:
		return ExitCmdErr
	case KindGatingTimeout, KindTrackingTimeout:
		return ExitCmdErr
	case KindTransportFailure, KindTrackingAborted:
		return ExitTransport
	default:
		return ExitInternal
	}
}

// Outcome is the result of one dispatched or tracked command. All failure
// modes are values; nothing in the core surfaces them as panics.
type Outcome struct {
	Kind           Kind
	Success        bool
	Status         string
	Payload        json.RawMessage
	Err            string
	LastKnownState state.State
	Attempts       int
}

// OK builds a successful outcome carrying the reply payload.
func OK(payload json.RawMessage, last state.State) Outcome {
	return Outcome{Kind: KindOK, Success: true, Payload: payload, LastKnownState: last}
}

// Failure builds a failed outcome of the given kind.
func Failure(kind Kind, msg string, last state.State) Outcome {
	return Outcome{Kind: kind, Err: msg, LastKnownState: last}
}

// Sentence renders the outcome as one human-readable line.
func (o Outcome) Sentence() string {
	if o.Success {
		return "command succeeded"
	}
	return fmt.Sprintf("%s: %s (last editor state %s)", o.Kind, o.Err, o.LastKnownState)
}

// TransportError is a socket-level failure, distinguishable from an
// application-level error reply. Phase names the operation that failed
// (dial, send, receive).
type TransportError struct {
	Phase string
	Err   error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Phase + " failed"
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

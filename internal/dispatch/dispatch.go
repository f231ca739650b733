// Package dispatch gates command transmission on the editor's reported
// state. Commands sent while the editor compiles, switches modes or reloads
// its domain are rejected or lost, so the dispatcher holds them back until
// the cached state matches the caller's acceptable set.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/wire"
)

// Policy defaults; callers override per dispatch.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxAttempts  = 10
)

// StateReader is the state channel as the dispatcher sees it.
type StateReader interface {
	Connect(ctx context.Context) bool
	Connected() bool
	Current() state.State
}

// Sender is the command channel as the dispatcher sees it.
type Sender interface {
	Connect(ctx context.Context) bool
	Send(ctx context.Context, req wire.Request, timeout time.Duration) (wire.Reply, error)
}

var sleepFn = sleepContext

// Options controls one dispatch call.
type Options struct {
	// AcceptableStates gates transmission; the command goes out only while
	// the cached state equals one of these.
	AcceptableStates []state.State
	PollInterval     time.Duration
	MaxAttempts      int
	SendTimeout      time.Duration
}

// Dispatcher sequences gate polling and command transmission.
type Dispatcher struct {
	states   StateReader
	commands Sender
}

// New creates a dispatcher over the given channel pair.
func New(states StateReader, commands Sender) *Dispatcher {
	return &Dispatcher{states: states, commands: commands}
}

// Dispatch waits for the editor to reach an acceptable state, then sends the
// request and normalizes the reply. Every returned outcome carries the last
// observed state so callers can report why a command never went out.
func (d *Dispatcher) Dispatch(ctx context.Context, req wire.Request, opts Options) outcome.Outcome {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	// Lazy connect-on-first-use for both channels. A failed state connect
	// is not fatal here: the cached (possibly stale) state still gates.
	if !d.states.Connected() {
		d.states.Connect(ctx)
	}
	d.commands.Connect(ctx)

	var last state.State
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last = d.states.Current()
		if last.In(opts.AcceptableStates) {
			o := d.send(ctx, req, opts.SendTimeout, last)
			o.Attempts = attempt
			return o
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleepFn(ctx, interval); err != nil {
			o := outcome.Failure(outcome.KindGatingTimeout,
				fmt.Sprintf("command %q canceled while waiting for the editor: %v", req.Type, err), last)
			o.Attempts = attempt
			return o
		}
	}

	o := outcome.Failure(outcome.KindGatingTimeout,
		fmt.Sprintf("command %q not sent: editor stayed in state %s for %d polls", req.Type, last, maxAttempts), last)
	o.Attempts = maxAttempts
	return o
}

func (d *Dispatcher) send(ctx context.Context, req wire.Request, timeout time.Duration, last state.State) outcome.Outcome {
	reply, err := d.commands.Send(ctx, req, timeout)
	if err != nil {
		var terr *outcome.TransportError
		if errors.As(err, &terr) {
			return outcome.Failure(outcome.KindTransportFailure,
				fmt.Sprintf("command %q: %v", req.Type, terr), last)
		}
		return outcome.Failure(outcome.KindTransportFailure,
			fmt.Sprintf("command %q: %v", req.Type, err), last)
	}

	// Success reflects the application-level flag, not reply arrival.
	if !reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = fmt.Sprintf("command %q failed without an error message", req.Type)
		}
		return outcome.Failure(outcome.KindApplicationError, msg, last)
	}

	o := outcome.OK(reply.Data, last)
	o.Status = reply.Status
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

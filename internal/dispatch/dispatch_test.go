package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/wire"
)

var (
	editing   = state.State{RunMode: state.RunModeEditScene, Context: state.ContextRunning}
	prefab    = state.State{RunMode: state.RunModeEditPrefab, Context: state.ContextRunning}
	compiling = state.State{RunMode: state.RunModeEditScene, Context: state.ContextCompiling}
	switching = state.State{RunMode: state.RunModeUnknown, Context: state.ContextSwitching}
)

// fakeStates serves a scripted sequence of cached states, one per poll.
// The final state repeats once the script runs out.
type fakeStates struct {
	script []state.State
	polls  int
}

func (f *fakeStates) Connect(ctx context.Context) bool { return true }
func (f *fakeStates) Connected() bool                  { return true }
func (f *fakeStates) Current() state.State {
	i := f.polls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.polls++
	return f.script[i]
}

type fakeSender struct {
	reply wire.Reply
	err   error
	sent  []wire.Request
}

func (f *fakeSender) Connect(ctx context.Context) bool { return true }
func (f *fakeSender) Send(ctx context.Context, req wire.Request, timeout time.Duration) (wire.Reply, error) {
	f.sent = append(f.sent, req)
	return f.reply, f.err
}

func countSleeps(t *testing.T) *int {
	t.Helper()
	restore := sleepFn
	n := new(int)
	sleepFn = func(ctx context.Context, d time.Duration) error {
		*n++
		return nil
	}
	t.Cleanup(func() { sleepFn = restore })
	return n
}

func TestDispatchSendsImmediatelyOnFirstPollMatch(t *testing.T) {
	sleeps := countSleeps(t)
	states := &fakeStates{script: []state.State{editing}}
	sender := &fakeSender{reply: wire.Reply{Success: true, Data: json.RawMessage(`{"ok":1}`)}}

	d := New(states, sender)
	o := d.Dispatch(context.Background(), wire.Request{Type: "manage_scene"}, Options{
		AcceptableStates: []state.State{editing, prefab},
	})

	if !o.Success || o.Kind != outcome.KindOK {
		t.Fatalf("outcome = %+v, want success", o)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d commands, want 1", len(sender.sent))
	}
	if *sleeps != 0 {
		t.Fatalf("slept %d times before a first-poll match", *sleeps)
	}
	if o.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", o.Attempts)
	}
}

func TestDispatchNeverSendsOutsideAcceptableSet(t *testing.T) {
	countSleeps(t)
	states := &fakeStates{script: []state.State{compiling}}
	sender := &fakeSender{reply: wire.Reply{Success: true}}

	d := New(states, sender)
	o := d.Dispatch(context.Background(), wire.Request{Type: "manage_scene"}, Options{
		AcceptableStates: []state.State{editing},
		MaxAttempts:      4,
	})

	if len(sender.sent) != 0 {
		t.Fatalf("sent %d commands while gated, want 0", len(sender.sent))
	}
	if o.Kind != outcome.KindGatingTimeout || o.Success {
		t.Fatalf("outcome = %+v, want gating timeout", o)
	}
}

func TestDispatchExhaustsExactlyMaxAttempts(t *testing.T) {
	sleeps := countSleeps(t)
	states := &fakeStates{script: []state.State{compiling}}
	sender := &fakeSender{}

	d := New(states, sender)
	o := d.Dispatch(context.Background(), wire.Request{Type: "run_tests"}, Options{
		AcceptableStates: []state.State{editing},
		MaxAttempts:      10,
	})

	if states.polls != 10 {
		t.Fatalf("polled %d times, want exactly 10", states.polls)
	}
	if *sleeps != 9 {
		t.Fatalf("slept %d times, want 9 (between polls only)", *sleeps)
	}
	if o.Attempts != 10 {
		t.Fatalf("Attempts = %d, want 10", o.Attempts)
	}
	if !strings.Contains(o.Err, "run_tests") {
		t.Fatalf("Err = %q, want command name", o.Err)
	}
	if !o.LastKnownState.Equal(compiling) {
		t.Fatalf("LastKnownState = %v, want %v", o.LastKnownState, compiling)
	}
}

func TestDispatchSendsOnceAfterStateTransition(t *testing.T) {
	sleeps := countSleeps(t)
	states := &fakeStates{script: []state.State{switching, switching, switching, editing}}
	sender := &fakeSender{reply: wire.Reply{Success: true, Data: json.RawMessage(`{"done":true}`)}}

	d := New(states, sender)
	o := d.Dispatch(context.Background(), wire.Request{Type: "execute_menu"}, Options{
		AcceptableStates: []state.State{editing, prefab},
		MaxAttempts:      10,
	})

	if !o.Success {
		t.Fatalf("outcome = %+v, want success after transition", o)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d commands, want exactly 1", len(sender.sent))
	}
	if o.Attempts != 4 {
		t.Fatalf("Attempts = %d, want 4 (match on 4th poll)", o.Attempts)
	}
	if *sleeps != 3 {
		t.Fatalf("slept %d times, want 3", *sleeps)
	}
}

func TestDispatchSurfacesApplicationError(t *testing.T) {
	states := &fakeStates{script: []state.State{editing}}
	sender := &fakeSender{reply: wire.Reply{Success: false, Error: "menu item not found"}}

	d := New(states, sender)
	o := d.Dispatch(context.Background(), wire.Request{Type: "execute_menu"}, Options{
		AcceptableStates: []state.State{editing},
	})

	if o.Success {
		t.Fatal("outcome succeeded despite application-level failure")
	}
	if o.Kind != outcome.KindApplicationError {
		t.Fatalf("Kind = %v, want KindApplicationError", o.Kind)
	}
	if o.Err != "menu item not found" {
		t.Fatalf("Err = %q, want embedded editor message", o.Err)
	}
}

func TestDispatchSurfacesTransportFailure(t *testing.T) {
	states := &fakeStates{script: []state.State{editing}}
	sender := &fakeSender{err: &outcome.TransportError{Phase: "dial", Err: errors.New("connection refused")}}

	d := New(states, sender)
	o := d.Dispatch(context.Background(), wire.Request{Type: "read_console"}, Options{
		AcceptableStates: []state.State{editing},
	})

	if o.Kind != outcome.KindTransportFailure {
		t.Fatalf("Kind = %v, want KindTransportFailure", o.Kind)
	}
	if !o.LastKnownState.Equal(editing) {
		t.Fatalf("LastKnownState = %v, want %v", o.LastKnownState, editing)
	}
}

func TestDispatchHonorsCancellationDuringGateWait(t *testing.T) {
	states := &fakeStates{script: []state.State{compiling}}
	sender := &fakeSender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(states, sender)
	o := d.Dispatch(ctx, wire.Request{Type: "manage_scene"}, Options{
		AcceptableStates: []state.State{editing},
		PollInterval:     time.Hour,
		MaxAttempts:      10,
	})

	if o.Success {
		t.Fatal("outcome succeeded despite cancellation")
	}
	if len(sender.sent) != 0 {
		t.Fatal("command sent despite cancellation")
	}
	if !strings.Contains(o.Err, "canceled") {
		t.Fatalf("Err = %q, want cancellation mention", o.Err)
	}
}

func TestDispatchPreservesRunningStatus(t *testing.T) {
	states := &fakeStates{script: []state.State{editing}}
	sender := &fakeSender{reply: wire.Reply{
		Success: true,
		Status:  wire.StatusRunning,
		Data:    json.RawMessage(`{"token":"op-7"}`),
	}}

	d := New(states, sender)
	o := d.Dispatch(context.Background(), wire.Request{Type: "run_tests"}, Options{
		AcceptableStates: []state.State{editing},
	})

	if o.Status != wire.StatusRunning {
		t.Fatalf("Status = %q, want running", o.Status)
	}
}

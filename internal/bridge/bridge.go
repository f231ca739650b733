// Package bridge owns the channel pair to one editor and exposes the
// dispatch and track entry points the tool surface and CLI build on.
package bridge

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/unitybridge/unitybridge/internal/command"
	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/dispatch"
	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/statefeed"
	"github.com/unitybridge/unitybridge/internal/track"
	"github.com/unitybridge/unitybridge/internal/wire"
)

// dispatcher matches *dispatch.Dispatcher; a seam for tests.
type dispatcher interface {
	Dispatch(ctx context.Context, req wire.Request, opts dispatch.Options) outcome.Outcome
}

type tracker interface {
	Track(ctx context.Context, opts track.Options) outcome.Outcome
}

// Bridge holds the state feed and command channel for one editor instance.
type Bridge struct {
	cfg        *config.Config
	feed       *statefeed.Feed
	channel    *command.Channel
	dispatcher dispatcher
	tracker    tracker
	idle       *idleCloser
	events     chan struct{}
}

// New builds the channel pair from config. Connections are lazy; nothing is
// dialed until the first call.
func New(cfg *config.Config) *Bridge {
	stateAddr := net.JoinHostPort(cfg.Editor.Host, strconv.Itoa(cfg.Editor.StatePort))
	cmdAddr := net.JoinHostPort(cfg.Editor.Host, strconv.Itoa(cfg.Editor.CommandPort))

	feed := statefeed.New(stateAddr)
	channel := command.New(cmdAddr, command.Options{
		SendTimeout:   config.Duration(cfg.Gate.SendTimeout, 0),
		MaxReplyBytes: cfg.Editor.ReplyBufferMB << 20,
	})

	d := dispatch.New(feed, channel)
	b := &Bridge{
		cfg:        cfg,
		feed:       feed,
		channel:    channel,
		dispatcher: d,
		tracker:    track.New(d),
		events:     make(chan struct{}, 1),
	}
	feed.Subscribe(func(state.State) {
		select {
		case b.events <- struct{}{}:
		default:
		}
	})
	b.idle = newIdleCloser(defaultIdleTimeout, func() { _ = channel.Close() })
	return b
}

// Call dispatches one command through the state gate.
func (b *Bridge) Call(ctx context.Context, req wire.Request, gate []state.State) outcome.Outcome {
	b.idle.Begin()
	defer b.idle.End()

	return b.dispatcher.Dispatch(ctx, req, dispatch.Options{
		AcceptableStates: gate,
		PollInterval:     config.Duration(b.cfg.Gate.PollInterval, dispatch.DefaultPollInterval),
		MaxAttempts:      b.cfg.Gate.MaxAttempts,
		SendTimeout:      config.Duration(b.cfg.Gate.SendTimeout, 0),
	})
}

// CallTracked dispatches a long operation and, when the editor acknowledges
// it as started, polls the console for the completion sentinel. A reply that
// is already final (no running status) is returned as-is.
func (b *Bridge) CallTracked(ctx context.Context, req wire.Request, gate []state.State, sentinelPrefix string) outcome.Outcome {
	started := b.Call(ctx, req, gate)
	if !started.Success || started.Status != wire.StatusRunning {
		return started
	}

	token, err := wire.StartAck(wire.Reply{
		Success: started.Success,
		Status:  started.Status,
		Data:    started.Payload,
	})
	if err != nil {
		o := outcome.Failure(outcome.KindApplicationError,
			fmt.Sprintf("command %q: %v", req.Type, err), started.LastKnownState)
		return o
	}

	b.idle.Begin()
	defer b.idle.End()

	return b.tracker.Track(ctx, track.Options{
		SentinelPrefix: sentinelPrefix,
		Token:          token,
		InitialDelay:   config.Duration(b.cfg.Track.InitialDelay, track.DefaultInitialDelay),
		MaxDelay:       config.Duration(b.cfg.Track.MaxDelay, track.DefaultMaxDelay),
		MaxAttempts:    b.cfg.Track.MaxAttempts,
		OverallTimeout: config.Duration(b.cfg.Track.OverallTimeout, track.DefaultOverallTimeout),
	})
}

// State returns the cached editor state, connecting the feed on first use.
func (b *Bridge) State(ctx context.Context) state.State {
	if !b.feed.Connected() {
		if b.feed.Connect(ctx) {
			// Give the first event a moment to land so cold starts do
			// not always report unknown/disconnected.
			b.waitForEvent(ctx, 500*time.Millisecond)
		}
	}
	return b.feed.Current()
}

// Close tears down both connections.
func (b *Bridge) Close() {
	b.idle.Stop()
	_ = b.channel.Close()
	_ = b.feed.Close()
}

func (b *Bridge) waitForEvent(ctx context.Context, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.events:
	case <-timer.C:
	case <-ctx.Done():
	}
}

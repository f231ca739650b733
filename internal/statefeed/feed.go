// Package statefeed maintains the subscription connection to the editor's
// state stream and caches the freshest reported state.
package statefeed

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/wire"
)

const defaultDialTimeout = 5 * time.Second

var dialContextFn = func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Feed is the state channel. One receive loop is the only writer of the
// cached snapshot; any number of goroutines may read it.
type Feed struct {
	addr        string
	dialTimeout time.Duration

	current atomic.Pointer[state.State]

	mu        sync.Mutex
	conn      net.Conn
	connected bool

	lmu       sync.Mutex
	listeners []func(state.State)
}

// New creates a feed for the given editor state address. The cached state
// starts at (unknown, disconnected) until the first event arrives.
func New(addr string) *Feed {
	f := &Feed{addr: addr, dialTimeout: defaultDialTimeout}
	initial := state.State{}
	f.current.Store(&initial)
	return f
}

// Connect establishes the subscription connection and starts the receive
// loop. Idempotent: if already connected it returns true immediately.
// Returns false on failure; the caller decides whether to retry.
func (f *Feed) Connect(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connected {
		return true
	}

	conn, err := dialContextFn(ctx, f.addr, f.dialTimeout)
	if err != nil {
		return false
	}

	f.conn = conn
	f.connected = true
	go f.receive(conn)
	return true
}

// Connected reports whether the subscription connection is currently up.
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Current returns the cached state. Never performs I/O. After a connection
// drop the value is stale-but-available, not reset.
func (f *Feed) Current() state.State {
	return *f.current.Load()
}

// Subscribe registers a listener fired after each cache update. Listeners
// run on the receive goroutine and must not block.
func (f *Feed) Subscribe(fn func(state.State)) {
	f.lmu.Lock()
	defer f.lmu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Close tears down the subscription connection. The cached state is kept.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	f.connected = false
	return err
}

func (f *Feed) receive(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event wire.StateEvent
		if err := json.Unmarshal(line, &event); err != nil {
			break
		}

		next := event.State()
		f.current.Store(&next)
		f.notify(next)
	}

	// The feed dropped: keep the last cached value, mark the connection
	// down so the next Connect re-dials.
	f.mu.Lock()
	if f.conn == conn {
		f.conn.Close()
		f.conn = nil
		f.connected = false
	}
	f.mu.Unlock()
}

func (f *Feed) notify(s state.State) {
	f.lmu.Lock()
	listeners := make([]func(state.State), len(f.listeners))
	copy(listeners, f.listeners)
	f.lmu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// Package command implements the request/response connection to the editor.
// One request is in flight at a time; Send is serialized internally.
package command

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/wire"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultSendTimeout = 30 * time.Second

	// Replies carry test results and asset previews that reach tens of
	// megabytes; the read buffer must hold a whole reply line.
	defaultMaxReplyBytes = 64 << 20

	scannerInitialBytes = 64 << 10
)

var dialContextFn = func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Options tunes a Channel at construction.
type Options struct {
	DialTimeout   time.Duration
	SendTimeout   time.Duration
	MaxReplyBytes int
}

// Channel is the command connection. The zero value is not usable; use New.
type Channel struct {
	addr        string
	dialTimeout time.Duration
	sendTimeout time.Duration
	maxReply    int

	mu      sync.Mutex
	conn    net.Conn
	scanner *bufio.Scanner
}

// New creates a command channel for the given editor address. The reply
// buffer size is fixed here; it cannot grow mid-connection.
func New(addr string, opts Options) *Channel {
	c := &Channel{
		addr:        addr,
		dialTimeout: opts.DialTimeout,
		sendTimeout: opts.SendTimeout,
		maxReply:    opts.MaxReplyBytes,
	}
	if c.dialTimeout <= 0 {
		c.dialTimeout = defaultDialTimeout
	}
	if c.sendTimeout <= 0 {
		c.sendTimeout = defaultSendTimeout
	}
	if c.maxReply <= 0 {
		c.maxReply = defaultMaxReplyBytes
	}
	return c
}

// Connect establishes the command connection if it is not already up.
// Returns false on failure.
func (c *Channel) Connect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureConnectedLocked(ctx) == nil
}

// Connected reports whether a usable connection is open.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close tears down the command connection.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked()
}

// Send writes one request and waits for its reply. timeout <= 0 uses the
// channel default. Replies are matched by connection order; a timed out
// request drops the connection so the next Send reconnects instead of
// reading the late reply.
func (c *Channel) Send(ctx context.Context, req wire.Request, timeout time.Duration) (wire.Reply, error) {
	if timeout <= 0 {
		timeout = c.sendTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectedLocked(ctx); err != nil {
		return wire.Reply{}, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		// Programmer error, not a peer fault.
		return wire.Reply{}, err
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)
	defer func() {
		if c.conn != nil {
			_ = c.conn.SetDeadline(time.Time{})
		}
	}()

	stop := cancelOnDone(ctx, c.conn)
	defer stop()

	if _, err := c.conn.Write(payload); err != nil {
		c.dropLocked()
		return wire.Reply{}, &outcome.TransportError{Phase: "send", Err: err}
	}

	if !c.scanner.Scan() {
		scanErr := c.scanner.Err()
		c.dropLocked()
		switch {
		case scanErr == nil:
			scanErr = errors.New("connection closed before reply")
		case errors.Is(scanErr, bufio.ErrTooLong):
			scanErr = errors.New("reply exceeds the configured buffer; raise editor.reply_buffer_mb")
		case ctx.Err() != nil:
			return wire.Reply{}, &outcome.TransportError{Phase: "receive", Err: ctx.Err()}
		case isTimeout(scanErr):
			scanErr = errors.New("timed out waiting for reply")
		}
		return wire.Reply{}, &outcome.TransportError{Phase: "receive", Err: scanErr}
	}

	var reply wire.Reply
	if err := json.Unmarshal(c.scanner.Bytes(), &reply); err != nil {
		c.dropLocked()
		return wire.Reply{}, &outcome.TransportError{Phase: "decode", Err: err}
	}
	return reply, nil
}

func (c *Channel) ensureConnectedLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	conn, err := dialContextFn(ctx, c.addr, c.dialTimeout)
	if err != nil {
		return &outcome.TransportError{Phase: "dial", Err: err}
	}

	scanner := bufio.NewScanner(conn)
	initial := scannerInitialBytes
	if c.maxReply < initial {
		// Scanner treats cap(buf) as a floor for the maximum token size.
		initial = c.maxReply
	}
	scanner.Buffer(make([]byte, initial), c.maxReply)

	c.conn = conn
	c.scanner = scanner
	return nil
}

func (c *Channel) dropLocked() error {
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.conn = nil
	c.scanner = nil
	return err
}

// cancelOnDone expires the connection deadline as soon as ctx is canceled so
// a blocked read returns promptly.
func cancelOnDone(ctx context.Context, conn net.Conn) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()
	return func() { close(done) }
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

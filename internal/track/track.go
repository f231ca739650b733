// Package track discovers the true result of long-running editor operations.
// The editor only acknowledges such operations as started; the real result
// is emitted later as a sentinel console line, because a domain reload may
// destroy the process (and both connections) while the operation runs.
package track

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/unitybridge/unitybridge/internal/dispatch"
	"github.com/unitybridge/unitybridge/internal/ops"
	"github.com/unitybridge/unitybridge/internal/outcome"
	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/wire"
)

// Polling policy defaults. The restart thresholds are a best-effort
// heuristic: the editor gives no explicit "reloading" signal, so consecutive
// transport failures stand in for one.
const (
	DefaultInitialDelay   = time.Second
	DefaultMaxDelay       = 5 * time.Second
	DefaultMaxAttempts    = 30
	DefaultOverallTimeout = 10 * time.Minute
	DefaultMaxEntries     = 50

	restartSuspectThreshold = 3
	restartExtraAttempts    = 20
	transportAbortCeiling   = 10
)

var (
	sleepFn = sleepContext
	nowFn   = time.Now
)

// Dispatcher routes the tracker's console reads through the state gate.
type Dispatcher interface {
	Dispatch(ctx context.Context, req wire.Request, opts dispatch.Options) outcome.Outcome
}

// Options controls one Track call.
type Options struct {
	// SentinelPrefix and Token identify the completion line. The editor
	// writes `<prefix><token> | <payload> |` when the operation finishes.
	SentinelPrefix string
	Token          string

	InitialDelay   time.Duration
	MaxDelay       time.Duration
	MaxAttempts    int
	OverallTimeout time.Duration
	MaxEntries     int
}

// budget is the mutable counter state for one Track call.
type budget struct {
	attemptsUsed                 int
	consecutiveTransportFailures int
	restartSuspected             bool
	effectiveMaxAttempts         int
}

// Tracker polls the editor console for operation completion sentinels.
type Tracker struct {
	dispatcher Dispatcher
}

// New creates a tracker that polls through the given dispatcher.
func New(d Dispatcher) *Tracker {
	return &Tracker{dispatcher: d}
}

// Track polls until the sentinel line for opts.Token appears, the poll
// budget runs out, or transport failures pile high enough to conclude the
// editor is unreachable. It never claims the operation itself failed on a
// timeout; only that tracking did.
func (t *Tracker) Track(ctx context.Context, opts Options) outcome.Outcome {
	b := &budget{}
	return t.run(ctx, opts, b)
}

func (t *Tracker) run(ctx context.Context, opts Options, b *budget) outcome.Outcome {
	delay := opts.InitialDelay
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	overall := opts.OverallTimeout
	if overall <= 0 {
		overall = DefaultOverallTimeout
	}
	if b.effectiveMaxAttempts == 0 {
		b.effectiveMaxAttempts = opts.MaxAttempts
		if b.effectiveMaxAttempts <= 0 {
			b.effectiveMaxAttempts = DefaultMaxAttempts
		}
	}

	deadline := nowFn().Add(overall)
	var last state.State

	for b.attemptsUsed < b.effectiveMaxAttempts {
		if nowFn().After(deadline) {
			break
		}
		if err := sleepFn(ctx, delay); err != nil {
			return t.timedOut(opts, b, last, fmt.Sprintf("tracking canceled: %v", err))
		}
		// The backoff sleep itself can outlive the budget; re-check before
		// spending a gated console read on a poll that is already overdue.
		if nowFn().After(deadline) {
			break
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}

		b.attemptsUsed++
		o := t.dispatcher.Dispatch(ctx, ops.ReadConsole(opts.SentinelPrefix, maxEntries), dispatch.Options{
			AcceptableStates: ops.ConsoleGate,
		})
		last = o.LastKnownState

		switch o.Kind {
		case outcome.KindOK:
			b.consecutiveTransportFailures = 0
			if payload, found := findSentinel(o.Payload, opts.SentinelPrefix, opts.Token); found {
				done := outcome.OK(payload, last)
				done.Attempts = b.attemptsUsed
				return done
			}

		case outcome.KindTransportFailure:
			b.consecutiveTransportFailures++
			if b.consecutiveTransportFailures >= transportAbortCeiling {
				aborted := outcome.Failure(outcome.KindTrackingAborted,
					fmt.Sprintf("gave up after %d consecutive transport failures; the editor may be down (last error: %s)",
						b.consecutiveTransportFailures, o.Err), last)
				aborted.Attempts = b.attemptsUsed
				return aborted
			}
			if !b.restartSuspected && b.consecutiveTransportFailures >= restartSuspectThreshold {
				// Likely a domain reload in progress: grant the editor
				// time to come back before giving up. Sticky for the
				// rest of this call.
				b.restartSuspected = true
				b.effectiveMaxAttempts += restartExtraAttempts
			}

		default:
			// Gating timeouts and application errors on the console read
			// consume an attempt but say nothing about transport health.
		}
	}

	return t.timedOut(opts, b, last,
		fmt.Sprintf("no completion sentinel for token %s after %d polls; the operation may still be running in the editor",
			opts.Token, b.attemptsUsed))
}

func (t *Tracker) timedOut(opts Options, b *budget, last state.State, msg string) outcome.Outcome {
	o := outcome.Failure(outcome.KindTrackingTimeout, msg, last)
	o.Attempts = b.attemptsUsed
	return o
}

// consoleEntries is the payload shape of a read_console reply.
type consoleEntries struct {
	Entries []struct {
		Message string `json:"message"`
	} `json:"entries"`
}

// findSentinel scans every returned console entry for an exact token match.
// Entries with foreign tokens (a prior call reusing the prefix) or malformed
// payloads are skipped, not errors.
func findSentinel(payload json.RawMessage, prefix, token string) (json.RawMessage, bool) {
	var entries consoleEntries
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false
	}

	for _, entry := range entries.Entries {
		result, ok := parseSentinel(entry.Message, prefix, token)
		if ok {
			return result, true
		}
	}
	return nil, false
}

// parseSentinel matches one line of the form `<prefix><token> | <json> |`.
func parseSentinel(line, prefix, token string) (json.RawMessage, bool) {
	if !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	rest := strings.TrimPrefix(line, prefix)
	if !strings.HasPrefix(rest, token) {
		return nil, false
	}
	rest = strings.TrimPrefix(rest, token)

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "|") || !strings.HasSuffix(rest, "|") || len(rest) < 2 {
		return nil, false
	}
	body := strings.TrimSpace(rest[1 : len(rest)-1])

	if !json.Valid([]byte(body)) {
		return nil, false
	}
	return json.RawMessage(body), true
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

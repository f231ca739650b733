package bridge

import (
	"sync"
	"time"
)

const defaultIdleTimeout = 5 * time.Minute

// idleCloser closes the command connection after a sliding idle window.
// The state feed is not touched; its cache must stay warm. A long-running
// call is never evicted: the timer only runs while nothing is in flight.
type idleCloser struct {
	mu        sync.Mutex
	timer     *time.Timer
	timerID   uint64
	nextID    uint64
	inFlight  int
	timeout   time.Duration
	closeConn func()
}

func newIdleCloser(timeout time.Duration, closeConn func()) *idleCloser {
	if timeout <= 0 {
		timeout = defaultIdleTimeout
	}
	return &idleCloser{timeout: timeout, closeConn: closeConn}
}

// Begin marks the start of an in-flight call and cancels any idle timer.
func (i *idleCloser) Begin() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.inFlight++
}

// End marks completion of an in-flight call. The idle timer starts only
// after the final in-flight call completes.
func (i *idleCloser) End() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.inFlight > 1 {
		i.inFlight--
		return
	}
	i.inFlight = 0
	i.startTimerLocked()
}

func (i *idleCloser) startTimerLocked() {
	if i.timer != nil {
		i.timer.Stop()
	}

	i.nextID++
	id := i.nextID
	i.timerID = id
	i.timer = time.AfterFunc(i.timeout, func() {
		i.expire(id)
	})
}

func (i *idleCloser) expire(id uint64) {
	i.mu.Lock()
	if i.timerID != id || i.inFlight > 0 {
		i.mu.Unlock()
		return
	}
	i.timer = nil
	closeConn := i.closeConn
	i.mu.Unlock()

	if closeConn != nil {
		closeConn()
	}
}

// Stop cancels any pending idle timer.
func (i *idleCloser) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.inFlight = 0
}

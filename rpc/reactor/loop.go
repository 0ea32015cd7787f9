package reactor

import (
	"errors"
	"github.com/lni/dragonboat/v4/logger"
	"runtime"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("reactor")

const (
	defaultEventCapacity = 1024
)

// ErrStop can be returned by a Handler to end Run without an error
var ErrStop = errors.New("reactor: stop requested")

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// Handler reacts to the notifications of a Loop. Both methods are always
// called from the loop goroutine and must never block.
//
// Any error other than ErrStop returned by a Handler is fatal for the loop:
// Run stops dispatching and returns it. Per-connection faults must therefore
// be handled (connection removed) inside the Handler and not be returned.
type Handler interface {
	// Ready is called once per delivered notification. The registration of
	// token is disarmed at this point, the handler must call Reregister to
	// receive further notifications for it.
	Ready(l *Loop, token Token, readiness Readiness) error

	// Timeout is called when the timer armed with Loop.Timeout fires.
	// The timer is one-shot, it must be armed again for the next interval.
	Timeout(l *Loop) error
}

// --------------------------------------------------------------------------
// Loop
// --------------------------------------------------------------------------

// Loop is a single-threaded reactor. It waits for readiness notifications,
// dispatches them to a Handler and fires a one-shot timer.
type Loop struct {
	poller   *Poller
	events   []Event
	deadline time.Time // zero if no timer is armed
	shutdown atomic.Bool
}

// NewLoop creates a new loop that handles up to capacity notifications per poll
func NewLoop(capacity int) (*Loop, error) {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}

	poller, err := NewPoller(capacity)
	if err != nil {
		return nil, err
	}

	return &Loop{
		poller: poller,
		events: make([]Event, capacity),
	}, nil
}

// Register adds fd to the loop and arms it once for interest
func (l *Loop) Register(fd int, token Token, interest Interest) error {
	return l.poller.Register(fd, token, interest)
}

// Reregister re-arms fd for interest after a notification was delivered
func (l *Loop) Reregister(fd int, token Token, interest Interest) error {
	return l.poller.Reregister(fd, token, interest)
}

// Deregister removes fd from the loop. It must be called before fd is closed.
func (l *Loop) Deregister(fd int) error {
	return l.poller.Deregister(fd)
}

// Timeout arms the one-shot timer to fire after d. Arming an armed timer
// replaces its deadline.
func (l *Loop) Timeout(d time.Duration) {
	l.deadline = time.Now().Add(d)
}

// CancelTimeout disarms the timer
func (l *Loop) CancelTimeout() {
	l.deadline = time.Time{}
}

// Shutdown makes Run return nil after the current iteration.
//
// Thread-safety: This method is safe to call from any goroutine.
func (l *Loop) Shutdown() error {
	l.shutdown.Store(true)
	return l.poller.Wake()
}

// Run dispatches notifications to h until Shutdown is called, h returns
// ErrStop (both return nil) or a fatal error occurs (returned).
// The calling goroutine is locked to its OS thread while the loop runs.
func (l *Loop) Run(h Handler) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	Logger.Debugf("event loop started")
	defer Logger.Debugf("event loop stopped")

	for !l.shutdown.Load() {
		n, err := l.poller.Wait(l.events, l.pollTimeout())
		if err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			ev := l.events[i]
			if ev.Token == wakerToken {
				continue
			}
			if err := h.Ready(l, ev.Token, ev.Readiness); err != nil {
				return stopOrErr(err)
			}
		}

		if !l.deadline.IsZero() && !time.Now().Before(l.deadline) {
			l.deadline = time.Time{}
			if err := h.Timeout(l); err != nil {
				return stopOrErr(err)
			}
		}
	}

	return nil
}

// Close releases the poller of the loop. Registered descriptors are not closed.
func (l *Loop) Close() error {
	return l.poller.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// pollTimeout returns the time until the timer fires, or -1 if no timer is armed
func (l *Loop) pollTimeout() time.Duration {
	if l.deadline.IsZero() {
		return -1
	}
	if d := time.Until(l.deadline); d > 0 {
		return d
	}
	return 0
}

func stopOrErr(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

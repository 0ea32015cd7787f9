package latency

import (
	"errors"
	"fmt"
	"github.com/eapache/queue"
)

// ErrUnexpectedAck is returned if more acknowledgements arrive than messages were sent
var ErrUnexpectedAck = errors.New("acknowledgement without outstanding message")

// Tracker holds the send timestamps of the messages of one connection that
// were written but not yet acknowledged. Acknowledgements arrive in send order,
// so the oldest timestamp always belongs to the next acknowledgement.
//
// Thread-safety: A Tracker is owned by the loop goroutine and is not thread-safe.
type Tracker struct {
	pending *queue.Queue
}

// NewTracker returns a tracker without outstanding messages
func NewTracker() *Tracker {
	return &Tracker{pending: queue.New()}
}

// Sent records n messages that were completely written at time at (see Now)
func (t *Tracker) Sent(n int, at int64) {
	for i := 0; i < n; i++ {
		t.pending.Add(at)
	}
}

// Acked matches n acknowledgements received at time at against the oldest
// outstanding send timestamps and records every delta in h.
// If n exceeds the number of outstanding messages, nothing is recorded and
// ErrUnexpectedAck is returned.
func (t *Tracker) Acked(n int, at int64, h *Histogram) error {
	if n > t.pending.Length() {
		return fmt.Errorf("%w: %d acknowledged, %d outstanding", ErrUnexpectedAck, n, t.pending.Length())
	}

	for i := 0; i < n; i++ {
		sent := t.pending.Remove().(int64)
		delta := at - sent
		if delta < 0 {
			delta = 0
		}
		h.Record(delta)
	}
	return nil
}

// Outstanding returns the number of sent but not yet acknowledged messages
func (t *Tracker) Outstanding() int {
	return t.pending.Length()
}

// Package reactor implements the single-threaded, edge-triggered event loop
// that drives every skv connection.
//
// The loop follows a strict oneshot contract: after a readiness notification
// for a token has been delivered, the registration is disarmed until the
// handler explicitly re-arms it with Reregister. A token that is not re-armed
// stays silent forever, and a token re-armed with the wrong interest set
// either misses writability or wakes up spuriously.
//
// The package contains:
//   - interest: Interest and Readiness bit flags
//   - slab: a generation-checked slot table that hands out stable tokens
//   - poller: the epoll(7) based readiness source (linux only)
//   - loop: the dispatch loop with its periodic one-shot timer and waker
//
// All methods of Loop except Shutdown must be called from the goroutine that
// runs the loop.
package reactor

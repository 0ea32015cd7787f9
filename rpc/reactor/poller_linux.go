//go:build linux

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"golang.org/x/sys/unix"
	"time"
)

// Event is one readiness notification delivered by the poller
type Event struct {
	Token     Token
	Readiness Readiness
}

// Poller is an epoll(7) readiness source. Every socket registration is
// edge-triggered and oneshot: after an event for a descriptor was delivered,
// the descriptor is disarmed until it is re-armed with Reregister.
//
// The poller also owns an eventfd that is used to wake up a blocked Wait from
// other goroutines.
type Poller struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
}

// NewPoller creates a new epoll instance that returns at most capacity events per Wait
func NewPoller(capacity int) (*Poller, error) {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}

	p := &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, capacity),
	}

	// the waker is edge-triggered but never disarmed
	ev := epollEvent(wakerToken, unix.EPOLLIN|unix.EPOLLET)
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("epoll ctl add waker: %w", err)
	}

	return p, nil
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

// Register adds fd to the interest list, armed once for interest
func (p *Poller) Register(fd int, token Token, interest Interest) error {
	ev := epollEvent(token, toEpoll(interest))
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Reregister re-arms fd for interest. This must be called after every
// delivered event, otherwise fd will never be reported again.
func (p *Poller) Reregister(fd int, token Token, interest Interest) error {
	ev := epollEvent(token, toEpoll(interest))
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Deregister removes fd from the interest list
func (p *Poller) Deregister(fd int) error {
	// kernels before 2.6.9 require a non-nil event for EPOLL_CTL_DEL
	var ev unix.EpollEvent
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Waiting
// --------------------------------------------------------------------------

// Wait blocks until at least one event is ready or timeout expired and copies
// the events into events. A negative timeout blocks without limit.
// An interrupted wait returns zero events and no error.
func (p *Poller) Wait(events []Event, timeout time.Duration) (int, error) {
	limit := min(len(events), len(p.raw))

	n, err := unix.EpollWait(p.epfd, p.raw[:limit], toMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		raw := &p.raw[i]
		token := tokenOf(raw)
		if token == wakerToken {
			p.drainWaker()
		}
		events[i] = Event{Token: token, Readiness: fromEpoll(raw.Events)}
	}
	return n, nil
}

// Wake interrupts a blocked Wait. It is safe to call from any goroutine.
func (p *Poller) Wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(p.wakefd, buf[:])
		switch {
		case err == nil, errors.Is(err, unix.EAGAIN):
			// EAGAIN: the counter is saturated, a wake up is already pending
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		default:
			return fmt.Errorf("eventfd write: %w", err)
		}
	}
}

// Close releases the epoll instance and the waker
func (p *Poller) Close() error {
	return errors.Join(unix.Close(p.wakefd), unix.Close(p.epfd))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (p *Poller) drainWaker() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); !errors.Is(err, unix.EINTR) {
			return
		}
	}
}

// epollEvent packs the token into the 64 bit user data of the event
func epollEvent(token Token, events uint32) unix.EpollEvent {
	return unix.EpollEvent{
		Events: events,
		Fd:     int32(uint32(token)),
		Pad:    int32(uint32(token >> 32)),
	}
}

func tokenOf(ev *unix.EpollEvent) Token {
	return Token(uint64(uint32(ev.Pad))<<32 | uint64(uint32(ev.Fd)))
}

func toEpoll(interest Interest) uint32 {
	events := uint32(unix.EPOLLET | unix.EPOLLONESHOT | unix.EPOLLRDHUP)
	if interest.IsReadable() {
		events |= unix.EPOLLIN
	}
	if interest.IsWritable() {
		events |= unix.EPOLLOUT
	}
	return events
}

func fromEpoll(events uint32) Readiness {
	var r Readiness
	if events&(unix.EPOLLIN|unix.EPOLLPRI|unix.EPOLLRDHUP) != 0 {
		r |= Readable
	}
	if events&unix.EPOLLOUT != 0 {
		r |= Writable
	}
	if events&unix.EPOLLERR != 0 {
		r |= Error
	}
	if events&unix.EPOLLHUP != 0 {
		r |= Hangup
	}
	return r
}

func toMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	// round up so a pending timer never results in a busy loop
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

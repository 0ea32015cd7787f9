//go:build !linux

package reactor

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("reactor: epoll is only available on linux")

// Event is one readiness notification delivered by the poller
type Event struct {
	Token     Token
	Readiness Readiness
}

// Poller is not available on this platform, NewPoller always fails
type Poller struct{}

func NewPoller(int) (*Poller, error) {
	return nil, errUnsupported
}

func (p *Poller) Register(int, Token, Interest) error   { return errUnsupported }
func (p *Poller) Reregister(int, Token, Interest) error { return errUnsupported }
func (p *Poller) Deregister(int) error                  { return errUnsupported }
func (p *Poller) Wait([]Event, time.Duration) (int, error) {
	return 0, errUnsupported
}
func (p *Poller) Wake() error  { return errUnsupported }
func (p *Poller) Close() error { return nil }

package reactor

import (
	"fmt"
	"math"
)

// --------------------------------------------------------------------------
// Token
// --------------------------------------------------------------------------

// Token is the stable, opaque handle of one registration in the loop.
// Slab tokens encode the slot index in the lower and the slot generation in
// the upper 32 bits, so a token that outlived its entry never resolves to a
// later occupant of the same slot.
type Token uint64

const (
	// ListenerToken is reserved for the listening socket of a server
	ListenerToken Token = math.MaxUint64
	// wakerToken is reserved for the loop's internal waker
	wakerToken Token = math.MaxUint64 - 1
)

func newToken(idx, gen uint32) Token {
	return Token(uint64(gen)<<32 | uint64(idx))
}

func (t Token) index() uint32 {
	return uint32(t)
}

func (t Token) generation() uint32 {
	return uint32(t >> 32)
}

func (t Token) String() string {
	switch t {
	case ListenerToken:
		return "Token(listener)"
	case wakerToken:
		return "Token(waker)"
	default:
		return fmt.Sprintf("Token(%d/%d)", t.index(), t.generation())
	}
}

// --------------------------------------------------------------------------
// Slab
// --------------------------------------------------------------------------

type slot[T any] struct {
	value T
	gen   uint32
	used  bool
}

// Slab is a generation-checked slot table with free-list index reuse.
// Entries are only ever addressed through the Token returned by Insert.
//
// Thread-safety: Slab is not thread-safe, it is owned by the loop goroutine.
type Slab[T any] struct {
	slots []slot[T]
	free  []uint32
	limit int
	count int
}

// NewSlab creates an empty slab holding at most limit entries (limit <= 0 = unlimited)
func NewSlab[T any](limit int) *Slab[T] {
	return &Slab[T]{limit: limit}
}

// Insert stores v in a free slot and returns its token.
// The boolean is false if the slab is full.
func (s *Slab[T]) Insert(v T) (Token, bool) {
	if s.limit > 0 && s.count >= s.limit {
		return 0, false
	}

	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot[T]{gen: 1})
	}

	sl := &s.slots[idx]
	sl.value = v
	sl.used = true
	s.count++

	return newToken(idx, sl.gen), true
}

// Get returns the entry for t. The boolean is false if t is unknown or stale.
func (s *Slab[T]) Get(t Token) (T, bool) {
	if sl := s.lookup(t); sl != nil {
		return sl.value, true
	}
	var zero T
	return zero, false
}

// Remove frees the slot of t and returns the entry that was stored in it.
// The slot's generation is advanced so t (and all copies of it) become stale.
func (s *Slab[T]) Remove(t Token) (T, bool) {
	var zero T
	sl := s.lookup(t)
	if sl == nil {
		return zero, false
	}

	v := sl.value
	sl.value = zero
	sl.used = false
	if sl.gen++; sl.gen == 0 {
		sl.gen = 1
	}
	s.free = append(s.free, t.index())
	s.count--

	return v, true
}

// Len returns the number of live entries
func (s *Slab[T]) Len() int {
	return s.count
}

// Range calls fn for every live entry until fn returns false
func (s *Slab[T]) Range(fn func(t Token, v T) bool) {
	for idx := range s.slots {
		sl := &s.slots[idx]
		if !sl.used {
			continue
		}
		if !fn(newToken(uint32(idx), sl.gen), sl.value) {
			return
		}
	}
}

func (s *Slab[T]) lookup(t Token) *slot[T] {
	idx := t.index()
	if int(idx) >= len(s.slots) {
		return nil
	}
	sl := &s.slots[idx]
	if !sl.used || sl.gen != t.generation() {
		return nil
	}
	return sl
}

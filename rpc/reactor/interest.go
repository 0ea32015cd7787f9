package reactor

import "strings"

// Interest is the set of readiness kinds a registration wants to be notified
// about. Error and hangup conditions are always reported, independent of the
// interest set.
type Interest uint8

// Readiness is the set of conditions delivered for a token by one notification
type Readiness = Interest

const (
	Readable Interest = 1 << iota
	Writable
	Error
	Hangup
)

// Contains reports whether all flags of other are set in i
func (i Interest) Contains(other Interest) bool {
	return i&other == other
}

// Add returns i with the flags of other set
func (i Interest) Add(other Interest) Interest {
	return i | other
}

// Remove returns i with the flags of other cleared
func (i Interest) Remove(other Interest) Interest {
	return i &^ other
}

func (i Interest) IsReadable() bool { return i&Readable != 0 }
func (i Interest) IsWritable() bool { return i&Writable != 0 }
func (i Interest) IsError() bool    { return i&Error != 0 }
func (i Interest) IsHangup() bool   { return i&Hangup != 0 }

func (i Interest) String() string {
	if i == 0 {
		return "none"
	}
	var parts []string
	if i.IsReadable() {
		parts = append(parts, "readable")
	}
	if i.IsWritable() {
		parts = append(parts, "writable")
	}
	if i.IsError() {
		parts = append(parts, "error")
	}
	if i.IsHangup() {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}

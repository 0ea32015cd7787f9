package bench

import (
	"fmt"
	"github.com/ValentinKolb/skv/rpc/protocol"
	"strings"
	"testing"
)

func TestGeneratorProducesValidPuts(t *testing.T) {
	g := newGenerator(48, 1)

	var buf []byte
	for i := 0; i < 3; i++ {
		before := len(buf)
		buf = g.appendPut(buf)
		if got := len(buf) - before; got != g.messageSize() {
			t.Errorf("Message %d has %d bytes, expected %d", i, got, g.messageSize())
		}
	}

	frames, consumed := protocol.Decode(buf)
	if consumed != len(buf) || len(frames) != 3 {
		t.Fatalf("Expected 3 complete frames, got %d (consumed %d of %d)", len(frames), consumed, len(buf))
	}

	for i, f := range frames {
		if f.Type != protocol.FrameTPut {
			t.Fatalf("Frame %d is %s, expected Put", i, f.Type)
		}
		if want := fmt.Sprintf("%016X", i); f.Key != want {
			t.Errorf("Frame %d has key %s, expected %s", i, f.Key, want)
		}
		if len(f.Value) != 48 || strings.Trim(f.Value, alphanumeric) != "" {
			t.Errorf("Frame %d has invalid value %q", i, f.Value)
		}
	}

	if g.generated() != 3 {
		t.Errorf("Expected 3 generated messages, got %d", g.generated())
	}
}

func TestGeneratorKeysAreUppercaseHex(t *testing.T) {
	g := newGenerator(1, 7)
	g.next = 0xABCDEF

	line := string(g.appendPut(nil))
	if !strings.HasPrefix(line, "PUT 0000000000ABCDEF ") {
		t.Errorf("Unexpected request %q", line)
	}
}

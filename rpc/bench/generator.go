package bench

import (
	"fmt"
	"github.com/ValentinKolb/skv/rpc/protocol"
	"math/rand/v2"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generator synthesizes PUT requests with sequential keys and random values
type generator struct {
	rng       *rand.Rand
	value     []byte
	next      uint64
	valueSize int
}

func newGenerator(valueSize int, seed uint64) *generator {
	return &generator{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		value:     make([]byte, valueSize),
		valueSize: valueSize,
	}
}

// messageSize returns the length of every generated request:
// "PUT " + 16 digit key + " " + value + "\n"
func (g *generator) messageSize() int {
	return len(protocol.CmdPut) + 1 + 16 + 1 + g.valueSize + 1
}

// appendPut appends the next request to buf
func (g *generator) appendPut(buf []byte) []byte {
	for i := range g.value {
		g.value[i] = alphanumeric[g.rng.IntN(len(alphanumeric))]
	}

	buf = fmt.Appendf(buf, "%s %016X ", protocol.CmdPut, g.next)
	buf = append(buf, g.value...)
	g.next++

	return append(buf, protocol.Terminator)
}

// generated returns the number of requests created so far
func (g *generator) generated() uint64 {
	return g.next
}

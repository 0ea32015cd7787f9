package server

import (
	"github.com/ValentinKolb/skv/lib/store"
	"github.com/ValentinKolb/skv/rpc/protocol"
)

// IServerAdapter is the interface for all server adapters.
// It is responsible for applying a decoded request to the store.
type IServerAdapter interface {
	// Handle applies frame to store and returns the response line without terminator.
	// It is called from the loop goroutine and must not block.
	// Every frame, including an Error frame, yields exactly one response.
	Handle(frame protocol.Frame, store store.IStore) (resp string)
}

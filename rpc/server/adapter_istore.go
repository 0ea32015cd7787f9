package server

import (
	"github.com/ValentinKolb/skv/lib/store"
	"github.com/ValentinKolb/skv/rpc/protocol"
)

// NewIStoreServerAdapter returns the adapter that maps GET and PUT requests
// onto store.IStore
func NewIStoreServerAdapter() IServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(frame protocol.Frame, store store.IStore) string {
	// Check for nil store
	if store == nil {
		return protocol.RespErr
	}

	// Handle different frame types
	switch frame.Type {
	case protocol.FrameTGet:
		requests.get.Inc()
		if val, ok := store.Get(frame.Key); ok {
			return val
		}
		return protocol.RespNone
	case protocol.FrameTPut:
		requests.put.Inc()
		store.Put(frame.Key, frame.Value)
		return protocol.RespOK
	default:
		requests.err.Inc()
		return protocol.RespErr
	}
}

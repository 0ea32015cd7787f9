package lstore

import (
	"github.com/ValentinKolb/skv/lib/store"
	"github.com/ValentinKolb/skv/lib/util"
	"github.com/puzpuzpuz/xsync/v3"
)

type storeImpl struct {
	data *xsync.MapOf[string, string]
}

// NewLocalStore creates a new, empty local store instance.
func NewLocalStore() store.IStore {
	seed := util.GenerateSeed()

	return &storeImpl{
		data: xsync.NewMapOfWithHasher[string, string](func(key string, mapSeed uint64) uint64 {
			return util.HashString(key, seed^mapSeed)
		}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key, value string) {
	s.data.Store(key, value)
}

func (s *storeImpl) Get(key string) (string, bool) {
	return s.data.Load(key)
}

func (s *storeImpl) Len() int {
	return s.data.Size()
}

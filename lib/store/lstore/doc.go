// Package lstore provides the in-memory implementation of store.IStore.
//
// Keys are hashed with a per-instance seeded FNV-1a function and stored in an
// xsync.MapOf, which shards its buckets internally. The store is safe for
// concurrent use, although the server only accesses it from its loop goroutine.
package lstore

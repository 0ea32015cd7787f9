// Package rpc provides the network side of skv: a single-threaded readiness
// loop, the line protocol spoken over it, the key-value server and the latency
// benchmark that drives it.
//
// The package is organized into several subpackages:
//
//   - reactor: epoll based event loop with one-shot, edge-triggered registrations,
//     a token slab, a cross-goroutine waker and a single timer.
//
//   - transport: the non-blocking socket abstraction, with the TCP implementation
//     in transport/tcp.
//
//   - protocol: decoding of request lines and encoding of requests and responses.
//
//   - conn: buffered connections that the reactor drives.
//
//   - common: configuration structures and logging.
//
//   - server: the key-value server and its adapter to store.IStore.
//
//   - bench: the pipelined latency benchmark.
//
//   - client: a small blocking client used by the command-line interface.
package rpc

// Package server implements the skv key-value server. A single reactor loop
// accepts TCP connections, decodes complete request lines, applies them to a
// store.IStore through an adapter and writes the responses back in request order.
//
// Key Components:
//
//   - IServerAdapter: Interface defining the contract for request handlers,
//     with the Handle method that applies one decoded frame to a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating the adapter that maps
//     GET and PUT to store.IStore and answers malformed lines with ERR.
//
//   - NewServer: Factory function creating a configured server.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Transport.Port = 8080
//
//	s := server.NewServer(
//	  config,
//	  lstore.NewLocalStore(),
//	  server.NewIStoreServerAdapter(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Per-connection failures (reset, zero-byte write, a failed re-arm) only remove
// the affected connection. Failing to bind or to create the loop is fatal.
//
// Optionally the server exposes Prometheus counters on an HTTP endpoint
// (connections accepted, closed, rejected and active, requests by kind).
//
// Thread Safety:
//
//	Everything except Shutdown runs on the goroutine that called Serve.
//	Shutdown may be called from any goroutine.
package server

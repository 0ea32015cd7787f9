// Package store defines the key-value map the server applies GET and PUT
// requests to.
//
// The map is a collaborator of the reactor: every operation is synchronous,
// never blocks and is applied in the order the requests were decoded. There
// is no persistence, no expiry and no multi-key atomicity, a PUT simply
// overwrites any previous value (last write wins).
//
// Implementations:
//
//   - Local Store (lstore): an in-memory map based on xsync.MapOf with a seeded
//     FNV-1a hasher. Available in the "github.com/ValentinKolb/skv/lib/store/lstore" package.
package store

// Package common provides the configuration structures and the logging setup
// shared by the skv server and the benchmark.
//
// Key Components:
//
//   - TransportConfig: endpoint and socket options (TCP_NODELAY, keep-alive,
//     linger and kernel buffer sizes) applied to listening, accepted and
//     dialed sockets.
//
//   - ServerConfig: configuration of `skv serve`, including the connection
//     limit and the optional metrics endpoint.
//
//   - BenchConfig: configuration of `skv bench`, including concurrency,
//     value size, batch size, report interval and the total message count.
//
//   - Logger: custom logging implementation that plugs into the logger facade
//     of Dragonboat and prints `LEVEL | package | message` lines.
package common

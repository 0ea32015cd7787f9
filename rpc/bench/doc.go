// Package bench implements the latency benchmark of the skv server.
//
// A fixed number of connections is driven by one reactor loop. Every
// connection keeps up to BatchSize PUT requests in flight (buffered or sent
// but not yet acknowledged). Each completely written request gets a send
// timestamp, each acknowledgement is matched against the oldest outstanding
// timestamp and the difference is recorded in a latency.Histogram.
//
// Once per report interval the loop hands the histogram to a latency.Reporter
// running on its own goroutine and continues with a fresh one. The hand-off
// never blocks the loop.
//
// The server is expected to answer every PUT with exactly "OK\n". Any other
// byte sequence, a hangup or a socket error removes the connection. The run
// fails if a connection can not be established or all connections are lost.
package bench

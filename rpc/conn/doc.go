// Package conn manages the per-connection state of the reactor: the read and
// write byte buffers, the partial I/O bookkeeping and the interest set the
// registration has to be re-armed with.
//
// The read path drains the socket until it would block and hands complete
// lines to the protocol decoder, incomplete lines stay buffered. The write
// path writes as much as the socket accepts and keeps the rest for the next
// writable notification. Would-block results (transport.ErrWouldBlock) are
// normal control flow, only real socket errors are returned.
package conn

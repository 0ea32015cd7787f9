// Package protocol implements the line-oriented text protocol spoken between
// skv clients and the skv server.
//
// Every message is one line terminated by '\n'. Requests are
//
//	GET <key>
//	PUT <key> <value>
//
// and every request is answered by exactly one response line: the stored
// value, NONE, OK or ERR. Tokens are separated by whitespace, so keys and
// values can not contain whitespace themselves.
//
// The codec is pure: it never performs I/O and never blocks. Decoding only
// ever consumes complete lines, a trailing partial line is left for the
// caller to keep buffered until more bytes arrive.
package protocol

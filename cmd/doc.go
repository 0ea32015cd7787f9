// Package cmd implements the command-line interface of skv. It provides
// commands for running the server, benchmarking it and talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the key-value server
//   - bench: Runs the latency benchmark against a running server
//   - kv: Commands for single key-value operations (get, put, raw)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See skv -help for a list of all commands.
package cmd

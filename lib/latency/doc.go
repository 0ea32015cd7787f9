// Package latency measures request round-trip times of the benchmark.
//
// The package contains:
//   - Histogram: an HDR histogram over nanosecond latencies (1ns to 1s, 4 significant digits)
//   - Tracker: a per-connection FIFO of send timestamps that is matched against acknowledgements
//   - Reporter: consumes completed histograms on its own goroutine and prints one line per interval
//
// A Histogram is filled by the reactor goroutine only. Once per report interval
// the reactor pushes it into a util.Handoff and continues with a fresh one, the
// Reporter is the only reader of the pushed histograms.
package latency

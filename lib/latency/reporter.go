package latency

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/skv/lib/util"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Header is the first line printed by a Reporter
var Header = []string{"time", "count", "p50", "p90", "p99"}

// Line is one report line: the statistics of one interval
type Line struct {
	Elapsed time.Duration // time since the previous report
	Count   int64
	P50     int64
	P90     int64
	P99     int64
}

// LineOf computes the report line for h
func LineOf(elapsed time.Duration, h *Histogram) Line {
	return Line{
		Elapsed: elapsed,
		Count:   h.Count(),
		P50:     h.Quantile(0.5),
		P90:     h.Quantile(0.9),
		P99:     h.Quantile(0.99),
	}
}

func (l Line) record() []string {
	return []string{
		strconv.FormatInt(int64(l.Elapsed), 10),
		strconv.FormatInt(l.Count, 10),
		strconv.FormatInt(l.P50, 10),
		strconv.FormatInt(l.P90, 10),
		strconv.FormatInt(l.P99, 10),
	}
}

func (l Line) String() string {
	return fmt.Sprintf("%d, %d, %d, %d, %d", int64(l.Elapsed), l.Count, l.P50, l.P90, l.P99)
}

// Summary describes all intervals a Reporter has seen
type Summary struct {
	Intervals int
	Count     int64   // total number of samples
	Rate      float64 // mean samples per second
	P50       int64
	P90       int64
	P99       int64
}

func (s Summary) String() string {
	return fmt.Sprintf("%d messages in %d intervals (%.0f msg/sec), p50 %s, p90 %s, p99 %s",
		s.Count, s.Intervals, s.Rate,
		time.Duration(s.P50), time.Duration(s.P90), time.Duration(s.P99))
}

// --------------------------------------------------------------------------
// Reporter
// --------------------------------------------------------------------------

// Reporter prints one line per histogram received from its hand-off queue.
// It runs on its own goroutine and is the only owner of received histograms.
type Reporter struct {
	in   *util.Handoff[Histogram]
	out  io.Writer
	csv  *csv.Writer
	done chan struct{}

	mu      sync.Mutex
	total   *Histogram
	meter   gometrics.Meter
	lines   int
	lastErr error
}

// NewReporter creates a reporter that consumes in and prints to out.
// If csvOut is not nil, every line is mirrored to it in CSV format.
func NewReporter(in *util.Handoff[Histogram], out io.Writer, csvOut io.Writer) *Reporter {
	r := &Reporter{
		in:    in,
		out:   out,
		done:  make(chan struct{}),
		total: NewHistogram(),
		meter: gometrics.NewMeter(),
	}
	if csvOut != nil {
		r.csv = csv.NewWriter(csvOut)
	}
	return r
}

// Start prints the header and starts consuming histograms in the background
func (r *Reporter) Start() {
	fmt.Fprintln(r.out, strings.Join(Header, ", "))
	if r.csv != nil {
		r.setErr(r.csv.Write(Header))
	}

	go r.run()
}

// Wait blocks until the hand-off queue was closed and all histograms were reported.
// The returned error is the first error that occurred while writing the CSV output.
func (r *Reporter) Wait() error {
	<-r.done
	r.meter.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Summary returns the statistics over all reported intervals
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Summary{
		Intervals: r.lines,
		Count:     r.total.Count(),
		Rate:      r.meter.RateMean(),
		P50:       r.total.Quantile(0.5),
		P90:       r.total.Quantile(0.9),
		P99:       r.total.Quantile(0.99),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (r *Reporter) run() {
	defer close(r.done)

	mark := time.Now()
	for h := range r.in.Recv() {
		now := time.Now()
		line := LineOf(now.Sub(mark), h)
		mark = now

		fmt.Fprintln(r.out, line.String())
		if r.csv != nil {
			r.setErr(r.csv.Write(line.record()))
			r.csv.Flush()
			r.setErr(r.csv.Error())
		}

		r.mu.Lock()
		r.total.Merge(h)
		r.meter.Mark(line.Count)
		r.lines++
		r.mu.Unlock()
	}
}

func (r *Reporter) setErr(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastErr == nil {
		r.lastErr = err
	}
}

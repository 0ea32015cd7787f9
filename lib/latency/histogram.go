package latency

import (
	"github.com/HdrHistogram/hdrhistogram-go"
	"time"
)

const (
	// MinValue is the lowest recordable latency in nanoseconds, negative values are clamped
	MinValue int64 = 0
	// MaxValue is the highest recordable latency in nanoseconds, larger values are clamped
	MaxValue = int64(time.Second)
	// SignificantFigures is the precision of the histogram
	SignificantFigures = 4
)

// epoch is the reference point of Now
var epoch = time.Now()

// Now returns the nanoseconds elapsed since process start on the monotonic clock
func Now() int64 {
	return int64(time.Since(epoch))
}

// --------------------------------------------------------------------------
// Histogram
// --------------------------------------------------------------------------

// Histogram is a frequency distribution of latencies in nanoseconds.
//
// Thread-safety: A Histogram is not thread-safe. Ownership is transferred
// between goroutines, it is never shared.
type Histogram struct {
	h *hdrhistogram.Histogram
}

// NewHistogram returns an empty histogram
func NewHistogram() *Histogram {
	// 1 ns resolution, a zero sample is kept as zero
	return &Histogram{h: hdrhistogram.New(1, MaxValue, SignificantFigures)}
}

// Record adds one sample of ns nanoseconds. Values outside of
// [MinValue, MaxValue] are clamped into the range.
func (h *Histogram) Record(ns int64) {
	switch {
	case ns < MinValue:
		ns = MinValue
	case ns > MaxValue:
		ns = MaxValue
	}
	// cannot fail, ns is within the trackable range
	_ = h.h.RecordValue(ns)
}

// Count returns the number of recorded samples
func (h *Histogram) Count() int64 {
	return h.h.TotalCount()
}

// Quantile returns the value at quantile q (0 <= q <= 1).
// An empty histogram returns 0 for every quantile.
func (h *Histogram) Quantile(q float64) int64 {
	if h.h.TotalCount() == 0 {
		return 0
	}
	return h.h.ValueAtQuantile(q * 100)
}

// Min returns the smallest recorded value (0 if empty)
func (h *Histogram) Min() int64 {
	if h.h.TotalCount() == 0 {
		return 0
	}
	return h.h.Min()
}

// Max returns the largest recorded value (0 if empty)
func (h *Histogram) Max() int64 {
	return h.h.Max()
}

// Merge adds all samples of other to h
func (h *Histogram) Merge(other *Histogram) {
	h.h.Merge(other.h)
}

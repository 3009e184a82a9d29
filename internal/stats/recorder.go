// Package stats records request latencies across repeated runs and renders
// a percentile summary.
package stats

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histogramMin     = 1
	histogramMax     = 3600000000 // 1 hour in microseconds
	histogramSigFigs = 3
)

// Recorder accumulates latencies per request name.
// Recorder is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	requests map[string]*series
	order    []string
}

type series struct {
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	bytes     int64
}

// Summary is a point-in-time view of one request's latencies.
type Summary struct {
	Name      string
	Count     int64
	Successes int64
	Failures  int64
	Bytes     int64
	Min       time.Duration
	Mean      time.Duration
	P50       time.Duration
	P90       time.Duration
	P99       time.Duration
	Max       time.Duration
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{requests: make(map[string]*series)}
}

// Record adds one observation for name.
func (r *Recorder) Record(name string, latency time.Duration, success bool, bytes int64) {
	micros := latency.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.requests[name]
	if !ok {
		s = &series{hist: hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)}
		r.requests[name] = s
		r.order = append(r.order, name)
	}
	// RecordValue only fails outside the clamped range.
	_ = s.hist.RecordValue(micros)
	s.bytes += bytes
	if success {
		s.successes++
	} else {
		s.failures++
	}
}

// Summaries returns one Summary per request in first-recorded order.
func (r *Recorder) Summaries() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		s := r.requests[name]
		out = append(out, Summary{
			Name:      name,
			Count:     s.hist.TotalCount(),
			Successes: s.successes,
			Failures:  s.failures,
			Bytes:     s.bytes,
			Min:       micros(s.hist.Min()),
			Mean:      time.Duration(s.hist.Mean() * float64(time.Microsecond)),
			P50:       micros(s.hist.ValueAtQuantile(50)),
			P90:       micros(s.hist.ValueAtQuantile(90)),
			P99:       micros(s.hist.ValueAtQuantile(99)),
			Max:       micros(s.hist.Max()),
		})
	}
	return out
}

// Total merges every request into a single Summary named "total".
func (r *Recorder) Total() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
	total := Summary{Name: "total"}
	names := make([]string, 0, len(r.requests))
	for name := range r.requests {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := r.requests[name]
		merged.Merge(s.hist)
		total.Successes += s.successes
		total.Failures += s.failures
		total.Bytes += s.bytes
	}
	if merged.TotalCount() == 0 {
		return total
	}

	total.Count = merged.TotalCount()
	total.Min = micros(merged.Min())
	total.Mean = time.Duration(merged.Mean() * float64(time.Microsecond))
	total.P50 = micros(merged.ValueAtQuantile(50))
	total.P90 = micros(merged.ValueAtQuantile(90))
	total.P99 = micros(merged.ValueAtQuantile(99))
	total.Max = micros(merged.Max())
	return total
}

// WriteTable renders the per-request summaries followed by the total.
func (r *Recorder) WriteTable(w io.Writer) error {
	rows := r.Summaries()
	if len(rows) > 1 {
		rows = append(rows, r.Total())
	}
	return renderTable(w, rows)
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

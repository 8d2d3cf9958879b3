// Package performance measures process memory at workflow checkpoints and
// exports the measurements as prometheus gauges.
package performance

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/procfs"

	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
)

// Where a Sample was taken from.
const (
	SourceProcfs  = "procfs"
	SourceRuntime = "runtime"
)

// Sample is one memory measurement in bytes.
type Sample struct {
	Bytes  uint64
	Source string
}

// Megabytes converts the sample to MiB, the unit of StyleMegabytes lines.
func (s Sample) Megabytes() float64 {
	return float64(s.Bytes) / (1024 * 1024)
}

// ResidentMemory returns the resident set size of the current process from
// /proc. Where /proc is not available it falls back to the bytes the Go
// runtime has obtained from the OS, which is the closest portable figure.
func ResidentMemory() (Sample, error) {
	proc, err := procfs.Self()
	if err == nil {
		var stat procfs.ProcStat
		if stat, err = proc.Stat(); err == nil {
			return Sample{Bytes: uint64(stat.ResidentMemory()), Source: SourceProcfs}, nil
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.Sys == 0 {
		return Sample{}, errors.Wrap(err, "read process memory")
	}
	return Sample{Bytes: ms.Sys, Source: SourceRuntime}, nil
}

// Style selects the line format printed by a MemoryReporter.
type Style int

const (
	// StyleBytes prints "<stage>: Memory used: <bytes> bytes".
	StyleBytes Style = iota
	// StyleMegabytes prints "<stage> - RSS: <MiB, two decimals> MB".
	StyleMegabytes
)

// Format renders the line for stage and s, without a trailing newline.
func (st Style) Format(stage string, s Sample) string {
	if st == StyleMegabytes {
		return fmt.Sprintf("%s - RSS: %.2f MB", stage, s.Megabytes())
	}
	return fmt.Sprintf("%s: Memory used: %d bytes", stage, s.Bytes)
}

// FormatUnavailable renders the line printed when memory cannot be read.
func (st Style) FormatUnavailable(stage string) string {
	if st == StyleMegabytes {
		return fmt.Sprintf("%s - RSS: unavailable", stage)
	}
	return fmt.Sprintf("%s: Couldn't retrieve memory usage.", stage)
}

// MemoryMetrics holds the prometheus collectors fed by MemoryReporter.
type MemoryMetrics struct {
	StageBytes *prometheus.GaugeVec   // last sample per workflow and stage
	Samples    *prometheus.CounterVec // samples taken per workflow
	Failures   prometheus.Counter     // samples that could not be read
}

// NewMemoryMetrics registers the memory collectors with registerer.
func NewMemoryMetrics(registerer prometheus.Registerer) *MemoryMetrics {
	factory := promauto.With(registerer)
	return &MemoryMetrics{
		StageBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scigo_workflow_memory_bytes",
			Help: "Process memory in bytes at each workflow stage",
		}, []string{"workflow", "stage"}),
		Samples: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scigo_workflow_memory_samples_total",
			Help: "Total number of memory samples taken",
		}, []string{"workflow"}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "scigo_workflow_memory_sample_failures_total",
			Help: "Total number of memory samples that could not be read",
		}),
	}
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format, for the node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "write metrics textfile %s", path)
	}
	return nil
}

// MemoryReporter prints one memory line per workflow stage. Measurements
// are diagnostics only; nothing reads them back.
type MemoryReporter struct {
	mu       sync.Mutex
	out      io.Writer
	workflow string
	style    Style
	logger   log.Logger
	metrics  *MemoryMetrics
	sample   func() (Sample, error)
}

// ReporterOption configures a MemoryReporter.
type ReporterOption func(*MemoryReporter)

// WithReporterLogger logs every sample at debug level.
func WithReporterLogger(l log.Logger) ReporterOption {
	return func(r *MemoryReporter) { r.logger = l }
}

// WithReporterMetrics records every sample in m.
func WithReporterMetrics(m *MemoryMetrics) ReporterOption {
	return func(r *MemoryReporter) { r.metrics = m }
}

// WithSampler replaces ResidentMemory as the measurement source.
func WithSampler(fn func() (Sample, error)) ReporterOption {
	return func(r *MemoryReporter) { r.sample = fn }
}

// NewMemoryReporter returns a reporter writing style lines for workflow to
// out.
func NewMemoryReporter(out io.Writer, workflow string, style Style, opts ...ReporterOption) *MemoryReporter {
	r := &MemoryReporter{
		out:      out,
		workflow: workflow,
		style:    style,
		logger:   log.Nop(),
		sample:   ResidentMemory,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report measures memory, prints the line for stage and returns the sample.
// A failed measurement prints the unavailable line and returns ok == false.
func (r *MemoryReporter) Report(stage string) (s Sample, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.sample()
	if err != nil {
		fmt.Fprintln(r.out, r.style.FormatUnavailable(stage))
		r.logger.Warn("memory sample failed", err, log.StageKey, stage)
		if r.metrics != nil {
			r.metrics.Failures.Inc()
		}
		return Sample{}, false
	}

	fmt.Fprintln(r.out, r.style.Format(stage, s))
	r.logger.Debug("memory sample",
		log.StageKey, stage,
		log.MemoryUsageKey, s.Bytes,
		log.MemorySourceKey, s.Source,
	)
	if r.metrics != nil {
		r.metrics.StageBytes.WithLabelValues(r.workflow, stage).Set(float64(s.Bytes))
		r.metrics.Samples.WithLabelValues(r.workflow).Inc()
	}
	return s, true
}

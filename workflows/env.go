// Package workflows runs the three demonstration workflows: blob
// clustering, Iris classification and Diabetes regression. Each one prints
// its stage memory lines and metrics to Env.Out and returns its results.
package workflows

import (
	"io"
	"os"
	"time"

	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/performance"
	"github.com/scigo/workflows/pkg/log"
)

// Env carries everything a workflow needs from its caller. Zero fields get
// working defaults.
type Env struct {
	// Out receives the human-readable lines. Defaults to os.Stdout.
	Out    io.Writer
	Logger log.Logger

	// Metrics, when set, records every memory sample.
	Metrics *performance.MemoryMetrics
	// Sampler replaces performance.ResidentMemory.
	Sampler func() (performance.Sample, error)

	// Source serves the Diabetes files. Defaults to datasets.BundledSource.
	Source datasets.Source

	// Now defaults to time.Now.
	Now func() time.Time
}

func (e Env) withDefaults() Env {
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Logger == nil {
		e.Logger = log.Nop()
	}
	if e.Source == nil {
		e.Source = datasets.BundledSource{}
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	return e
}

func (e Env) reporter(workflow string, style performance.Style) *performance.MemoryReporter {
	opts := []performance.ReporterOption{performance.WithReporterLogger(e.Logger)}
	if e.Metrics != nil {
		opts = append(opts, performance.WithReporterMetrics(e.Metrics))
	}
	if e.Sampler != nil {
		opts = append(opts, performance.WithSampler(e.Sampler))
	}
	return performance.NewMemoryReporter(e.Out, workflow, style, opts...)
}

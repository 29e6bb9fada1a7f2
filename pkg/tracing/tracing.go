package tracing

import (
	"go.opencensus.io/trace"
)

// Config controls span sampling for the process.
type Config struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64
}

// Init applies the global sampling configuration. Exporter registration is
// left to the deployment (an agent sidecar in production).
func Init(cfg Config) {
	if !cfg.Enabled {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
		return
	}
	trace.ApplyConfig(trace.Config{
		DefaultSampler: trace.ProbabilitySampler(cfg.SamplingProbability),
	})
}

package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stageDuration    *prom.HistogramVec
	runDuration      prom.Histogram
	stageResults     *prom.CounterVec
	runOutcome       *prom.CounterVec
	filesRendered    prom.Counter
	renderFailures   prom.Counter
	artifactsDeleted prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pagesync",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual sync stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pagesync",
			Name:      "run_duration_seconds",
			Help:      "Total sync run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagesync",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagesync",
			Name:      "run_outcomes_total",
			Help:      "Sync run outcomes by final status",
		}, []string{"outcome"})
		pr.filesRendered = prom.NewCounter(prom.CounterOpts{
			Namespace: "pagesync",
			Name:      "files_rendered_total",
			Help:      "Source files rendered to artifacts",
		})
		pr.renderFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: "pagesync",
			Name:      "render_failures_total",
			Help:      "Source files skipped because rendering failed",
		})
		pr.artifactsDeleted = prom.NewCounter(prom.CounterOpts{
			Namespace: "pagesync",
			Name:      "artifacts_deleted_total",
			Help:      "Artifacts removed from the publish branch",
		})
		reg.MustRegister(pr.stageDuration, pr.runDuration, pr.stageResults, pr.runOutcome,
			pr.filesRendered, pr.renderFailures, pr.artifactsDeleted)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddFilesRendered(n int) {
	if p == nil || p.filesRendered == nil || n <= 0 {
		return
	}
	p.filesRendered.Add(float64(n))
}

func (p *PrometheusRecorder) AddRenderFailures(n int) {
	if p == nil || p.renderFailures == nil || n <= 0 {
		return
	}
	p.renderFailures.Add(float64(n))
}

func (p *PrometheusRecorder) AddArtifactsDeleted(n int) {
	if p == nil || p.artifactsDeleted == nil || n <= 0 {
		return
	}
	p.artifactsDeleted.Add(float64(n))
}

// Package metrics holds the Prometheus collectors shared by the resolver and
// the HTTP layer. A nil *Metrics is valid and records nothing.
package metrics

import (
  "time"

  "github.com/prometheus/client_golang/prometheus"
)

const namespace = "healthcheckplus"

type Metrics struct {
  resolutions      *prometheus.CounterVec
  lookupFailures   prometheus.Counter
  metadataFailures prometheus.Counter
  writeBacks       *prometheus.CounterVec
  resolveDuration  prometheus.Histogram
  requests         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
  m := &Metrics{
    resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
      Namespace: namespace,
      Name:      "resolutions_total",
      Help:      "Version resolutions by source.",
    }, []string{"source"}),
    lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
      Namespace: namespace,
      Name:      "revision_lookup_failures_total",
      Help:      "Revision lookups that fell back to the failure sentinel.",
    }),
    metadataFailures: prometheus.NewCounter(prometheus.CounterOpts{
      Namespace: namespace,
      Name:      "metadata_read_failures_total",
      Help:      "Metadata files that could not be read or parsed.",
    }),
    writeBacks: prometheus.NewCounterVec(prometheus.CounterOpts{
      Namespace: namespace,
      Name:      "metadata_writes_total",
      Help:      "Metadata and snapshot writes by target and result.",
    }, []string{"target", "result"}),
    resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
      Namespace: namespace,
      Name:      "resolve_duration_seconds",
      Help:      "Wall time of a version resolution.",
      Buckets:   prometheus.DefBuckets,
    }),
    requests: prometheus.NewCounterVec(prometheus.CounterOpts{
      Namespace: namespace,
      Name:      "healthcheck_requests_total",
      Help:      "Health-check requests answered by the middleware.",
    }, []string{"code"}),
  }
  if reg != nil {
    reg.MustRegister(m.resolutions, m.lookupFailures, m.metadataFailures, m.writeBacks, m.resolveDuration, m.requests)
  }
  return m
}

func (m *Metrics) Resolution(source string, took time.Duration) {
  if m == nil { return }
  m.resolutions.WithLabelValues(source).Inc()
  m.resolveDuration.Observe(took.Seconds())
}

func (m *Metrics) LookupFailed() {
  if m == nil { return }
  m.lookupFailures.Inc()
}

func (m *Metrics) MetadataFailed() {
  if m == nil { return }
  m.metadataFailures.Inc()
}

// Write records a write to target ("metadata" or "snapshot").
func (m *Metrics) Write(target string, err error) {
  if m == nil { return }
  result := "ok"
  if err != nil { result = "error" }
  m.writeBacks.WithLabelValues(target, result).Inc()
}

func (m *Metrics) Request(code string) {
  if m == nil { return }
  m.requests.WithLabelValues(code).Inc()
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

var tracer = otel.Tracer("github.com/akcio-dev/akcio/pipeline")

// Metrics are the pipeline's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	chunksIngested *prometheus.CounterVec
	requests       *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	retrievedHits  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunksIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "akcio_chunks_ingested_total",
				Help: "Chunk records written by the ingest pipeline, by project",
			},
			[]string{"project"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "akcio_pipeline_requests_total",
				Help: "Pipeline runs by operation and outcome kind",
			},
			[]string{"operation", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "akcio_pipeline_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
			},
			[]string{"stage"},
		),
		retrievedHits: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "akcio_retrieved_chunks",
				Help:    "Context chunks kept after threshold and merge",
				Buckets: prometheus.LinearBuckets(0, 2, 11),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.chunksIngested, m.requests, m.stageDuration, m.retrievedHits)
	}
	return m
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) addChunks(project string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.chunksIngested.WithLabelValues(project).Add(float64(n))
}

func (m *Metrics) observeHits(n int) {
	if m == nil {
		return
	}
	m.retrievedHits.Observe(float64(n))
}

func (m *Metrics) finish(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(akcioerr.KindOf(err))
	}
	m.requests.WithLabelValues(op, outcome).Inc()
}

// startSpan opens a span tagged with the project.
func startSpan(ctx context.Context, name, project string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("akcio.project", project))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(akcioerr.KindOf(err)))
	}
	span.End()
}

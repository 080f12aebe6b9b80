// Package pipeline orchestrates the log indexing flow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/metrics"
	"github.com/GabrielNunesIT/log-indexer/internal/model"
	"github.com/GabrielNunesIT/log-indexer/internal/normalize"
	"github.com/GabrielNunesIT/log-indexer/internal/sink"
)

// Result summarizes one batch. Enqueued counts actions handed to the
// sink; delivery is asynchronous, so indexed/failed totals live on the
// sink itself.
type Result struct {
	Events   int `json:"events"`
	Filtered int `json:"filtered"`
	Enqueued int `json:"enqueued"`
}

// Pipeline streams batches through the normalizer into a sink.
type Pipeline struct {
	mu   sync.RWMutex
	norm *normalize.Normalizer

	sink    sink.Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a pipeline from configuration.
func New(cfg *config.Config, s sink.Sink, m *metrics.Metrics, log *slog.Logger) *Pipeline {
	return &Pipeline{
		norm:    normalize.New(cfg.Indices.Prefix),
		sink:    s,
		metrics: m,
		logger:  log.With(slog.String("component", "pipeline")),
	}
}

// Run normalizes one batch and enqueues the resulting actions on the
// sink in delivery order. An enqueue error stops the batch and is
// returned; actions already enqueued stay enqueued. Document IDs make
// a re-run of the same batch overwrite rather than duplicate.
func (p *Pipeline) Run(ctx context.Context, source string, batch model.LogBatch) (Result, error) {
	start := time.Now()

	p.mu.RLock()
	norm := p.norm
	p.mu.RUnlock()

	var enqueued int
	stats, err := norm.Stream(batch, func(action model.IndexAction) error {
		if err := p.sink.Index(ctx, action); err != nil {
			return err
		}
		enqueued++
		return nil
	})

	p.observe(source, stats, time.Since(start))

	res := Result{Events: stats.Events, Filtered: stats.Filtered, Enqueued: enqueued}
	if err != nil {
		return res, fmt.Errorf("enqueueing batch: %w", err)
	}

	p.logger.Debug("batch processed",
		slog.String("source", source),
		slog.String("log_group", batch.Context.LogGroup),
		slog.Int("events", res.Events),
		slog.Int("filtered", res.Filtered),
		slog.Int("enqueued", res.Enqueued))

	return res, nil
}

func (p *Pipeline) observe(source string, stats normalize.Stats, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}

	p.metrics.BatchesTotal.WithLabelValues(source).Inc()
	p.metrics.BatchDuration.Observe(elapsed.Seconds())
	p.metrics.EventsTotal.WithLabelValues("lifecycle").Add(float64(stats.Filtered))
	p.metrics.EventsTotal.WithLabelValues("report").Add(float64(stats.Reports))
	p.metrics.EventsTotal.WithLabelValues("error").Add(float64(stats.Errors))
	p.metrics.EventsTotal.WithLabelValues("payload").Add(float64(stats.Payloads))
}

// Reconfigure applies a new configuration. Only the index prefix takes
// effect at runtime; sink and server settings need a restart.
func (p *Pipeline) Reconfigure(cfg *config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.norm = normalize.New(cfg.Indices.Prefix)
	p.logger.Info("configuration applied", slog.String("index_prefix", cfg.Indices.Prefix))
}

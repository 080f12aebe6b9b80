package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/indices"
	"github.com/GabrielNunesIT/log-indexer/internal/metrics"
	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// IndexerFactory creates a new BulkIndexer.
type IndexerFactory func(cfg config.ElasticsearchConfig) (esutil.BulkIndexer, error)

// ElasticsearchOption configures the Elasticsearch sink.
type ElasticsearchOption func(*Elasticsearch)

// WithIndexerFactory sets a custom factory for creating the BulkIndexer.
// This is primarily used for testing to inject a mock indexer.
func WithIndexerFactory(f IndexerFactory) ElasticsearchOption {
	return func(e *Elasticsearch) {
		e.factory = f
	}
}

// WithDeadLetter attaches a dead letter file for rejected documents.
// The sink owns its lifecycle.
func WithDeadLetter(d *DeadLetter) ElasticsearchOption {
	return func(e *Elasticsearch) {
		e.dead = d
	}
}

// WithMetrics attaches Prometheus counters to the document callbacks.
func WithMetrics(m *metrics.Metrics) ElasticsearchOption {
	return func(e *Elasticsearch) {
		e.metrics = m
	}
}

// Elasticsearch ships index actions through a bulk indexer.
type Elasticsearch struct {
	cfg     config.ElasticsearchConfig
	factory IndexerFactory
	indexer esutil.BulkIndexer
	dead    *DeadLetter
	metrics *metrics.Metrics
	logger  *slog.Logger
	indexed atomic.Uint64
	failed  atomic.Uint64
	mu      sync.Mutex
}

// NewElasticsearch creates a new Elasticsearch sink.
func NewElasticsearch(cfg config.ElasticsearchConfig, logger *slog.Logger, opts ...ElasticsearchOption) *Elasticsearch {
	e := &Elasticsearch{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "elasticsearch-sink")),
	}

	// Default factory creates real client and indexer
	e.factory = func(cfg config.ElasticsearchConfig) (esutil.BulkIndexer, error) {
		client, err := indices.NewClient(cfg)
		if err != nil {
			return nil, err
		}

		return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
			Client:        client,
			NumWorkers:    cfg.Workers,
			FlushBytes:    cfg.FlushBytes,
			FlushInterval: cfg.FlushInterval,
		})
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Name returns the sink identifier.
func (e *Elasticsearch) Name() string {
	return "elasticsearch"
}

// Start initializes the bulk indexer and the dead letter file.
func (e *Elasticsearch) Start(ctx context.Context) error {
	indexer, err := e.factory(e.cfg)
	if err != nil {
		return err
	}
	e.indexer = indexer

	if e.dead != nil {
		return e.dead.Start()
	}
	return nil
}

// Stop flushes and closes the bulk indexer, then reports the final
// delivery counts.
func (e *Elasticsearch) Stop(ctx context.Context) (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexer != nil {
		if err := e.indexer.Close(ctx); err != nil {
			return e.Stats(), fmt.Errorf("closing bulk indexer: %w", err)
		}
		e.indexer = nil
	}
	if e.dead != nil {
		if err := e.dead.Stop(); err != nil {
			return e.Stats(), fmt.Errorf("closing dead letter file: %w", err)
		}
	}

	st := e.Stats()
	e.logger.Info("sink drained",
		slog.Uint64("indexed", st.Indexed),
		slog.Uint64("failed", st.Failed))
	return st, nil
}

// Stats returns the cumulative delivery counts.
func (e *Elasticsearch) Stats() Stats {
	return Stats{Indexed: e.indexed.Load(), Failed: e.failed.Load()}
}

// Index enqueues one action. The body is serialized up front so a
// rejected document can be replayed from the dead letter file verbatim.
func (e *Elasticsearch) Index(ctx context.Context, action model.IndexAction) error {
	data, err := json.Marshal(action.Body)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	return e.indexer.Add(ctx, esutil.BulkIndexerItem{
		Index:      action.Index,
		DocumentID: action.DocumentID,
		Action:     action.Operation,
		Body:       bytes.NewReader(data),
		OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
			e.indexed.Add(1)
			if e.metrics != nil {
				e.metrics.DocumentsIndexed.Inc()
			}
		},
		OnFailure: func(_ context.Context, _ esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			e.recordFailure(action, data, res, err)
		},
	})
}

// recordFailure logs one rejected document and forwards it to the dead
// letter file. Failures here must never propagate into the pipeline.
func (e *Elasticsearch) recordFailure(action model.IndexAction, body []byte, res esutil.BulkIndexerResponseItem, err error) {
	e.failed.Add(1)
	if e.metrics != nil {
		e.metrics.DocumentsFailed.Inc()
	}

	errType, errReason := res.Error.Type, res.Error.Reason
	if err != nil {
		errType, errReason = "transport", err.Error()
	}

	e.logger.Error("document rejected",
		slog.String("index", action.Index),
		slog.String("document_id", action.DocumentID),
		slog.String("error_type", errType),
		slog.String("error_reason", errReason))

	if e.dead == nil {
		return
	}
	rejected := Rejected{
		Index:       action.Index,
		DocumentID:  action.DocumentID,
		ErrorType:   errType,
		ErrorReason: errReason,
		Body:        json.RawMessage(body),
	}
	if dlErr := e.dead.Write(rejected); dlErr != nil {
		e.logger.Error("failed to write dead letter entry",
			slog.String("document_id", action.DocumentID),
			slog.Any("error", dlErr))
		return
	}
	if e.metrics != nil {
		e.metrics.DeadLetterTotal.Inc()
	}
}

// Package sink delivers index actions to their destination in bulk.
package sink

import (
	"context"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// Stats counts documents accepted and rejected by the destination.
// Rejections are data, not errors: a batch with failures still counts
// as delivered.
type Stats struct {
	Indexed uint64
	Failed  uint64
}

// Sink consumes index actions. Index enqueues one action; rejection of
// an individual document is never an Index error, it surfaces in Stats
// and the dead letter file. Errors returned by Index itself are fatal:
// closed sink, cancelled context, broken transport.
type Sink interface {
	Start(ctx context.Context) error
	Index(ctx context.Context, action model.IndexAction) error
	Stop(ctx context.Context) (Stats, error)
	Stats() Stats
	Name() string
}

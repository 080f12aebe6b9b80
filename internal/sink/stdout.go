package sink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// Stdout writes one action per line to standard output. It backs the
// dry-run paths, where actions are inspected instead of shipped.
type Stdout struct {
	writer  io.Writer
	logger  *slog.Logger
	mu      sync.Mutex
	indexed atomic.Uint64
}

// actionLine is the printed shape of one index action.
type actionLine struct {
	Index      string                 `json:"index"`
	DocumentID string                 `json:"document_id"`
	Operation  string                 `json:"operation"`
	Body       model.NormalizedRecord `json:"body"`
}

// NewStdout creates a new stdout sink.
func NewStdout(logger *slog.Logger) *Stdout {
	return NewStdoutWithWriter(os.Stdout, logger)
}

// NewStdoutWithWriter creates a stdout sink with a custom writer (for testing).
func NewStdoutWithWriter(w io.Writer, logger *slog.Logger) *Stdout {
	return &Stdout{
		writer: w,
		logger: logger.With(slog.String("component", "stdout-sink")),
	}
}

// Name returns the sink identifier.
func (s *Stdout) Name() string {
	return "stdout"
}

// Start initializes the sink (no-op for stdout).
func (s *Stdout) Start(ctx context.Context) error {
	s.logger.Debug("stdout sink started")
	return nil
}

// Stop reports the number of printed actions.
func (s *Stdout) Stop(ctx context.Context) (Stats, error) {
	s.logger.Debug("stdout sink stopped")
	return s.Stats(), nil
}

// Stats returns the cumulative print count.
func (s *Stdout) Stats() Stats {
	return Stats{Indexed: s.indexed.Load()}
}

// Index prints one action as a JSON line.
func (s *Stdout) Index(ctx context.Context, action model.IndexAction) error {
	output, err := json.Marshal(actionLine{
		Index:      action.Index,
		DocumentID: action.DocumentID,
		Operation:  action.Operation,
		Body:       action.Body,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(append(output, '\n')); err != nil {
		return err
	}
	s.indexed.Add(1)
	return nil
}

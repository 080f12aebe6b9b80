package sink

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
)

// Rejected is one dead letter line: everything needed to inspect or
// replay a document the cluster refused.
type Rejected struct {
	Timestamp   time.Time       `json:"timestamp"`
	Index       string          `json:"index"`
	DocumentID  string          `json:"document_id"`
	ErrorType   string          `json:"error_type"`
	ErrorReason string          `json:"error_reason"`
	Body        json.RawMessage `json:"body"`
}

// WriterFactory creates a new WriteCloser.
type WriterFactory func(cfg config.DeadLetterConfig) (io.WriteCloser, error)

// DeadLetterOption configures the DeadLetter file.
type DeadLetterOption func(*DeadLetter)

// WithWriterFactory sets a custom factory for creating the writer.
func WithWriterFactory(f WriterFactory) DeadLetterOption {
	return func(d *DeadLetter) {
		d.factory = f
	}
}

// DeadLetter appends rejected documents to a rotating JSONL file.
type DeadLetter struct {
	cfg     config.DeadLetterConfig
	factory WriterFactory
	writer  io.WriteCloser
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewDeadLetter creates a new dead letter file.
func NewDeadLetter(cfg config.DeadLetterConfig, logger *slog.Logger, opts ...DeadLetterOption) *DeadLetter {
	d := &DeadLetter{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "dead-letter")),
	}

	// Default factory creates lumberjack logger
	d.factory = func(cfg config.DeadLetterConfig) (io.WriteCloser, error) {
		return &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start initializes the rotating file writer.
func (d *DeadLetter) Start() error {
	w, err := d.factory(d.cfg)
	if err != nil {
		return err
	}
	d.writer = w
	d.logger.Debug("dead letter file opened", slog.String("path", d.cfg.Path))
	return nil
}

// Stop closes the file writer.
func (d *DeadLetter) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writer != nil {
		return d.writer.Close()
	}
	return nil
}

// Write appends one rejected document. The timestamp is stamped here so
// callers only describe the rejection.
func (d *DeadLetter) Write(rec Rejected) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writer == nil {
		return nil
	}

	rec.Timestamp = time.Now().UTC()
	output, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = d.writer.Write(append(output, '\n'))
	return err
}

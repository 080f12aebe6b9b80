// Package backfill re-ingests archived subscription envelopes.
package backfill

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/log-indexer/internal/envelope"
	"github.com/GabrielNunesIT/log-indexer/internal/model"
	"github.com/GabrielNunesIT/log-indexer/internal/pipeline"
)

// idNamespace seeds deterministic ids for events that arrive without
// one, so re-running a backfill overwrites instead of duplicating.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("log-indexer"))

// Summary reports one backfill run. Events, Filtered and Enqueued
// accumulate across files, including files that failed partway.
type Summary struct {
	Files    int
	Skipped  int
	Failed   int
	Events   int
	Filtered int
	Enqueued int
}

// Runner feeds archive files through the pipeline with a bounded
// worker pool. File-local problems (unreadable file, malformed
// envelope) are logged and counted; sink errors abort the run.
type Runner struct {
	pipe    *pipeline.Pipeline
	workers int
	since   time.Time // zero disables the mtime filter
	logger  *slog.Logger

	mu  sync.Mutex
	sum Summary
}

// New creates a backfill runner. Files modified before since are
// skipped; a zero since processes everything.
func New(pipe *pipeline.Pipeline, workers int, since time.Time, logger *slog.Logger) *Runner {
	return &Runner{
		pipe:    pipe,
		workers: workers,
		since:   since,
		logger:  logger.With(slog.String("component", "backfill")),
	}
}

// Run processes path: a directory walked recursively, a single file,
// or "-" for newline-delimited envelopes on stdin.
func (r *Runner) Run(ctx context.Context, path string) (Summary, error) {
	if path == "-" {
		return r.RunReader(ctx, "stdin", os.Stdin)
	}

	info, err := os.Stat(path)
	if err != nil {
		return r.summary(), err
	}
	if !info.IsDir() {
		return r.summary(), r.processFile(ctx, path)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !archiveFile(p) {
			return nil
		}

		if !r.since.IsZero() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.ModTime().Before(r.since) {
				r.logger.Debug("skipping old file", slog.String("path", p))
				r.add(Summary{Skipped: 1})
				return nil
			}
		}

		g.Go(func() error {
			return r.processFile(gctx, p)
		})
		return gctx.Err()
	})

	err = g.Wait()
	if err == nil {
		err = walkErr
	}
	return r.summary(), err
}

// RunReader processes newline-delimited envelopes from r, one
// envelope per line.
func (r *Runner) RunReader(ctx context.Context, name string, rd io.Reader) (Summary, error) {
	scanner := bufio.NewScanner(rd)
	// Subscription envelopes routinely exceed the default line limit.
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return r.summary(), err
		}

		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := envelope.DecodeSubscription(line)
		if err != nil {
			r.add(Summary{Failed: 1})
			return r.summary(), fmt.Errorf("%s line %d: %w", name, lineNo, err)
		}
		if err := r.runBatch(ctx, msg); err != nil {
			r.add(Summary{Failed: 1})
			return r.summary(), err
		}
	}
	if err := scanner.Err(); err != nil {
		r.add(Summary{Failed: 1})
		return r.summary(), fmt.Errorf("reading %s: %w", name, err)
	}

	r.add(Summary{Files: 1})
	return r.summary(), nil
}

// processFile decodes one archive file and runs its batches. It
// returns an error only for sink failures; anything wrong with the
// file itself is logged and counted so the walk continues.
func (r *Runner) processFile(ctx context.Context, path string) error {
	data, err := r.readFile(path)
	if err != nil {
		r.fileFailed(path, err)
		return nil
	}

	msgs, err := decodeArchive(data)
	if err != nil {
		r.fileFailed(path, err)
		return nil
	}

	for _, msg := range msgs {
		if err := r.runBatch(ctx, msg); err != nil {
			r.fileFailed(path, err)
			return err
		}
	}

	r.add(Summary{Files: 1})
	r.logger.Debug("file processed", slog.String("path", path))
	return nil
}

func (r *Runner) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rd io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip: %w", err)
		}
		defer zr.Close()
		rd = zr
	}
	return io.ReadAll(rd)
}

func (r *Runner) runBatch(ctx context.Context, msg *envelope.Message) error {
	if msg.IsControl() {
		return nil
	}

	res, err := r.pipe.Run(ctx, "backfill", ensureIDs(msg.Batch()))
	r.add(Summary{Events: res.Events, Filtered: res.Filtered, Enqueued: res.Enqueued})
	return err
}

func (r *Runner) fileFailed(path string, err error) {
	r.add(Summary{Failed: 1})
	r.logger.Error("file failed", slog.String("path", path), slog.Any("error", err))
}

func (r *Runner) add(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sum.Files += s.Files
	r.sum.Skipped += s.Skipped
	r.sum.Failed += s.Failed
	r.sum.Events += s.Events
	r.sum.Filtered += s.Filtered
	r.sum.Enqueued += s.Enqueued
}

func (r *Runner) summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum
}

// archiveFile reports whether the path looks like a log archive.
func archiveFile(path string) bool {
	switch filepath.Ext(path) {
	case ".json", ".ndjson", ".gz":
		return true
	}
	return false
}

// decodeArchive parses a file that holds either one envelope
// (possibly pretty-printed across lines) or one envelope per line.
func decodeArchive(data []byte) ([]*envelope.Message, error) {
	if msg, err := envelope.DecodeSubscription(data); err == nil {
		return []*envelope.Message{msg}, nil
	}

	var msgs []*envelope.Message
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		msg, err := envelope.DecodeSubscription(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil, errors.New("no envelopes found")
	}
	return msgs, nil
}

// ensureIDs fills deterministic ids for events that lack one. Export
// archives drop the id field that the push path always carries.
func ensureIDs(batch model.LogBatch) model.LogBatch {
	for i, ev := range batch.Events {
		if ev.ID != "" {
			continue
		}
		seed := strings.Join([]string{
			batch.Context.LogGroup,
			batch.Context.LogStream,
			strconv.FormatInt(ev.Timestamp, 10),
			ev.Message,
		}, "|")
		batch.Events[i].ID = uuid.NewSHA1(idNamespace, []byte(seed)).String()
	}
	return batch
}

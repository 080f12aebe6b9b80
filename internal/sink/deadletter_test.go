package sink

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
)

// bufferCloser adapts a bytes.Buffer to the io.WriteCloser the dead
// letter file expects.
type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func newBufferCloser() *bufferCloser {
	return &bufferCloser{}
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func newTestDeadLetter(buf *bufferCloser) *DeadLetter {
	return NewDeadLetter(config.DeadLetterConfig{Enabled: true, Path: "unused.ndjson"}, testLogger(),
		WithWriterFactory(func(config.DeadLetterConfig) (io.WriteCloser, error) {
			return buf, nil
		}))
}

func TestDeadLetter_Write(t *testing.T) {
	buf := newBufferCloser()
	d := newTestDeadLetter(buf)
	require.NoError(t, d.Start())

	err := d.Write(Rejected{
		Index:       "cw-logs-2021-01",
		DocumentID:  "ev-1",
		ErrorType:   "mapper_parsing_exception",
		ErrorReason: "failed to parse field",
		Body:        json.RawMessage(`{"log_type":"ERROR"}`),
	})
	require.NoError(t, err)

	line := strings.TrimSuffix(buf.String(), "\n")
	assert.False(t, strings.Contains(line, "\n"), "one record per line")

	var rec Rejected
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "ev-1", rec.DocumentID)
	assert.Equal(t, "mapper_parsing_exception", rec.ErrorType)
	assert.False(t, rec.Timestamp.IsZero(), "timestamp is stamped on write")
	assert.JSONEq(t, `{"log_type":"ERROR"}`, string(rec.Body))
}

func TestDeadLetter_WriteBeforeStart(t *testing.T) {
	buf := newBufferCloser()
	d := newTestDeadLetter(buf)

	require.NoError(t, d.Write(Rejected{DocumentID: "ev-1"}))
	assert.Zero(t, buf.Len())
}

func TestDeadLetter_Stop(t *testing.T) {
	buf := newBufferCloser()
	d := newTestDeadLetter(buf)
	require.NoError(t, d.Start())
	require.NoError(t, d.Stop())
	assert.True(t, buf.closed)
}

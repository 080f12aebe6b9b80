package envelope

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

const sampleEnvelope = `{
	"messageType": "DATA_MESSAGE",
	"owner": "123456789012",
	"logGroup": "/aws/lambda/checkout",
	"logStream": "2021/01/15/[$LATEST]abcdef",
	"subscriptionFilters": ["all-events"],
	"logEvents": [
		{"id": "36032522412977327401235419999", "timestamp": 1610706600123, "message": "START RequestId: abc-123"},
		{"id": "36032522412977327401235420000", "timestamp": 1610706600124, "message": "hello"}
	]
}`

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func assertSample(t *testing.T, m *Message) {
	t.Helper()
	if m.Owner != "123456789012" {
		t.Errorf("expected owner 123456789012, got %q", m.Owner)
	}
	if m.LogGroup != "/aws/lambda/checkout" {
		t.Errorf("expected log group /aws/lambda/checkout, got %q", m.LogGroup)
	}
	if m.LogStream != "2021/01/15/[$LATEST]abcdef" {
		t.Errorf("expected log stream, got %q", m.LogStream)
	}
	if len(m.LogEvents) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.LogEvents))
	}
	if m.LogEvents[1].ID != "36032522412977327401235420000" {
		t.Errorf("unexpected second event id %q", m.LogEvents[1].ID)
	}
	if m.LogEvents[0].Timestamp != 1610706600123 {
		t.Errorf("unexpected first event timestamp %d", m.LogEvents[0].Timestamp)
	}
}

func TestDecode_PlainJSON(t *testing.T) {
	m, err := Decode([]byte(sampleEnvelope))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSample(t, m)
	if m.IsControl() {
		t.Error("data message must not be control")
	}
}

func TestDecode_Gzipped(t *testing.T) {
	m, err := Decode(gzipBytes(t, []byte(sampleEnvelope)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSample(t, m)
}

func TestDecode_TruncatedGzip(t *testing.T) {
	data := gzipBytes(t, []byte(sampleEnvelope))
	if _, err := Decode(data[:len(data)/2]); err == nil {
		t.Fatal("expected an error for a truncated gzip stream")
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	if _, err := Decode([]byte("not an envelope")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestDecodeBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(gzipBytes(t, []byte(sampleEnvelope)))

	m, err := DecodeBase64(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSample(t, m)

	if _, err := DecodeBase64("%%%not base64%%%"); err == nil {
		t.Fatal("expected an error for invalid base64")
	}
}

func TestDecodeSubscription_AWSLogsWrapper(t *testing.T) {
	wrapper, err := json.Marshal(map[string]any{
		"awslogs": map[string]string{
			"data": base64.StdEncoding.EncodeToString(gzipBytes(t, []byte(sampleEnvelope))),
		},
	})
	if err != nil {
		t.Fatalf("marshal wrapper: %v", err)
	}

	m, err := DecodeSubscription(wrapper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSample(t, m)
}

func TestDecodeSubscription_BareEnvelope(t *testing.T) {
	m, err := DecodeSubscription([]byte(sampleEnvelope))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSample(t, m)

	m, err = DecodeSubscription(gzipBytes(t, []byte(sampleEnvelope)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSample(t, m)
}

func TestDecodeReader(t *testing.T) {
	m, err := DecodeReader(bytes.NewReader(gzipBytes(t, []byte(sampleEnvelope))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSample(t, m)
}

func TestBatch(t *testing.T) {
	m, err := Decode([]byte(sampleEnvelope))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch := m.Batch()
	if batch.Context.Owner != "123456789012" {
		t.Errorf("expected owner in context, got %q", batch.Context.Owner)
	}
	if batch.Context.LogGroup != "/aws/lambda/checkout" {
		t.Errorf("expected log group in context, got %q", batch.Context.LogGroup)
	}
	if len(batch.Events) != 2 {
		t.Errorf("expected 2 events, got %d", len(batch.Events))
	}
}

func TestBatch_ControlMessageDropsEvents(t *testing.T) {
	m := &Message{
		MessageType: ControlMessageType,
		Owner:       "CloudwatchLogs",
		LogEvents: []model.RawLogEvent{
			{ID: "probe", Timestamp: 1610706600123, Message: "CWL CONTROL MESSAGE: Checking health of destination Firehose."},
		},
	}

	if !m.IsControl() {
		t.Fatal("expected control message")
	}
	if events := m.Batch().Events; len(events) != 0 {
		t.Errorf("control batch must carry no events, got %d", len(events))
	}
}

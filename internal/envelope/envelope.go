// Package envelope decodes the delivery payloads produced by CloudWatch
// Logs subscription filters. A delivery is a gzip-compressed JSON
// document, usually wrapped in base64 and an outer {"awslogs": {"data"}}
// object depending on the transport that carried it here.
//
// Envelopes are machine-generated, so unlike log message payloads they
// are not recovered heuristically: a malformed envelope is an error.
package envelope

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// ControlMessageType marks the probe envelope CloudWatch sends when a
// subscription filter is created. It carries no application events.
const ControlMessageType = "CONTROL_MESSAGE"

// gzipMagic is the two-byte header of a gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// Message is the JSON document inside a subscription delivery.
type Message struct {
	MessageType         string              `json:"messageType"`
	Owner               string              `json:"owner"`
	LogGroup            string              `json:"logGroup"`
	LogStream           string              `json:"logStream"`
	SubscriptionFilters []string            `json:"subscriptionFilters"`
	LogEvents           []model.RawLogEvent `json:"logEvents"`
}

// IsControl reports whether the envelope is a subscription probe.
func (m *Message) IsControl() bool {
	return m.MessageType == ControlMessageType
}

// Batch converts the envelope into the batch shape the normalizer
// consumes. Control envelopes yield a batch with no events, so they
// fall out of the pipeline without a special case downstream.
func (m *Message) Batch() model.LogBatch {
	batch := model.LogBatch{
		Context: model.StreamContext{
			Owner:     m.Owner,
			LogGroup:  m.LogGroup,
			LogStream: m.LogStream,
		},
	}
	if m.IsControl() {
		return batch
	}
	batch.Events = m.LogEvents
	return batch
}

// Decode parses an envelope from raw bytes, transparently gunzipping
// when the gzip magic is present.
func Decode(data []byte) (*Message, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		var err error
		data, err = gunzip(data)
		if err != nil {
			return nil, fmt.Errorf("gunzip envelope: %w", err)
		}
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &m, nil
}

// DecodeBase64 strips the base64 layer used by the awslogs event shape,
// then proceeds as Decode.
func DecodeBase64(encoded string) (*Message, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode envelope base64: %w", err)
	}
	return Decode(data)
}

// subscriptionEvent is the outer wrapper delivered to subscription
// targets such as Lambda.
type subscriptionEvent struct {
	AWSLogs struct {
		Data string `json:"data"`
	} `json:"awslogs"`
}

// DecodeSubscription accepts every body shape a subscription target
// sees: the {"awslogs": {"data": "<base64 gzip>"}} wrapper, a bare
// envelope, or a gzipped bare envelope.
func DecodeSubscription(data []byte) (*Message, error) {
	var wrapper subscriptionEvent
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.AWSLogs.Data != "" {
		return DecodeBase64(wrapper.AWSLogs.Data)
	}
	return Decode(data)
}

// DecodeReader consumes a whole stream as one envelope. Archive files
// written by subscription targets have this shape.
func DecodeReader(r io.Reader) (*Message, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}
	return DecodeSubscription(data)
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

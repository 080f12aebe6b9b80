package model

import (
	"strings"
	"time"
)

// Reserved record fields. The "@" namespace belongs to the indexer: it
// carries batch identity, event time and the verbatim payload, and can
// never be occupied by payload-supplied keys.
const (
	FieldTimestamp = "@timestamp"
	FieldAccount   = "@aws_account"
	FieldLogGroup  = "@log_group"
	FieldLogStream = "@log_stream"
	FieldPayload   = "@payload"
)

// FieldRecordTimestamp is where a payload's own "timestamp" field is
// stored so it cannot shadow @timestamp.
const FieldRecordTimestamp = "log_record_timestamp"

// NormalizedRecord is the uniform shape every log event is reduced to
// before indexing. Values are strings, numbers or timestamps.
type NormalizedRecord map[string]any

// NewNormalizedRecord builds a record seeded with the reserved context
// fields. Identity values are lower-cased to match index naming.
func NewNormalizedRecord(sc StreamContext, ts time.Time) NormalizedRecord {
	return NormalizedRecord{
		FieldTimestamp: ts.UTC(),
		FieldAccount:   strings.ToLower(sc.Owner),
		FieldLogGroup:  strings.ToLower(sc.LogGroup),
		FieldLogStream: strings.ToLower(sc.LogStream),
	}
}

// PayloadKey maps a payload-supplied key to the field name it is stored
// under. Leading "@" characters are stripped so user keys can never land
// in the reserved namespace, and "timestamp" is renamed to
// "log_record_timestamp". An empty result means the key is unusable.
func PayloadKey(key string) string {
	key = strings.TrimLeft(key, "@")
	if key == "timestamp" {
		return FieldRecordTimestamp
	}
	return key
}

// PutPayload stores a payload-supplied field under its safe name.
// Keys that reduce to the empty string are dropped.
func (r NormalizedRecord) PutPayload(key string, value any) {
	safe := PayloadKey(key)
	if safe == "" {
		return
	}
	r[safe] = value
}

// Merge copies sub-parser output into the record. Sub-parsers emit only
// safe field names, so values are copied as-is.
func (r NormalizedRecord) Merge(fields NormalizedRecord) {
	for k, v := range fields {
		r[k] = v
	}
}

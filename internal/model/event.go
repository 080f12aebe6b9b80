// Package model defines the core data structures used throughout the log indexer.
package model

import (
	"time"
)

// RawLogEvent is a single log event as delivered by the platform.
// The ID is platform-assigned and unique within a delivery batch; the
// timestamp is epoch milliseconds. Events are immutable and consumed once.
type RawLogEvent struct {
	// ID is the opaque identifier assigned by the platform.
	ID string `json:"id"`

	// Timestamp is the event time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Message is the raw log line, which may itself contain a
	// structured payload.
	Message string `json:"message"`
}

// Time returns the event timestamp as UTC wall time.
func (e RawLogEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// StreamContext carries the identity shared by every event in one
// delivery batch. It is immutable for the lifetime of the batch and is
// passed explicitly rather than held in process state.
type StreamContext struct {
	// Owner is the account that owns the log group.
	Owner string

	// LogGroup is the originating log group name.
	LogGroup string

	// LogStream is the originating log stream name.
	LogStream string
}

// LogBatch pairs one batch of events with its stream context.
type LogBatch struct {
	Context StreamContext
	Events  []RawLogEvent
}

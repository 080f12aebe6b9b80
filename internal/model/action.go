package model

// OpIndex is the only bulk operation the pipeline emits: re-delivery of
// an event overwrites the same document instead of duplicating it.
const OpIndex = "index"

// IndexAction is one bulk operation ready for the transfer layer.
// DocumentID equals the source event's ID, which makes reprocessing
// idempotent at the document level.
type IndexAction struct {
	DocumentID string
	Index      string
	Operation  string
	Body       NormalizedRecord
}

package normalize

import (
	"encoding/json"
	"errors"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// errNotObject marks payloads that are valid JSON but not objects, such
// as a literal null, which unmarshals into a nil map without error.
var errNotObject = errors.New("payload is not a JSON object")

// parsePayload attempts a strict JSON-object parse of the message and
// falls back to the recovery parser when that fails. Failure is never
// propagated: a record always materializes, carrying a "parse_exception"
// marker with the strict-parse error so malformed-payload sources are
// observable in the index. The verbatim message is preserved under
// @payload either way.
func parsePayload(message string) model.NormalizedRecord {
	rec := model.NormalizedRecord{
		model.FieldPayload: message,
	}

	var obj map[string]any
	err := json.Unmarshal([]byte(message), &obj)
	if err == nil && obj == nil {
		err = errNotObject
	}
	if err == nil {
		for k, v := range obj {
			rec.PutPayload(k, v)
		}
		return rec
	}

	recovered := parseDirty(message)
	for k, v := range recovered {
		rec.PutPayload(k, v)
	}
	rec["parse_exception"] = err.Error()

	// Nothing recoverable: keep the raw line itself searchable.
	if len(recovered) == 0 {
		rec["message"] = message
	}
	return rec
}

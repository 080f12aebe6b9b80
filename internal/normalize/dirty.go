package normalize

import (
	"strings"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// pairSeparator replaces braces and splits candidate pairs, so one level
// of nesting flattens into the same token stream.
const pairSeparator = ", "

var (
	braceReplacer = strings.NewReplacer("{", pairSeparator, "}", pairSeparator)
	junkReplacer  = strings.NewReplacer("\n", "", "\\", "", "\"", "")
)

// parseDirty is the best-effort recovery path for payloads that look
// like structured objects but are not valid: mixed quoting, embedded
// newlines, partial truncation. Braces become pair separators and
// newlines, backslashes and double quotes are stripped, then the result
// is re-split into "key: value" candidates, each cut once on ": ".
//
// The key "timestamp" is renamed so it cannot shadow @timestamp. At the
// key "message" processing stops entirely: anything after a nested
// message field is untrusted content that must not be re-split into
// spurious pairs. All surviving values are strings.
//
// parseDirty never fails. A string with no recognizable structure yields
// an empty map and the caller falls back to the verbatim message.
func parseDirty(message string) map[string]string {
	flat := junkReplacer.Replace(braceReplacer.Replace(message))

	fields := make(map[string]string)
	for _, candidate := range strings.Split(flat, pairSeparator) {
		key, value, ok := strings.Cut(candidate, ": ")
		if !ok || key == "" {
			continue
		}
		if key == "timestamp" {
			fields[model.FieldRecordTimestamp] = value
			continue
		}
		if key == "message" {
			break
		}
		fields[key] = value
	}
	return fields
}

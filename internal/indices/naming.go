// Package indices owns the index naming contract and the administrative
// operations against the index store. The assembler and the retention
// manager both route through Name so they always agree on which index a
// record lives in.
package indices

import (
	"strings"
	"time"
)

// Name returns the month-bucket index for a record timestamp:
// "<prefix>-YYYY-MM" in UTC, lower-cased, with index-illegal characters
// stripped. The result depends only on the record's own timestamp, never
// on wall-clock time, so a backfill years later routes to the same index
// as real-time processing did.
func Name(prefix string, ts time.Time) string {
	return sanitize(prefix + "-" + ts.UTC().Format("2006-01"))
}

// Pattern returns the wildcard matching every index under the prefix.
func Pattern(prefix string) string {
	return sanitize(prefix) + "-*"
}

// sanitize lower-cases the name and keeps only characters legal in an
// index name. Leading '-', '_' and '.' are trimmed as well.
func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "-_.")
}

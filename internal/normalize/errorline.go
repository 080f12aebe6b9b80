package normalize

import (
	"strings"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// parseErrorLine keeps only the first line of an error message. Stack
// trace lines that follow would create unbounded field sizes in the
// index, so they are dropped.
func parseErrorLine(message string) model.NormalizedRecord {
	first, _, _ := strings.Cut(message, "\n")
	return model.NormalizedRecord{
		"log_type": "ERROR",
		"message":  first,
	}
}

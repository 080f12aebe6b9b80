package normalize

import (
	"strconv"
	"strings"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// parseReport extracts the timing and memory metrics from a platform
// report line: tab-separated "Key: Value" fields. Durations become float
// milliseconds, memory sizes integer megabytes, the request id is copied
// verbatim. Unknown keys are ignored so future platform fields pass
// through harmlessly, and a field that fails numeric parsing is dropped
// while the rest of the record is kept. The verbatim line is always
// preserved under "message".
func parseReport(line string) model.NormalizedRecord {
	rec := model.NormalizedRecord{
		"log_type": "REPORT",
		"message":  line,
	}

	for _, field := range strings.Split(strings.TrimSpace(line), "\t") {
		key, value, ok := strings.Cut(strings.TrimSpace(field), ": ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "REPORT RequestId":
			rec["aws_request_id"] = value
		case "Duration":
			putDuration(rec, "duration_in_ms", value)
		case "Billed Duration":
			putDuration(rec, "billed_duration_in_ms", value)
		case "Init Duration":
			putDuration(rec, "init_duration_in_ms", value)
		case "Memory Size":
			putMegabytes(rec, "memory_size_in_mb", value)
		case "Max Memory Used":
			putMegabytes(rec, "max_memory_used_in_mb", value)
		}
	}

	return rec
}

// putDuration strips the " ms" unit suffix and stores the value as float
// milliseconds. Values that do not parse are dropped.
func putDuration(rec model.NormalizedRecord, field, value string) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(value, " ms"), 64)
	if err != nil {
		return
	}
	rec[field] = f
}

// putMegabytes strips the " MB" unit suffix and stores the value as
// integer megabytes. Values that do not parse are dropped.
func putMegabytes(rec model.NormalizedRecord, field, value string) {
	n, err := strconv.Atoi(strings.TrimSuffix(value, " MB"))
	if err != nil {
		return
	}
	rec[field] = n
}

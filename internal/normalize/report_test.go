package normalize

import (
	"testing"
)

func TestParseReport(t *testing.T) {
	line := "REPORT RequestId: abc-123\tDuration: 125.40 ms\tBilled Duration: 126 ms\tMemory Size: 256 MB\tMax Memory Used: 98 MB"

	rec := parseReport(line)

	if rec["log_type"] != "REPORT" {
		t.Errorf("expected log_type REPORT, got %v", rec["log_type"])
	}
	if rec["aws_request_id"] != "abc-123" {
		t.Errorf("expected aws_request_id abc-123, got %v", rec["aws_request_id"])
	}
	if rec["duration_in_ms"] != 125.40 {
		t.Errorf("expected duration_in_ms 125.40, got %v", rec["duration_in_ms"])
	}
	if rec["billed_duration_in_ms"] != 126.0 {
		t.Errorf("expected billed_duration_in_ms 126.0, got %v", rec["billed_duration_in_ms"])
	}
	if rec["memory_size_in_mb"] != 256 {
		t.Errorf("expected memory_size_in_mb 256, got %v", rec["memory_size_in_mb"])
	}
	if rec["max_memory_used_in_mb"] != 98 {
		t.Errorf("expected max_memory_used_in_mb 98, got %v", rec["max_memory_used_in_mb"])
	}
	if rec["message"] != line {
		t.Errorf("expected verbatim message, got %v", rec["message"])
	}
}

func TestParseReport_InitDuration(t *testing.T) {
	line := "REPORT RequestId: abc-123\tDuration: 1.00 ms\tInit Duration: 130.55 ms"

	rec := parseReport(line)

	if rec["init_duration_in_ms"] != 130.55 {
		t.Errorf("expected init_duration_in_ms 130.55, got %v", rec["init_duration_in_ms"])
	}
}

func TestParseReport_UnknownKeysIgnored(t *testing.T) {
	line := "REPORT RequestId: abc-123\tDuration: 1.00 ms\tXRAY TraceId: 1-5e34a614-10bdxxxx\tSegmentId: 07e5yyyy"

	rec := parseReport(line)

	if _, ok := rec["XRAY TraceId"]; ok {
		t.Error("unknown key should not become a field")
	}
	if rec["duration_in_ms"] != 1.00 {
		t.Errorf("expected duration_in_ms 1.00, got %v", rec["duration_in_ms"])
	}
}

func TestParseReport_MalformedNumericFieldSkipped(t *testing.T) {
	line := "REPORT RequestId: abc-123\tDuration: very fast\tBilled Duration: 126 ms"

	rec := parseReport(line)

	if _, ok := rec["duration_in_ms"]; ok {
		t.Error("malformed duration should be dropped")
	}
	if rec["billed_duration_in_ms"] != 126.0 {
		t.Errorf("rest of the record should be kept, got %v", rec["billed_duration_in_ms"])
	}
	if rec["aws_request_id"] != "abc-123" {
		t.Errorf("expected aws_request_id abc-123, got %v", rec["aws_request_id"])
	}
	if rec["message"] != line {
		t.Error("verbatim message must be preserved even with malformed fields")
	}
}

func TestParseReport_UnexpectedUnitSuffixSkipped(t *testing.T) {
	line := "REPORT RequestId: abc-123\tDuration: 125.40 milliseconds\tMemory Size: 256 megabytes"

	rec := parseReport(line)

	if _, ok := rec["duration_in_ms"]; ok {
		t.Error("duration with unexpected unit should be dropped")
	}
	if _, ok := rec["memory_size_in_mb"]; ok {
		t.Error("memory size with unexpected unit should be dropped")
	}
}

func TestParseReport_TrailingWhitespace(t *testing.T) {
	line := "REPORT RequestId: abc-123\tDuration: 2.50 ms\tMax Memory Used: 98 MB\t\n"

	rec := parseReport(line)

	if rec["max_memory_used_in_mb"] != 98 {
		t.Errorf("expected max_memory_used_in_mb 98, got %v", rec["max_memory_used_in_mb"])
	}
	if rec["duration_in_ms"] != 2.50 {
		t.Errorf("expected duration_in_ms 2.50, got %v", rec["duration_in_ms"])
	}
}

func TestParseReport_FieldWithoutSeparatorSkipped(t *testing.T) {
	line := "REPORT RequestId: abc-123\tgarbage\tDuration: 1.00 ms"

	rec := parseReport(line)

	if rec["duration_in_ms"] != 1.00 {
		t.Errorf("expected duration_in_ms 1.00, got %v", rec["duration_in_ms"])
	}
	if _, ok := rec["garbage"]; ok {
		t.Error("field without key/value separator should be skipped")
	}
}

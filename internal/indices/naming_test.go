package indices

import (
	"testing"
	"time"
)

func TestName_MonthBucket(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		ts     time.Time
		want   string
	}{
		{
			name:   "plain",
			prefix: "cw-logs",
			ts:     time.Date(2021, 1, 15, 10, 30, 0, 0, time.UTC),
			want:   "cw-logs-2021-01",
		},
		{
			name:   "same month same index",
			prefix: "cw-logs",
			ts:     time.Date(2021, 1, 31, 23, 59, 59, 0, time.UTC),
			want:   "cw-logs-2021-01",
		},
		{
			name:   "next month new index",
			prefix: "cw-logs",
			ts:     time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC),
			want:   "cw-logs-2021-02",
		},
		{
			name:   "non-utc timestamp normalized",
			prefix: "cw-logs",
			ts:     time.Date(2021, 2, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600)),
			want:   "cw-logs-2021-01",
		},
		{
			name:   "illegal characters stripped and lower-cased",
			prefix: "CW:Logs/App",
			ts:     time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			want:   "cwlogsapp-2021-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.prefix, tt.ts); got != tt.want {
				t.Errorf("Name(%q, %v) = %q, want %q", tt.prefix, tt.ts, got, tt.want)
			}
		})
	}
}

func TestName_Deterministic(t *testing.T) {
	ts := time.Date(2019, 7, 4, 12, 0, 0, 0, time.UTC)

	first := Name("cw-logs", ts)
	second := Name("cw-logs", ts)

	if first != second {
		t.Errorf("expected identical names, got %q and %q", first, second)
	}
}

func TestPattern(t *testing.T) {
	if got := Pattern("cw-logs"); got != "cw-logs-*" {
		t.Errorf("expected 'cw-logs-*', got %q", got)
	}
	if got := Pattern("CW:Logs"); got != "cwlogs-*" {
		t.Errorf("expected 'cwlogs-*', got %q", got)
	}
}

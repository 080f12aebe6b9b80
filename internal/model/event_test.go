package model

import (
	"testing"
	"time"
)

func TestRawLogEvent_Time(t *testing.T) {
	ev := RawLogEvent{
		ID:        "evt-1",
		Timestamp: 1610706600123,
		Message:   "hello",
	}

	want := time.Date(2021, 1, 15, 10, 30, 0, 123000000, time.UTC)
	if got := ev.Time(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if ev.Time().Location() != time.UTC {
		t.Error("expected UTC time")
	}
}

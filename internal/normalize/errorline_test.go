package normalize

import (
	"testing"
)

func TestParseErrorLine(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "stack trace dropped",
			message: "[ERROR] Something broke\nTraceback line 1\nTraceback line 2",
			want:    "[ERROR] Something broke",
		},
		{
			name:    "single line kept whole",
			message: "[ERROR] ValueError: bad input",
			want:    "[ERROR] ValueError: bad input",
		},
		{
			name:    "empty remainder",
			message: "[ERROR] boom\n",
			want:    "[ERROR] boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := parseErrorLine(tt.message)

			if rec["log_type"] != "ERROR" {
				t.Errorf("expected log_type ERROR, got %v", rec["log_type"])
			}
			if rec["message"] != tt.want {
				t.Errorf("expected message %q, got %q", tt.want, rec["message"])
			}
		})
	}
}

package validation

import (
	"testing"
)

func TestValidateReportID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid identifiers
		{"simple", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c", false},
		{"all zeros", "00000000-0000-0000-0000-000000000000", false},

		// Invalid identifiers - injection attempts
		{"empty", "", true},
		{"path traversal", "../../../etc/passwd", true},
		{"object name injection", "id/../other-bucket", true},
		{"newline injection", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c\nfake=entry", true},
		{"uppercase", "3F2A1B4C-0D9E-4F6A-8B7C-5D4E3F2A1B0C", true},
		{"missing group", "3f2a1b4c-0d9e-4f6a-8b7c", true},
		{"no hyphens", "3f2a1b4c0d9e4f6a8b7c5d4e3f2a1b0c", true},
		{"trailing garbage", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c'; drop", true},
		{"spaces", "3f2a1b4c 0d9e 4f6a 8b7c 5d4e3f2a1b0c", true},
		{"non-hex chars", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1bzz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReportID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReportID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeReportID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{"lowercase passthrough", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c", false},
		{"uppercase normalized", "3F2A1B4C-0D9E-4F6A-8B7C-5D4E3F2A1B0C", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c", false},
		{"with spaces trimmed", "  3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c  ", "3f2a1b4c-0d9e-4f6a-8b7c-5d4e3f2a1b0c", false},
		{"invalid rejected", "not-a-uuid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeReportID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeReportID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeReportID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

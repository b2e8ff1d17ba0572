package events

import "testing"

func TestValidSeverity(t *testing.T) {
	tests := []struct {
		severity string
		want     bool
	}{
		{SeverityInfo, true},
		{SeverityWarning, true},
		{SeverityCritical, true},
		{"LOW", false},
		{"", false},
		{"warning", false},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			if got := ValidSeverity(tt.severity); got != tt.want {
				t.Errorf("ValidSeverity(%q) = %v, want %v", tt.severity, got, tt.want)
			}
		})
	}
}

func TestCompareSeverity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		sign int // -1, 0, or 1
	}{
		{"warning above info", SeverityWarning, SeverityInfo, 1},
		{"critical above warning", SeverityCritical, SeverityWarning, 1},
		{"info below critical", SeverityInfo, SeverityCritical, -1},
		{"equal", SeverityWarning, SeverityWarning, 0},
		{"unknown below info", "UNKNOWN", SeverityInfo, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareSeverity(tt.a, tt.b)
			switch {
			case tt.sign < 0 && got >= 0:
				t.Errorf("CompareSeverity(%q, %q) = %d, want negative", tt.a, tt.b, got)
			case tt.sign == 0 && got != 0:
				t.Errorf("CompareSeverity(%q, %q) = %d, want 0", tt.a, tt.b, got)
			case tt.sign > 0 && got <= 0:
				t.Errorf("CompareSeverity(%q, %q) = %d, want positive", tt.a, tt.b, got)
			}
		})
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(SeverityWarning, SeverityCritical); got != SeverityCritical {
		t.Errorf("MaxSeverity(WARNING, CRITICAL) = %q, want CRITICAL", got)
	}
	if got := MaxSeverity(SeverityCritical, SeverityInfo); got != SeverityCritical {
		t.Errorf("MaxSeverity(CRITICAL, INFO) = %q, want CRITICAL", got)
	}
	if got := MaxSeverity(SeverityInfo, SeverityInfo); got != SeverityInfo {
		t.Errorf("MaxSeverity(INFO, INFO) = %q, want INFO", got)
	}
}

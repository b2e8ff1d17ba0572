package events

// Alert severities, ordered from least to most severe.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// severityRank maps severities to a comparable rank.
var severityRank = map[string]int{
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityCritical: 3,
}

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	_, ok := severityRank[s]
	return ok
}

// CompareSeverity returns a negative number if a is less severe than b,
// zero if equal, and a positive number if a is more severe than b.
// Unknown severities rank below INFO.
func CompareSeverity(a, b string) int {
	return severityRank[a] - severityRank[b]
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b string) string {
	if CompareSeverity(a, b) >= 0 {
		return a
	}
	return b
}

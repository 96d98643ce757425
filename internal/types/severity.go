package types

// Severity classifies how hostile a change is to delegators. The numeric
// values define the total order used by dedup: RUG > CAUTION > INFO > NONE.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityCaution
	SeverityRug
)

func (s Severity) String() string {
	switch s {
	case SeverityRug:
		return "RUG"
	case SeverityCaution:
		return "CAUTION"
	case SeverityInfo:
		return "INFO"
	default:
		return "NONE"
	}
}

// ParseSeverity maps a stored string back to a Severity. Unknown strings map
// to SeverityNone so they always lose dedup comparisons.
func ParseSeverity(v string) Severity {
	switch v {
	case "RUG":
		return SeverityRug
	case "CAUTION":
		return SeverityCaution
	case "INFO":
		return SeverityInfo
	default:
		return SeverityNone
	}
}

// Package status classifies raw client fields into the labels the dashboard
// colours by. Every function here is pure.
package status

type Severity string

const (
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

type Band string

const (
	Normal  Band = "normal"
	Flagged Band = "flagged"
)

// Malicious is the only client status that flags a client.
const Malicious = "malicious"

// StalenessSeverity buckets the rounds since a client's last accepted update:
// up to 1 is low, 2 to 3 is medium, 4 and above is high.
func StalenessSeverity(staleness int) Severity {
	switch {
	case staleness <= 1:
		return Low
	case staleness <= 3:
		return Medium
	default:
		return High
	}
}

// TrustBand flags a client iff its status is exactly "malicious". Unknown
// statuses are normal.
func TrustBand(status string) Band {
	if status == Malicious {
		return Flagged
	}

	return Normal
}

func (s Severity) Color() string {
	switch s {
	case Low:
		return "lightgreen"
	case Medium:
		return "orange"
	default:
		return "red"
	}
}

func (b Band) Color() string {
	if b == Flagged {
		return "red"
	}

	return "lightgreen"
}

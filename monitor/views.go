package monitor

import (
	"github.com/absmach/fldash/pkg/fl"
	"github.com/absmach/fldash/pkg/status"
	"github.com/absmach/fldash/pkg/window"
)

// ClientStatus is a client record plus the labels derived from it. Severity
// is empty when the record carries no staleness.
type ClientStatus struct {
	fl.ClientRecord
	Severity status.Severity `json:"severity,omitempty"`
	Band     status.Band     `json:"band"`
}

func Classify(c fl.ClientRecord) ClientStatus {
	cs := ClientStatus{
		ClientRecord: c,
		Band:         status.TrustBand(c.Status),
	}
	if c.Staleness != nil {
		cs.Severity = status.StalenessSeverity(*c.Staleness)
	}

	return cs
}

// ServerState is what the aggregate view shows. Each part is fresh on its
// own; the round, the roster and the logs may come from different rounds.
type ServerState struct {
	Connection     ConnState                 `json:"connection"`
	Waiting        bool                      `json:"waiting"`
	Round          *fl.RoundSnapshot         `json:"round,omitempty"`
	Clients        []ClientStatus            `json:"clients"`
	Logs           fl.Logs                   `json:"logs"`
	RoundHistory   []window.Point            `json:"round_history"`
	TrustHistory   map[string][]window.Point `json:"trust_history"`
	TrustEvolution []window.Point            `json:"trust_evolution"`
}

// ClientState is what a single-client view shows. Waiting is true until the
// first successful fetch.
type ClientState struct {
	Route    Route          `json:"route"`
	ClientID string         `json:"client_id"`
	Waiting  bool           `json:"waiting"`
	Client   *ClientStatus  `json:"client,omitempty"`
	History  []window.Point `json:"history"`
	Failures uint64         `json:"failures"`
}

package fl

// RoundSnapshot is the coordinator's aggregate state after one round. It is
// always replaced as a whole.
type RoundSnapshot struct {
	Round           int     `json:"round"`
	GlobalAccuracy  float64 `json:"global_accuracy"`
	GlobalLoss      float64 `json:"global_loss"`
	RejectedUpdates int     `json:"rejected_updates"`
	DPSigma         float64 `json:"dp_sigma"`
	ClipNorm        float64 `json:"clip_norm"`
}

// ClientRecord is one participant as seen by the coordinator. Roster entries
// carry staleness; the per-client endpoint carries local accuracy and the
// privacy parameters. Fields a source does not send stay nil.
type ClientRecord struct {
	ID            string   `json:"id"`
	Trust         float64  `json:"trust"`
	Status        string   `json:"status,omitempty"`
	Staleness     *int     `json:"staleness,omitempty"`
	LocalAccuracy *float64 `json:"local_accuracy,omitempty"`
	UpdateStatus  string   `json:"update_status,omitempty"`
	DPSigma       *float64 `json:"dp_sigma,omitempty"`
	ClipNorm      *float64 `json:"clip_norm,omitempty"`
}

// Roster is the full client set of one push, in coordinator order.
type Roster []ClientRecord

// Logs is the coordinator's full recent-log window.
type Logs []string

package fl

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	pkgerrors "github.com/absmach/fldash/pkg/errors"
)

type wireRound struct {
	Round           *int     `json:"round"`
	GlobalAccuracy  *float64 `json:"global_accuracy"`
	GlobalLoss      *float64 `json:"global_loss"`
	RejectedUpdates *int     `json:"rejected_updates"`
	DPSigma         *float64 `json:"dp_sigma"`
	ClipNorm        *float64 `json:"clip_norm"`
}

type wireClient struct {
	ID            json.RawMessage `json:"id"`
	Trust         *float64        `json:"trust"`
	Status        string          `json:"status"`
	Staleness     *int            `json:"staleness"`
	LocalAccuracy *float64        `json:"local_accuracy"`
	UpdateStatus  string          `json:"update_status"`
	DPSigma       *float64        `json:"dp_sigma"`
	ClipNorm      *float64        `json:"clip_norm"`
}

// DecodeRound parses a server_update payload. Every field is required; a
// missing one rejects the whole snapshot instead of reading as zero.
func DecodeRound(data []byte) (RoundSnapshot, error) {
	var w wireRound
	if err := json.Unmarshal(data, &w); err != nil {
		return RoundSnapshot{}, errors.Join(pkgerrors.ErrMalformedPayload, err)
	}

	switch {
	case w.Round == nil:
		return RoundSnapshot{}, malformed(ErrMissingField, "round")
	case w.GlobalAccuracy == nil:
		return RoundSnapshot{}, malformed(ErrMissingField, "global_accuracy")
	case w.GlobalLoss == nil:
		return RoundSnapshot{}, malformed(ErrMissingField, "global_loss")
	case w.RejectedUpdates == nil:
		return RoundSnapshot{}, malformed(ErrMissingField, "rejected_updates")
	case w.DPSigma == nil:
		return RoundSnapshot{}, malformed(ErrMissingField, "dp_sigma")
	case w.ClipNorm == nil:
		return RoundSnapshot{}, malformed(ErrMissingField, "clip_norm")
	case *w.Round < 0:
		return RoundSnapshot{}, malformed(ErrOutOfRange, "round")
	case *w.RejectedUpdates < 0:
		return RoundSnapshot{}, malformed(ErrOutOfRange, "rejected_updates")
	case *w.DPSigma < 0:
		return RoundSnapshot{}, malformed(ErrOutOfRange, "dp_sigma")
	case *w.ClipNorm < 0:
		return RoundSnapshot{}, malformed(ErrOutOfRange, "clip_norm")
	}

	return RoundSnapshot{
		Round:           *w.Round,
		GlobalAccuracy:  *w.GlobalAccuracy,
		GlobalLoss:      *w.GlobalLoss,
		RejectedUpdates: *w.RejectedUpdates,
		DPSigma:         *w.DPSigma,
		ClipNorm:        *w.ClipNorm,
	}, nil
}

// DecodeRoster parses a clients_update payload. Each entry needs id, trust
// and staleness, and ids must be unique.
func DecodeRoster(data []byte) (Roster, error) {
	var ws []wireClient
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, errors.Join(pkgerrors.ErrMalformedPayload, err)
	}

	roster := make(Roster, 0, len(ws))
	seen := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		c, err := w.record("")
		if err != nil {
			return nil, err
		}
		if w.Staleness == nil {
			return nil, malformed(ErrMissingField, "staleness")
		}
		if _, ok := seen[c.ID]; ok {
			return nil, malformed(ErrDuplicateID, c.ID)
		}
		seen[c.ID] = struct{}{}
		roster = append(roster, c)
	}

	return roster, nil
}

// DecodeClient parses the per-client endpoint response. Trust and local
// accuracy are required since both are plotted. When the body has no id, id
// is used.
func DecodeClient(data []byte, id string) (ClientRecord, error) {
	var w wireClient
	if err := json.Unmarshal(data, &w); err != nil {
		return ClientRecord{}, errors.Join(pkgerrors.ErrMalformedPayload, err)
	}

	c, err := w.record(id)
	if err != nil {
		return ClientRecord{}, err
	}
	if w.LocalAccuracy == nil {
		return ClientRecord{}, malformed(ErrMissingField, "local_accuracy")
	}

	return c, nil
}

// DecodeLogs parses a logs_update payload.
func DecodeLogs(data []byte) (Logs, error) {
	var logs Logs
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, errors.Join(pkgerrors.ErrMalformedPayload, err)
	}
	if logs == nil {
		return nil, malformed(ErrMissingField, "logs")
	}

	return logs, nil
}

func (w wireClient) record(fallbackID string) (ClientRecord, error) {
	id, err := parseID(w.ID)
	if err != nil {
		return ClientRecord{}, err
	}
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		return ClientRecord{}, malformed(ErrMissingField, "id")
	}

	switch {
	case w.Trust == nil:
		return ClientRecord{}, malformed(ErrMissingField, "trust")
	case math.IsNaN(*w.Trust) || *w.Trust < 0 || *w.Trust > 1:
		return ClientRecord{}, malformed(ErrOutOfRange, "trust")
	case w.Staleness != nil && *w.Staleness < 0:
		return ClientRecord{}, malformed(ErrOutOfRange, "staleness")
	}

	return ClientRecord{
		ID:            id,
		Trust:         *w.Trust,
		Status:        w.Status,
		Staleness:     w.Staleness,
		LocalAccuracy: w.LocalAccuracy,
		UpdateStatus:  w.UpdateStatus,
		DPSigma:       w.DPSigma,
		ClipNorm:      w.ClipNorm,
	}, nil
}

// parseID accepts ids sent either as JSON numbers or strings.
func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errors.Join(pkgerrors.ErrMalformedPayload, err)
		}

		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.Join(pkgerrors.ErrMalformedPayload, err)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}

	return n.String(), nil
}

package fl_test

import (
	"testing"

	pkgerrors "github.com/absmach/fldash/pkg/errors"
	"github.com/absmach/fldash/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		want    fl.RoundSnapshot
		wantErr error
	}{
		{
			name:    "complete snapshot",
			payload: `{"round":3,"global_accuracy":0.56,"global_loss":0.9,"rejected_updates":1,"dp_sigma":0.05,"clip_norm":1.0}`,
			want: fl.RoundSnapshot{
				Round:           3,
				GlobalAccuracy:  0.56,
				GlobalLoss:      0.9,
				RejectedUpdates: 1,
				DPSigma:         0.05,
				ClipNorm:        1.0,
			},
		},
		{
			name:    "zero values are kept when present",
			payload: `{"round":0,"global_accuracy":0,"global_loss":0,"rejected_updates":0,"dp_sigma":0,"clip_norm":0}`,
			want:    fl.RoundSnapshot{},
		},
		{
			name:    "missing loss",
			payload: `{"round":3,"global_accuracy":0.56,"rejected_updates":1,"dp_sigma":0.05,"clip_norm":1.0}`,
			wantErr: fl.ErrMissingField,
		},
		{
			name:    "negative round",
			payload: `{"round":-1,"global_accuracy":0.56,"global_loss":0.9,"rejected_updates":1,"dp_sigma":0.05,"clip_norm":1.0}`,
			wantErr: fl.ErrOutOfRange,
		},
		{
			name:    "not json",
			payload: `round 3`,
			wantErr: pkgerrors.ErrMalformedPayload,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := fl.DecodeRound([]byte(tc.payload))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeRoster(t *testing.T) {
	t.Parallel()

	roster, err := fl.DecodeRoster([]byte(`[
		{"id":1,"trust":0.92,"status":"active","staleness":1},
		{"id":"2","trust":0.45,"status":"malicious","staleness":5}
	]`))
	require.NoError(t, err)
	require.Len(t, roster, 2)

	assert.Equal(t, "1", roster[0].ID)
	assert.Equal(t, "2", roster[1].ID)
	assert.Equal(t, "malicious", roster[1].Status)
	require.NotNil(t, roster[1].Staleness)
	assert.Equal(t, 5, *roster[1].Staleness)
	assert.Nil(t, roster[0].LocalAccuracy)

	empty, err := fl.DecodeRoster([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeRosterRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		wantErr error
	}{
		{name: "missing id", payload: `[{"trust":0.9,"staleness":1}]`, wantErr: fl.ErrMissingField},
		{name: "missing trust", payload: `[{"id":1,"staleness":1}]`, wantErr: fl.ErrMissingField},
		{name: "missing staleness", payload: `[{"id":1,"trust":0.9}]`, wantErr: fl.ErrMissingField},
		{name: "trust above one", payload: `[{"id":1,"trust":1.2,"staleness":1}]`, wantErr: fl.ErrOutOfRange},
		{name: "negative staleness", payload: `[{"id":1,"trust":0.2,"staleness":-3}]`, wantErr: fl.ErrOutOfRange},
		{name: "duplicate id", payload: `[{"id":1,"trust":0.2,"staleness":0},{"id":"1","trust":0.3,"staleness":0}]`, wantErr: fl.ErrDuplicateID},
		{name: "object instead of list", payload: `{"id":1}`, wantErr: pkgerrors.ErrMalformedPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := fl.DecodeRoster([]byte(tc.payload))
			require.ErrorIs(t, err, tc.wantErr)
			require.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
		})
	}
}

func TestDecodeClient(t *testing.T) {
	t.Parallel()

	c, err := fl.DecodeClient([]byte(`{"local_accuracy":0.71,"trust":0.88,"update_status":"Accepted","dp_sigma":0.05,"clip_norm":1.0}`), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", c.ID)
	assert.InDelta(t, 0.88, c.Trust, 1e-9)
	require.NotNil(t, c.LocalAccuracy)
	assert.InDelta(t, 0.71, *c.LocalAccuracy, 1e-9)
	assert.Equal(t, "Accepted", c.UpdateStatus)
	assert.Nil(t, c.Staleness)

	withID, err := fl.DecodeClient([]byte(`{"id":3,"local_accuracy":0.7,"trust":0.5}`), "7")
	require.NoError(t, err)
	assert.Equal(t, "3", withID.ID)

	_, err = fl.DecodeClient([]byte(`{"trust":0.88}`), "7")
	require.ErrorIs(t, err, fl.ErrMissingField)
}

func TestDecodeLogs(t *testing.T) {
	t.Parallel()

	logs, err := fl.DecodeLogs([]byte(`["Round 1 aggregation complete.","Round 2 aggregation complete."]`))
	require.NoError(t, err)
	assert.Equal(t, fl.Logs{"Round 1 aggregation complete.", "Round 2 aggregation complete."}, logs)

	_, err = fl.DecodeLogs([]byte(`null`))
	require.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)

	_, err = fl.DecodeLogs([]byte(`[1,2]`))
	require.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
}

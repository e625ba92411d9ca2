package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	cand := json.RawMessage(`{"candidate":"candidate:1 1 udp"}`)

	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{"join ok", Message{Type: TypeJoinRoom, RoomID: "r1", Role: RoleOwner}, nil},
		{"join missing room", Message{Type: TypeJoinRoom, Role: RoleViewer}, ErrMissingField},
		{"join missing role", Message{Type: TypeJoinRoom, RoomID: "r1"}, ErrInvalidRole},
		{"join bad role", Message{Type: TypeJoinRoom, RoomID: "r1", Role: "admin"}, ErrInvalidRole},
		{"offer ok", Message{Type: TypeViewerOffer, RoomID: "r1", SDP: sdp}, nil},
		{"offer missing sdp", Message{Type: TypeViewerOffer, RoomID: "r1"}, ErrMissingField},
		{"answer ok", Message{Type: TypeOwnerAnswer, RoomID: "r1", To: "v1", SDP: sdp}, nil},
		{"answer missing to", Message{Type: TypeOwnerAnswer, RoomID: "r1", SDP: sdp}, ErrMissingField},
		{"candidate ok", Message{Type: TypeICECandidate, RoomID: "r1", Candidate: cand}, nil},
		{"candidate missing body", Message{Type: TypeICECandidate, RoomID: "r1"}, ErrMissingField},
		{"server-only type", Message{Type: TypeOwnerReady}, ErrNotPeerToRely},
		{"unknown type", Message{Type: "shutdown"}, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := Message{
		Type:      TypeViewerOffer,
		RoomID:    "r1",
		From:      "v1",
		SDP:       json.RawMessage(`{"type":"offer","sdp":"v=0\r\n"}`),
		Candidate: nil,
	}

	data, err := json.Marshal(&in)
	require.NoError(t, err)

	var out Message
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.RoomID, out.RoomID)
	assert.Equal(t, in.From, out.From)
	assert.JSONEq(t, string(in.SDP), string(out.SDP))
	assert.Empty(t, out.Candidate, "omitempty must drop unused payloads")
}

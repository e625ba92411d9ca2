package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hayato040404/Watch/internal/protocol"
)

var (
	testSDP  = json.RawMessage(`{"type":"offer","sdp":"v=0\r\n"}`)
	testCand = json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 10.0.0.1 50000 typ host"}`)
)

func newTestHub() *Hub {
	return NewHub()
}

func join(h *Hub, c *Client, room string, role protocol.Role) {
	h.route(c, &protocol.Message{Type: protocol.TypeJoinRoom, RoomID: room, Role: role})
}

func TestRouteDropsInvalidJoin(t *testing.T) {
	h := newTestHub()
	c := newTestClient("p1")

	h.route(c, &protocol.Message{Type: protocol.TypeJoinRoom, RoomID: "r1"}) // no role
	h.route(c, &protocol.Message{Type: protocol.TypeJoinRoom, Role: protocol.RoleOwner})

	assert.Nil(t, h.reg.room("r1"), "invalid joins mutate nothing")
	assert.Empty(t, drain(c), "no error reply either")
}

func TestRouteViewerOfferToOwner(t *testing.T) {
	h := newTestHub()
	owner := newTestClient("o1")
	viewer := newTestClient("v1")

	join(h, owner, "r1", protocol.RoleOwner)
	join(h, viewer, "r1", protocol.RoleViewer)
	drain(viewer)

	h.route(viewer, &protocol.Message{Type: protocol.TypeViewerOffer, RoomID: "r1", SDP: testSDP})

	msgs := drain(owner)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeViewerOffer, msgs[0].Type)
	assert.Equal(t, "v1", msgs[0].From, "relay tags the sender")
	assert.JSONEq(t, string(testSDP), string(msgs[0].SDP))
}

func TestRouteViewerOfferWithoutOwnerIsDropped(t *testing.T) {
	h := newTestHub()
	viewer := newTestClient("v1")
	bystander := newTestClient("v2")

	join(h, viewer, "r1", protocol.RoleViewer)
	join(h, bystander, "r1", protocol.RoleViewer)

	h.route(viewer, &protocol.Message{Type: protocol.TypeViewerOffer, RoomID: "r1", SDP: testSDP})

	assert.Empty(t, drain(viewer))
	assert.Empty(t, drain(bystander), "offers are never broadcast")
}

func TestRouteOwnerAnswerOnlyToTarget(t *testing.T) {
	h := newTestHub()
	owner := newTestClient("o1")
	v1 := newTestClient("v1")
	v2 := newTestClient("v2")

	join(h, owner, "r1", protocol.RoleOwner)
	join(h, v1, "r1", protocol.RoleViewer)
	join(h, v2, "r1", protocol.RoleViewer)
	drain(v1)
	drain(v2)

	h.route(owner, &protocol.Message{Type: protocol.TypeOwnerAnswer, RoomID: "r1", To: "v1", SDP: testSDP})

	msgs := drain(v1)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeOwnerAnswer, msgs[0].Type)
	assert.Empty(t, msgs[0].To, "relay strips the target field")
	assert.JSONEq(t, string(testSDP), string(msgs[0].SDP))

	assert.Empty(t, drain(v2))
}

func TestRouteOwnerAnswerToUnknownViewerIsDropped(t *testing.T) {
	h := newTestHub()
	owner := newTestClient("o1")
	join(h, owner, "r1", protocol.RoleOwner)

	h.route(owner, &protocol.Message{Type: protocol.TypeOwnerAnswer, RoomID: "r1", To: "ghost", SDP: testSDP})

	assert.Empty(t, drain(owner))
}

func TestRouteCandidateFromViewer(t *testing.T) {
	h := newTestHub()
	owner := newTestClient("o1")
	viewer := newTestClient("v1")

	join(h, owner, "r1", protocol.RoleOwner)
	join(h, viewer, "r1", protocol.RoleViewer)
	drain(viewer)

	h.route(viewer, &protocol.Message{Type: protocol.TypeICECandidate, RoomID: "r1", Candidate: testCand})

	msgs := drain(owner)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeICECandidate, msgs[0].Type)
	assert.Equal(t, "v1", msgs[0].From)
}

func TestRouteCandidateFromOwnerNeedsTarget(t *testing.T) {
	h := newTestHub()
	owner := newTestClient("o1")
	v1 := newTestClient("v1")
	v2 := newTestClient("v2")

	join(h, owner, "r1", protocol.RoleOwner)
	join(h, v1, "r1", protocol.RoleViewer)
	join(h, v2, "r1", protocol.RoleViewer)
	drain(v1)
	drain(v2)

	// Without "to" the candidate resolves no recipient and is dropped.
	h.route(owner, &protocol.Message{Type: protocol.TypeICECandidate, RoomID: "r1", Candidate: testCand})
	assert.Empty(t, drain(v1))
	assert.Empty(t, drain(v2))

	h.route(owner, &protocol.Message{Type: protocol.TypeICECandidate, RoomID: "r1", To: "v2", Candidate: testCand})
	assert.Empty(t, drain(v1))

	msgs := drain(v2)
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].From, "owner candidates are not tagged")
}

// The full handshake scenario from the signaling contract, driven through
// the router directly.
func TestScenarioOwnerSharesToOneViewer(t *testing.T) {
	h := newTestHub()
	owner := newTestClient("ownerId")
	viewer := newTestClient("v1")

	join(h, owner, "r1", protocol.RoleOwner)
	room := h.reg.room("r1")
	require.NotNil(t, room)
	assert.Same(t, owner, room.Owner)
	assert.Empty(t, room.Viewers)

	join(h, viewer, "r1", protocol.RoleViewer)
	msgs := drain(viewer)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeOwnerReady, msgs[0].Type)

	h.route(viewer, &protocol.Message{Type: protocol.TypeViewerOffer, RoomID: "r1", SDP: testSDP})
	msgs = drain(owner)
	require.Len(t, msgs, 1)
	assert.Equal(t, "v1", msgs[0].From)

	h.route(owner, &protocol.Message{Type: protocol.TypeOwnerAnswer, RoomID: "r1", To: "v1", SDP: testSDP})
	msgs = drain(viewer)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeOwnerAnswer, msgs[0].Type)

	h.reg.leave(owner)
	msgs = drain(viewer)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeOwnerLeft, msgs[0].Type)

	room = h.reg.room("r1")
	require.NotNil(t, room, "room persists: one viewer remains")
	assert.Nil(t, room.Owner)
	assert.Len(t, room.Viewers, 1)
}

package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hayato040404/Watch/internal/protocol"
)

func newTestClient(id string) *Client {
	return &Client{
		ID:   id,
		send: make(chan *protocol.Message, 16),
	}
}

// drain empties a client's send queue and returns what was queued.
func drain(c *Client) []*protocol.Message {
	var msgs []*protocol.Message
	for {
		select {
		case m := <-c.send:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestJoinOwnerThenViewer(t *testing.T) {
	reg := NewRegistry()
	owner := newTestClient("o1")
	viewer := newTestClient("v1")

	reg.join(owner, "r1", protocol.RoleOwner)
	room := reg.room("r1")
	require.NotNil(t, room)
	assert.Same(t, owner, room.Owner)
	assert.Empty(t, room.Viewers)

	reg.join(viewer, "r1", protocol.RoleViewer)
	assert.Len(t, room.Viewers, 1)

	msgs := drain(viewer)
	require.Len(t, msgs, 1, "viewer joining after owner is notified immediately")
	assert.Equal(t, protocol.TypeOwnerReady, msgs[0].Type)
}

func TestJoinOwnerNotifiesWaitingViewers(t *testing.T) {
	reg := NewRegistry()
	v1 := newTestClient("v1")
	v2 := newTestClient("v2")
	owner := newTestClient("o1")

	reg.join(v1, "r1", protocol.RoleViewer)
	reg.join(v2, "r1", protocol.RoleViewer)
	assert.Empty(t, drain(v1), "no owner yet, nothing to announce")

	reg.join(owner, "r1", protocol.RoleOwner)

	for _, v := range []*Client{v1, v2} {
		msgs := drain(v)
		require.Len(t, msgs, 1)
		assert.Equal(t, protocol.TypeOwnerReady, msgs[0].Type)
	}
}

func TestOwnerReplacementLastWriterWins(t *testing.T) {
	reg := NewRegistry()
	first := newTestClient("o1")
	second := newTestClient("o2")
	viewer := newTestClient("v1")

	reg.join(first, "r1", protocol.RoleOwner)
	reg.join(viewer, "r1", protocol.RoleViewer)
	drain(viewer)

	reg.join(second, "r1", protocol.RoleOwner)

	room := reg.room("r1")
	assert.Same(t, second, room.Owner, "owner slot holds the last writer")
	assert.Empty(t, drain(first), "displaced owner gets no eviction message")

	msgs := drain(viewer)
	require.Len(t, msgs, 1, "viewers are re-notified when an owner rejoins")
	assert.Equal(t, protocol.TypeOwnerReady, msgs[0].Type)
}

func TestViewerJoinIsIdempotentPerID(t *testing.T) {
	reg := NewRegistry()
	viewer := newTestClient("v1")

	reg.join(viewer, "r1", protocol.RoleViewer)
	reg.join(viewer, "r1", protocol.RoleViewer)

	assert.Len(t, reg.room("r1").Viewers, 1, "at most one entry per participant ID")
}

func TestLeaveOwnerNotifiesViewersAndKeepsRoom(t *testing.T) {
	reg := NewRegistry()
	owner := newTestClient("o1")
	viewer := newTestClient("v1")

	reg.join(owner, "r1", protocol.RoleOwner)
	reg.join(viewer, "r1", protocol.RoleViewer)
	drain(viewer)

	reg.leave(owner)

	msgs := drain(viewer)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeOwnerLeft, msgs[0].Type)

	room := reg.room("r1")
	require.NotNil(t, room, "room persists while viewers remain")
	assert.Nil(t, room.Owner)
	assert.Empty(t, owner.room)
}

func TestLeaveViewerIsSilentForOwner(t *testing.T) {
	reg := NewRegistry()
	owner := newTestClient("o1")
	viewer := newTestClient("v1")

	reg.join(owner, "r1", protocol.RoleOwner)
	reg.join(viewer, "r1", protocol.RoleViewer)
	drain(viewer)

	reg.leave(viewer)

	assert.Empty(t, drain(owner), "owner learns of viewer loss via transport state only")
	assert.Empty(t, reg.room("r1").Viewers)
}

func TestEmptyRoomIsDeleted(t *testing.T) {
	reg := NewRegistry()
	owner := newTestClient("o1")
	viewer := newTestClient("v1")

	reg.join(owner, "r1", protocol.RoleOwner)
	reg.join(viewer, "r1", protocol.RoleViewer)

	reg.leave(owner)
	require.NotNil(t, reg.room("r1"))

	reg.leave(viewer)
	assert.Nil(t, reg.room("r1"), "a room with no owner and no viewers never lingers")
}

// Rejoining a different room implies leaving the previous one first, with
// full leave side effects. The original implementation silently overwrote
// the membership bookkeeping and leaked the old entry; that was a bug, not a
// contract.
func TestRejoinLeavesPreviousRoom(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("p1")
	other := newTestClient("v9")

	reg.join(c, "a", protocol.RoleViewer)
	reg.join(c, "b", protocol.RoleOwner)

	assert.Nil(t, reg.room("a"), "old room emptied and deleted on rejoin")
	assert.Same(t, c, reg.room("b").Owner)

	// Owner switching rooms notifies its old viewers.
	reg.join(other, "b", protocol.RoleViewer)
	drain(other)
	reg.join(c, "c", protocol.RoleOwner)

	msgs := drain(other)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeOwnerLeft, msgs[0].Type)
}

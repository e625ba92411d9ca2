package relay

// Room groups at most one owner with any number of viewers.
type Room struct {
	// ID is the caller-supplied room identifier.
	ID string

	// Owner is the sharing participant, or nil while no owner has joined.
	Owner *Client

	// Viewers maps participant IDs to viewer connections.
	Viewers map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Viewers: make(map[string]*Client),
	}
}

// empty reports whether the room holds no participants at all. Empty rooms
// are deleted from the registry, never kept around.
func (r *Room) empty() bool {
	return r.Owner == nil && len(r.Viewers) == 0
}

package ws

import "sync"

// RoomKey identifies the group of clients watching one issue.
type RoomKey struct {
	ProjectID string
	IssueID   string
}

// Handle is one live client connection as seen by the registry and
// broadcaster. *Conn implements it; tests substitute their own.
type Handle interface {
	// Send queues a message for delivery. It returns an error when the
	// connection is gone or cannot keep up; the caller treats that as a
	// dead handle.
	Send(msg []byte) error
}

// Registry maps rooms to the connections this instance holds for them.
// All access goes through one mutex; nothing outside this type may touch a
// member set directly.
type Registry struct {
	mu    sync.Mutex
	rooms map[RoomKey]map[Handle]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[RoomKey]map[Handle]struct{})}
}

// Join adds h to the room, creating the room on first member.
func (r *Registry) Join(room RoomKey, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[room]
	if set == nil {
		set = make(map[Handle]struct{})
		r.rooms[room] = set
	}
	set[h] = struct{}{}
}

// Leave removes h from the room and evicts the room once empty.
// Calling it for a handle that never joined is a no-op.
func (r *Registry) Leave(room RoomKey, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[room]
	if set == nil {
		return
	}
	delete(set, h)
	if len(set) == 0 {
		delete(r.rooms, room)
	}
}

// Members returns a point-in-time copy of the room's member set. Later
// Join/Leave calls never affect the returned slice.
func (r *Registry) Members(room RoomKey) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[room]
	if len(set) == 0 {
		return nil
	}
	out := make([]Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

// Stats reports room and connection counts across the registry.
func (r *Registry) Stats() (rooms, conns int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms = len(r.rooms)
	for _, set := range r.rooms {
		conns += len(set)
	}
	return rooms, conns
}

package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopHandle must not be zero-size: distinct *nopHandle values are used as
// map keys, and Go may give all zero-size allocations the same address.
type nopHandle struct{ _ byte }

func (nopHandle) Send([]byte) error { return nil }

func TestRegistry_JoinLeaveMembers(t *testing.T) {
	room := RoomKey{ProjectID: "p1", IssueID: "i1"}
	other := RoomKey{ProjectID: "p1", IssueID: "i2"}

	tests := []struct {
		name    string
		run     func(r *Registry, a, b Handle)
		want    int
		wantAll int // connections across the registry
	}{
		{
			name: "two members",
			run: func(r *Registry, a, b Handle) {
				r.Join(room, a)
				r.Join(room, b)
			},
			want:    2,
			wantAll: 2,
		},
		{
			name: "join is idempotent",
			run: func(r *Registry, a, b Handle) {
				r.Join(room, a)
				r.Join(room, a)
			},
			want:    1,
			wantAll: 1,
		},
		{
			name: "leave removes only the handle",
			run: func(r *Registry, a, b Handle) {
				r.Join(room, a)
				r.Join(room, b)
				r.Leave(room, a)
			},
			want:    1,
			wantAll: 1,
		},
		{
			name: "leave of absent handle is a no-op",
			run: func(r *Registry, a, b Handle) {
				r.Join(room, a)
				r.Leave(room, b)
				r.Leave(other, a)
			},
			want:    1,
			wantAll: 1,
		},
		{
			name: "rooms do not share members",
			run: func(r *Registry, a, b Handle) {
				r.Join(room, a)
				r.Join(other, b)
			},
			want:    1,
			wantAll: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.run(r, &nopHandle{}, &nopHandle{})

			assert.Len(t, r.Members(room), tt.want)
			_, conns := r.Stats()
			assert.Equal(t, tt.wantAll, conns)
		})
	}
}

func TestRegistry_EmptyRoomEvicted(t *testing.T) {
	r := NewRegistry()
	room := RoomKey{ProjectID: "p1", IssueID: "i1"}
	h := &nopHandle{}

	r.Join(room, h)
	rooms, _ := r.Stats()
	require.Equal(t, 1, rooms)

	r.Leave(room, h)
	rooms, conns := r.Stats()
	assert.Equal(t, 0, rooms, "empty room must not linger in the registry")
	assert.Equal(t, 0, conns)
}

func TestRegistry_MembersIsSnapshot(t *testing.T) {
	r := NewRegistry()
	room := RoomKey{ProjectID: "p1", IssueID: "i1"}
	a, b := &nopHandle{}, &nopHandle{}

	r.Join(room, a)
	got := r.Members(room)
	r.Join(room, b)
	r.Leave(room, a)

	assert.Len(t, got, 1, "mutations after Members must not affect the returned slice")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	room := RoomKey{ProjectID: "p1", IssueID: "i1"}

	var wg sync.WaitGroup
	handles := make([]*nopHandle, 64)
	for i := range handles {
		handles[i] = &nopHandle{}
	}

	for _, h := range handles {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			r.Join(room, h)
			r.Members(room)
			r.Leave(room, h)
		}(h)
	}
	wg.Wait()

	rooms, conns := r.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, conns)
}

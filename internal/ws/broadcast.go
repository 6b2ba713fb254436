package ws

import (
	"encoding/json"

	"log/slog"

	"github.com/Rajatg180/issueFlow-Project/pkg/metrics"
)

// EventSink receives decoded bus events. The broadcaster implements it so
// the bus bridge never depends on the registry directly.
type EventSink interface {
	Deliver(ev FanoutEvent)
}

// Broadcaster fans a message out to every local member of a room.
// Delivery is at-most-once per handle per call: no retry, no buffering
// beyond the connection's own send queue. A handle whose send fails is
// removed from the registry on the spot.
type Broadcaster struct {
	log *slog.Logger
	reg *Registry
}

func NewBroadcaster(log *slog.Logger, reg *Registry) *Broadcaster {
	return &Broadcaster{log: log, reg: reg}
}

// Broadcast sends msg to a snapshot of the room's current members. A
// failure on one handle never aborts delivery to the rest.
func (b *Broadcaster) Broadcast(room RoomKey, msg []byte) {
	members := b.reg.Members(room)
	var dead []Handle
	for _, h := range members {
		if err := h.Send(msg); err != nil {
			dead = append(dead, h)
		}
	}
	for _, h := range dead {
		b.reg.Leave(room, h)
		metrics.EventsDropped.Inc()
	}
	if len(dead) > 0 {
		b.log.Debug("ws.broadcast.pruned", "project", room.ProjectID, "issue", room.IssueID, "dead", len(dead))
	}
	metrics.EventsDelivered.Add(float64(len(members) - len(dead)))
}

// Deliver forwards a bus event to the local members of its room. An
// instance holding no members for the room does nothing.
func (b *Broadcaster) Deliver(ev FanoutEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	b.Broadcast(ev.Room(), raw)
}

package ws

import (
	"encoding/json"

	"github.com/Rajatg180/issueFlow-Project/internal/store"
)

// Event types carried over the bus and sent to clients as-is.
const (
	EventCommentCreated = "comment_created"
	EventCommentUpdated = "comment_updated"
	EventCommentDeleted = "comment_deleted"
)

// FanoutEvent is one comment mutation in transit between the instance that
// handled the write and every instance's room members. It is never persisted.
type FanoutEvent struct {
	Type      string         `json:"type"`
	ProjectID string         `json:"project_id"`
	IssueID   string         `json:"issue_id"`
	Comment   *store.Comment `json:"comment,omitempty"`    // created/updated
	CommentID string         `json:"comment_id,omitempty"` // deleted
}

// Room returns the key of the room this event belongs to.
func (e FanoutEvent) Room() RoomKey {
	return RoomKey{ProjectID: e.ProjectID, IssueID: e.IssueID}
}

// decodeEvent parses a bus payload. A malformed or incomplete payload
// returns ok=false; the caller drops it and moves on.
func decodeEvent(raw []byte) (FanoutEvent, bool) {
	var ev FanoutEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return FanoutEvent{}, false
	}
	if ev.Type == "" || ev.ProjectID == "" || ev.IssueID == "" {
		return FanoutEvent{}, false
	}
	return ev, true
}

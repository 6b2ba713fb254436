package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/Rajatg180/issueFlow-Project/internal/store"
	"github.com/Rajatg180/issueFlow-Project/internal/ws"
	"github.com/Rajatg180/issueFlow-Project/pkg/auth"
)

// CommentsAPI is the write path that feeds the fan-out channel: every
// mutation, once committed, publishes an event for all instances.
type CommentsAPI struct {
	DB  *store.Postgres
	Bus *ws.Bus
	Log *slog.Logger
}

type commentBodyReq struct {
	Body string `json:"body"`
}

// List returns an issue's comments oldest first
func (a *CommentsAPI) List(w http.ResponseWriter, r *http.Request) {
	projectID, issueID := r.PathValue("projectId"), r.PathValue("issueId")
	uid := auth.UserID(r.Context())

	if err := a.DB.EnsureIssueAccess(r.Context(), projectID, issueID, uid); err != nil {
		fail(w, err)
		return
	}
	comments, err := a.DB.ListComments(r.Context(), projectID, issueID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []store.Comment{}
	}
	writeJSON(w, comments)
}

// Create posts a comment, then fans it out
func (a *CommentsAPI) Create(w http.ResponseWriter, r *http.Request) {
	projectID, issueID := r.PathValue("projectId"), r.PathValue("issueId")
	uid := auth.UserID(r.Context())

	var req commentBodyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	if err := a.DB.EnsureIssueAccess(r.Context(), projectID, issueID, uid); err != nil {
		fail(w, err)
		return
	}
	c, err := a.DB.CreateComment(r.Context(), projectID, issueID, uid, req.Body)
	if err != nil {
		fail(w, err)
		return
	}

	a.publish(r.Context(), ws.FanoutEvent{
		Type:      ws.EventCommentCreated,
		ProjectID: projectID,
		IssueID:   issueID,
		Comment:   &c,
	})
	writeJSON(w, c)
}

// Update edits a comment's body (author only), then fans it out
func (a *CommentsAPI) Update(w http.ResponseWriter, r *http.Request) {
	projectID, issueID := r.PathValue("projectId"), r.PathValue("issueId")
	commentID := r.PathValue("commentId")
	uid := auth.UserID(r.Context())

	var req commentBodyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	if err := a.DB.EnsureIssueAccess(r.Context(), projectID, issueID, uid); err != nil {
		fail(w, err)
		return
	}
	c, err := a.DB.UpdateComment(r.Context(), projectID, issueID, commentID, uid, req.Body)
	if err != nil {
		fail(w, err)
		return
	}

	a.publish(r.Context(), ws.FanoutEvent{
		Type:      ws.EventCommentUpdated,
		ProjectID: projectID,
		IssueID:   issueID,
		Comment:   &c,
	})
	writeJSON(w, c)
}

// Delete removes a comment (author only), then fans out the ID
func (a *CommentsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, issueID := r.PathValue("projectId"), r.PathValue("issueId")
	commentID := r.PathValue("commentId")
	uid := auth.UserID(r.Context())

	if err := a.DB.EnsureIssueAccess(r.Context(), projectID, issueID, uid); err != nil {
		fail(w, err)
		return
	}
	if err := a.DB.DeleteComment(r.Context(), projectID, issueID, commentID, uid); err != nil {
		fail(w, err)
		return
	}

	a.publish(r.Context(), ws.FanoutEvent{
		Type:      ws.EventCommentDeleted,
		ProjectID: projectID,
		IssueID:   issueID,
		CommentID: commentID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// publish is fire-and-forget: a committed write must never turn into a
// failed response because the fan-out side channel misbehaved.
func (a *CommentsAPI) publish(ctx context.Context, ev ws.FanoutEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			a.Log.Error("fanout.publish.panic", "type", ev.Type, "panic", rec)
		}
	}()
	a.Bus.Publish(ctx, ev)
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"log/slog"
	"nhooyr.io/websocket"

	"github.com/Rajatg180/issueFlow-Project/internal/store"
	"github.com/Rajatg180/issueFlow-Project/pkg/auth"
	"github.com/Rajatg180/issueFlow-Project/pkg/metrics"
)

// Auth + authorization + snapshot fetch must finish inside this window or
// the connection is closed as failed.
const handshakeTimeout = 10 * time.Second

var errMissingToken = errors.New("missing token")

// TokenVerifier resolves a bearer credential to a user ID.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// RoomStore is the slice of the persistence layer the handler needs: who
// may watch a room, and what a joining client should see first.
type RoomStore interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	EnsureIssueAccess(ctx context.Context, projectID, issueID, userID string) error
	ListComments(ctx context.Context, projectID, issueID string) ([]store.Comment, error)
}

type inboundFrame struct {
	Type string `json:"type"`
}

type snapshotFrame struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"project_id"`
	IssueID   string          `json:"issue_id"`
	Comments  []store.Comment `json:"comments"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var pongPayload = []byte(`{"type":"pong"}`)

// Hub owns the live-connection endpoint: it runs the per-connection
// handshake and read loop, and admits handles into the registry. All
// comment mutation goes through the HTTP API; this channel only watches.
type Hub struct {
	log    *slog.Logger
	reg    *Registry
	tokens TokenVerifier
	db     RoomStore
}

func NewHub(log *slog.Logger, reg *Registry, tokens TokenVerifier, db RoomStore) *Hub {
	return &Hub{log: log, reg: reg, tokens: tokens, db: db}
}

// Stats reports current room and connection counts on this instance.
func (h *Hub) Stats() (rooms, conns int) { return h.reg.Stats() }

// ServeWS handles GET /ws/projects/{projectId}/issues/{issueId}/comments.
//
// The bearer token rides in ?token= because this transport cannot carry
// headers after the upgrade. On a handshake failure the socket is accepted
// just long enough to deliver one error frame, then closed; the connection
// never joins a room.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	issueID := r.PathValue("issueId")
	if projectID == "" || issueID == "" {
		http.Error(w, "projectId and issueId required", http.StatusBadRequest)
		return
	}
	room := RoomKey{ProjectID: projectID, IssueID: issueID}

	hctx, hcancel := context.WithTimeout(r.Context(), handshakeTimeout)
	userID, comments, hsErr := h.handshake(hctx, r, projectID, issueID)
	hcancel()

	sock, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	if hsErr != nil {
		h.log.Info("ws.handshake.reject", "project", projectID, "issue", issueID, "reason", hsErr)
		h.refuse(r.Context(), sock, hsErr)
		return
	}

	c := NewConn(sock)
	h.log.Info("ws.join", "conn", c.ID(), "project", projectID, "issue", issueID, "user", userID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go c.WriteLoop(ctx)

	h.reg.Join(room, c)
	metrics.ConnectionsActive.Inc()
	defer func() {
		h.reg.Leave(room, c)
		metrics.ConnectionsActive.Dec()
		_ = c.Close()
		h.log.Info("ws.leave", "conn", c.ID(), "project", projectID, "issue", issueID)
	}()
	defer func() {
		// An unexpected fault closes this connection only; details stay
		// out of the frame sent to the client.
		if rec := recover(); rec != nil {
			h.log.Error("ws.conn.panic", "conn", c.ID(), "panic", rec)
			_ = c.Send(mustFrame(errorFrame{Type: "error", Message: "server error"}))
		}
	}()

	snap := mustFrame(snapshotFrame{
		Type:      "snapshot",
		ProjectID: projectID,
		IssueID:   issueID,
		Comments:  comments,
	})
	if err := c.Send(snap); err != nil {
		return
	}

	for {
		raw, err := c.Read(ctx)
		if err != nil {
			return // client closed or transport failed
		}
		if reply := replyTo(raw); reply != nil {
			if err := c.Send(reply); err != nil {
				return
			}
		}
	}
}

// handshake authenticates the token and checks read access to the room,
// returning the initial snapshot on success. Runs before the socket is
// accepted.
func (h *Hub) handshake(ctx context.Context, r *http.Request, projectID, issueID string) (string, []store.Comment, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", nil, errMissingToken
	}
	userID, err := h.tokens.VerifyAccess(token)
	if err != nil {
		return "", nil, err
	}
	known, err := h.db.UserExists(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if !known {
		return "", nil, store.ErrUserNotFound
	}
	if err := h.db.EnsureIssueAccess(ctx, projectID, issueID, userID); err != nil {
		return "", nil, err
	}
	comments, err := h.db.ListComments(ctx, projectID, issueID)
	if err != nil {
		return "", nil, err
	}
	return userID, comments, nil
}

// refuse delivers one error frame and closes. Best-effort on both counts.
func (h *Hub) refuse(ctx context.Context, sock *websocket.Conn, cause error) {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	frame := mustFrame(errorFrame{Type: "error", Message: publicError(cause)})
	_ = sock.Write(wctx, websocket.MessageText, frame)
	_ = sock.Close(websocket.StatusPolicyViolation, "handshake failed")
}

// replyTo maps one inbound frame to its response. Ping gets a pong;
// everything else is refused because this channel is read-only.
func replyTo(raw []byte) []byte {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return mustFrame(errorFrame{Type: "error", Message: "malformed frame"})
	}
	if f.Type == "ping" {
		return pongPayload
	}
	return mustFrame(errorFrame{
		Type:    "error",
		Message: "this channel is read-only; use the HTTP API to create, edit or delete comments",
	})
}

// publicError picks the message a rejected client is allowed to see.
func publicError(err error) string {
	switch {
	case errors.Is(err, errMissingToken),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrIssueNotFound),
		errors.Is(err, store.ErrForbidden):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "handshake timed out"
	default:
		// Token parse errors carry no internals; anything else might.
		if isTokenError(err) {
			return err.Error()
		}
		return "server error"
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrNotAccessToken)
}

func mustFrame(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err) // frames are our own structs; this cannot fail at runtime
	}
	return raw
}

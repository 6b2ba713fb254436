package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Rajatg180/issueFlow-Project/internal/store"
	"github.com/Rajatg180/issueFlow-Project/pkg/auth"
)

type stubVerifier struct {
	uid string
	err error
}

func (s stubVerifier) VerifyAccess(string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.uid, nil
}

type stubStore struct {
	comments  []store.Comment
	userOK    bool
	accessErr error
}

func (s stubStore) UserExists(context.Context, string) (bool, error) { return s.userOK, nil }
func (s stubStore) EnsureIssueAccess(context.Context, string, string, string) error {
	return s.accessErr
}
func (s stubStore) ListComments(context.Context, string, string) ([]store.Comment, error) {
	return s.comments, nil
}

func threeComments() []store.Comment {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]store.Comment, 3)
	for i, id := range []string{"c1", "c2", "c3"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		out[i] = store.Comment{
			ID: id, ProjectID: "p1", IssueID: "i1",
			AuthorID: "u1", AuthorUsername: "ada",
			Body: "comment " + id, CreatedAt: ts, UpdatedAt: ts,
		}
	}
	return out
}

func startHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("GET /ws/projects/{projectId}/issues/{issueId}/comments", http.HandlerFunc(hub.ServeWS))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/projects/p1/issues/i1/comments" + query
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var m map[string]any
	require.NoError(t, wsjson.Read(ctx, c, &m))
	return m
}

func writeFrame(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, v))
}

func TestServeWS_SnapshotThenKeepAlive(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(testLogger(), reg, stubVerifier{uid: "u1"}, stubStore{userOK: true, comments: threeComments()})
	srv := startHub(t, hub)

	c := dial(t, srv, "?token=good")
	defer c.Close(websocket.StatusNormalClosure, "")

	// One snapshot, comments in ascending creation order.
	snap := readFrame(t, c)
	assert.Equal(t, "snapshot", snap["type"])
	assert.Equal(t, "p1", snap["project_id"])
	assert.Equal(t, "i1", snap["issue_id"])
	comments, ok := snap["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 3)
	for i, want := range []string{"c1", "c2", "c3"} {
		got := comments[i].(map[string]any)
		assert.Equal(t, want, got["id"])
	}

	// The handle is registered for its room.
	rooms, conns := hub.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, conns)

	// ping -> pong, connection stays open.
	writeFrame(t, c, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", readFrame(t, c)["type"])

	// Mutation attempts are refused but not fatal.
	writeFrame(t, c, map[string]string{"type": "delete_comment", "comment_id": "c1"})
	reject := readFrame(t, c)
	assert.Equal(t, "error", reject["type"])
	assert.Contains(t, reject["message"], "read-only")

	writeFrame(t, c, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", readFrame(t, c)["type"])
}

func TestServeWS_BroadcastReachesClient(t *testing.T) {
	reg := NewRegistry()
	bc := NewBroadcaster(testLogger(), reg)
	hub := NewHub(testLogger(), reg, stubVerifier{uid: "u1"}, stubStore{userOK: true})
	srv := startHub(t, hub)

	c := dial(t, srv, "?token=good")
	defer c.Close(websocket.StatusNormalClosure, "")
	readFrame(t, c) // snapshot

	// Wait for the handle to land in the registry, then fan out.
	require.Eventually(t, func() bool {
		_, conns := hub.Stats()
		return conns == 1
	}, 2*time.Second, 10*time.Millisecond)

	comment := threeComments()[0]
	bc.Deliver(FanoutEvent{Type: EventCommentCreated, ProjectID: "p1", IssueID: "i1", Comment: &comment})

	got := readFrame(t, c)
	assert.Equal(t, "comment_created", got["type"])
	payload := got["comment"].(map[string]any)
	assert.Equal(t, "c1", payload["id"])
	assert.Equal(t, "ada", payload["author_username"])
}

func TestServeWS_DisconnectLeavesRoom(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(testLogger(), reg, stubVerifier{uid: "u1"}, stubStore{userOK: true})
	srv := startHub(t, hub)

	c := dial(t, srv, "?token=good")
	readFrame(t, c) // snapshot
	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		rooms, conns := hub.Stats()
		return rooms == 0 && conns == 0
	}, 2*time.Second, 10*time.Millisecond, "room must be evicted after the last member leaves")
}

func TestServeWS_HandshakeRejections(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		tokens  TokenVerifier
		db      RoomStore
		wantMsg string
	}{
		{
			name:    "missing token",
			query:   "",
			tokens:  stubVerifier{uid: "u1"},
			db:      stubStore{userOK: true},
			wantMsg: "missing token",
		},
		{
			name:    "expired or invalid token",
			query:   "?token=bad",
			tokens:  stubVerifier{err: auth.ErrInvalidToken},
			db:      stubStore{userOK: true},
			wantMsg: "invalid token",
		},
		{
			name:    "wrong token kind",
			query:   "?token=refresh",
			tokens:  stubVerifier{err: auth.ErrNotAccessToken},
			db:      stubStore{userOK: true},
			wantMsg: "invalid token type",
		},
		{
			name:    "unknown subject",
			query:   "?token=good",
			tokens:  stubVerifier{uid: "ghost"},
			db:      stubStore{userOK: false},
			wantMsg: "user not found",
		},
		{
			name:    "no project access",
			query:   "?token=good",
			tokens:  stubVerifier{uid: "u1"},
			db:      stubStore{userOK: true, accessErr: store.ErrForbidden},
			wantMsg: "access",
		},
		{
			name:    "issue gone",
			query:   "?token=good",
			tokens:  stubVerifier{uid: "u1"},
			db:      stubStore{userOK: true, accessErr: store.ErrIssueNotFound},
			wantMsg: "issue not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			hub := NewHub(testLogger(), reg, tt.tokens, tt.db)
			srv := startHub(t, hub)

			c := dial(t, srv, tt.query)
			defer c.Close(websocket.StatusNormalClosure, "")

			frame := readFrame(t, c)
			assert.Equal(t, "error", frame["type"])
			assert.Contains(t, frame["message"], tt.wantMsg)

			// A rejected connection never joins a room.
			rooms, conns := hub.Stats()
			assert.Equal(t, 0, rooms)
			assert.Equal(t, 0, conns)

			// And the server closes it after the error frame.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			var m map[string]any
			assert.Error(t, wsjson.Read(ctx, c, &m))
		})
	}
}

func TestReplyTo(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantType string
	}{
		{"ping", `{"type":"ping"}`, "pong"},
		{"write attempt", `{"type":"create_comment","body":"x"}`, "error"},
		{"empty type", `{"type":""}`, "error"},
		{"malformed", `{"type":`, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m map[string]any
			raw := replyTo([]byte(tt.in))
			require.NoError(t, json.Unmarshal(raw, &m))
			assert.Equal(t, tt.wantType, m["type"])
		})
	}
}

package httpx

import (
	"net/http"

	"log/slog"

	"github.com/Rajatg180/issueFlow-Project/internal/app"
	"github.com/Rajatg180/issueFlow-Project/internal/store"
	"github.com/Rajatg180/issueFlow-Project/internal/ws"
	"github.com/Rajatg180/issueFlow-Project/pkg/auth"
	"github.com/Rajatg180/issueFlow-Project/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, bus *ws.Bus, db *store.Postgres) http.Handler {
	mw := NewMiddleware(cfg)

	j := auth.New(cfg.JWTSecret)
	authAPI := &AuthAPI{DB: db, JWT: j}
	projectsAPI := &ProjectsAPI{DB: db}
	commentsAPI := &CommentsAPI{DB: db, Bus: bus, Log: logger}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("GET /api/stats", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		rooms, conns := hub.Stats()
		writeJSON(w, map[string]int{"rooms": rooms, "connections": conns})
	}))

	// Live comments channel (token in query param, see ws.Hub.ServeWS)
	mux.Handle("GET /ws/projects/{projectId}/issues/{issueId}/comments", http.HandlerFunc(hub.ServeWS))

	// Auth endpoints
	mux.Handle("POST /api/auth/register", http.HandlerFunc(authAPI.Register))
	mux.Handle("POST /api/auth/login", http.HandlerFunc(authAPI.Login))
	mux.Handle("GET /api/auth/me", mw.Auth(http.HandlerFunc(authAPI.Me)))

	// Projects + issues (JWT-protected)
	mux.Handle("POST /api/projects", mw.Auth(http.HandlerFunc(projectsAPI.Create)))
	mux.Handle("GET /api/projects", mw.Auth(http.HandlerFunc(projectsAPI.List)))
	mux.Handle("POST /api/projects/{projectId}/members", mw.Auth(http.HandlerFunc(projectsAPI.AddMember)))
	mux.Handle("POST /api/projects/{projectId}/issues", mw.Auth(http.HandlerFunc(projectsAPI.CreateIssue)))
	mux.Handle("GET /api/projects/{projectId}/issues", mw.Auth(http.HandlerFunc(projectsAPI.ListIssues)))

	// Comments: the request/response write path; mutations fan out after commit
	mux.Handle("GET /api/projects/{projectId}/issues/{issueId}/comments", mw.Auth(http.HandlerFunc(commentsAPI.List)))
	mux.Handle("POST /api/projects/{projectId}/issues/{issueId}/comments", mw.Auth(http.HandlerFunc(commentsAPI.Create)))
	mux.Handle("PUT /api/projects/{projectId}/issues/{issueId}/comments/{commentId}", mw.Auth(http.HandlerFunc(commentsAPI.Update)))
	mux.Handle("DELETE /api/projects/{projectId}/issues/{issueId}/comments/{commentId}", mw.Auth(http.HandlerFunc(commentsAPI.Delete)))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}

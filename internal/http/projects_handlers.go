package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Rajatg180/issueFlow-Project/internal/store"
	"github.com/Rajatg180/issueFlow-Project/pkg/auth"
)

type ProjectsAPI struct{ DB *store.Postgres }

type createProjectReq struct {
	Name string `json:"name"`
}

type addMemberReq struct {
	UserID string `json:"user_id"`
}

type projectResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type createIssueReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type issueResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProjectResponse(p store.Project) projectResponse {
	return projectResponse{ID: p.ID, Name: p.Name, OwnerID: p.OwnerID, CreatedAt: p.CreatedAt}
}

func toIssueResponse(is store.Issue) issueResponse {
	return issueResponse{
		ID: is.ID, ProjectID: is.ProjectID, Title: is.Title, Description: is.Description,
		Status: is.Status, CreatedBy: is.CreatedBy, CreatedAt: is.CreatedAt, UpdatedAt: is.UpdatedAt,
	}
}

// Create handles new project creation; the caller becomes the owner.
func (a *ProjectsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	uid := auth.UserID(r.Context())
	p, err := a.DB.CreateProject(r.Context(), req.Name, uid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toProjectResponse(p))
}

// List returns the caller's projects
func (a *ProjectsAPI) List(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	projects, err := a.DB.ListProjects(r.Context(), uid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(p))
	}
	writeJSON(w, resp)
}

// AddMember grants another user access to the caller's project
func (a *ProjectsAPI) AddMember(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	var req addMemberReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	uid := auth.UserID(r.Context())
	if err := a.DB.AddMember(r.Context(), projectID, uid, req.UserID); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateIssue files a new issue under a project
func (a *ProjectsAPI) CreateIssue(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	var req createIssueReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	uid := auth.UserID(r.Context())
	if err := a.DB.EnsureProjectAccess(r.Context(), projectID, uid); err != nil {
		fail(w, err)
		return
	}

	is, err := a.DB.CreateIssue(r.Context(), projectID, req.Title, req.Description, uid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toIssueResponse(is))
}

// ListIssues returns a project's issues
func (a *ProjectsAPI) ListIssues(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	uid := auth.UserID(r.Context())
	if err := a.DB.EnsureProjectAccess(r.Context(), projectID, uid); err != nil {
		fail(w, err)
		return
	}

	issues, err := a.DB.ListIssues(r.Context(), projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]issueResponse, 0, len(issues))
	for _, is := range issues {
		resp = append(resp, toIssueResponse(is))
	}
	writeJSON(w, resp)
}

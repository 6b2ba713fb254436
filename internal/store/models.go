package store

import "time"

type User struct {
	ID        string
	Email     string
	Username  string
	CreatedAt time.Time
}

type Project struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

type Issue struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is the projection sent to clients over HTTP and the websocket
// channel; the json tags are the wire shape. Timestamps marshal as RFC 3339.
type Comment struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	IssueID        string    `json:"issue_id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Body           string    `json:"body"`
	Edited         bool      `json:"edited"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

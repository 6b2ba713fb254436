package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CreateIssue inserts an issue under a project. Caller checks access first.
func (p *Postgres) CreateIssue(ctx context.Context, projectID, title, description, userID string) (Issue, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO issues (project_id, title, description, status, created_by)
		VALUES ($1, $2, $3, 'open', $4)
		RETURNING id, project_id, title, description, status, created_by, created_at, updated_at
	`, projectID, title, description, userID)

	var is Issue
	if err := row.Scan(&is.ID, &is.ProjectID, &is.Title, &is.Description, &is.Status, &is.CreatedBy, &is.CreatedAt, &is.UpdatedAt); err != nil {
		return Issue{}, err
	}
	return is, nil
}

// ListIssues returns a project's issues, newest first
func (p *Postgres) ListIssues(ctx context.Context, projectID string) ([]Issue, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, project_id, title, description, status, created_by, created_at, updated_at
		FROM issues
		WHERE project_id = $1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Issue
	for rows.Next() {
		var is Issue
		if err := rows.Scan(&is.ID, &is.ProjectID, &is.Title, &is.Description, &is.Status, &is.CreatedBy, &is.CreatedAt, &is.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, is)
	}
	return out, rows.Err()
}

// EnsureIssueAccess verifies project access and that the issue belongs to
// the project. This is the read-access gate for the comments channel.
func (p *Postgres) EnsureIssueAccess(ctx context.Context, projectID, issueID, userID string) error {
	if err := p.EnsureProjectAccess(ctx, projectID, userID); err != nil {
		return err
	}
	var one int
	err := p.pool.QueryRow(ctx, `
		SELECT 1 FROM issues
		WHERE id = $1 AND project_id = $2
	`, issueID, projectID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrIssueNotFound
	}
	return err
}

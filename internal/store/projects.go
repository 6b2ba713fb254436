package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CreateProject inserts a project owned by ownerID
func (p *Postgres) CreateProject(ctx context.Context, name, ownerID string) (Project, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO projects (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at
	`, name, ownerID)

	var pr Project
	if err := row.Scan(&pr.ID, &pr.Name, &pr.OwnerID, &pr.CreatedAt); err != nil {
		return Project{}, err
	}
	return pr, nil
}

// ListProjects returns projects the user owns or is a member of
func (p *Postgres) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT pr.id, pr.name, pr.owner_id, pr.created_at
		FROM projects pr
		LEFT JOIN project_members m ON m.project_id = pr.id
		WHERE pr.owner_id = $1 OR m.user_id = $1
		ORDER BY pr.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var pr Project
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.OwnerID, &pr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// AddMember grants a user access to a project. Only the owner may call it.
func (p *Postgres) AddMember(ctx context.Context, projectID, ownerID, userID string) error {
	var owner string
	err := p.pool.QueryRow(ctx, `SELECT owner_id FROM projects WHERE id = $1`, projectID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProjectNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, projectID, userID)
	return err
}

// EnsureProjectAccess verifies the user owns or belongs to the project
func (p *Postgres) EnsureProjectAccess(ctx context.Context, projectID, userID string) error {
	var owner string
	err := p.pool.QueryRow(ctx, `SELECT owner_id FROM projects WHERE id = $1`, projectID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProjectNotFound
	}
	if err != nil {
		return err
	}
	if owner == userID {
		return nil
	}

	var one int
	err = p.pool.QueryRow(ctx, `
		SELECT 1 FROM project_members
		WHERE project_id = $1 AND user_id = $2
	`, projectID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrForbidden
	}
	return err
}

package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

const commentCols = `id, project_id, issue_id, author_id, author_username, body, edited, created_at, updated_at`

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.ProjectID, &c.IssueID, &c.AuthorID, &c.AuthorUsername,
		&c.Body, &c.Edited, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListComments returns an issue's comments oldest first, the order clients
// render their initial snapshot in.
func (p *Postgres) ListComments(ctx context.Context, projectID, issueID string) ([]Comment, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+commentCols+`
		FROM issue_comments
		WHERE project_id = $1 AND issue_id = $2
		ORDER BY created_at ASC
	`, projectID, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateComment inserts a comment, denormalizing the author's username into
// the row so projections never need a join.
func (p *Postgres) CreateComment(ctx context.Context, projectID, issueID, authorID, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, errors.New("comment body cannot be empty")
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO issue_comments (project_id, issue_id, author_id, author_username, body)
		SELECT $1, $2, u.id, u.username, $4
		FROM users u WHERE u.id = $3
		RETURNING `+commentCols+`
	`, projectID, issueID, authorID, body)

	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrUserNotFound
	}
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

// UpdateComment replaces the body and marks the comment edited. Only the
// author may edit.
func (p *Postgres) UpdateComment(ctx context.Context, projectID, issueID, commentID, authorID, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, errors.New("comment body cannot be empty")
	}

	if err := p.ensureAuthor(ctx, projectID, issueID, commentID, authorID); err != nil {
		return Comment{}, err
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE issue_comments
		SET body = $4, edited = TRUE, updated_at = NOW()
		WHERE id = $3 AND project_id = $1 AND issue_id = $2
		RETURNING `+commentCols+`
	`, projectID, issueID, commentID, body)

	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrCommentNotFound
	}
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

// DeleteComment removes a comment. Only the author may delete.
func (p *Postgres) DeleteComment(ctx context.Context, projectID, issueID, commentID, authorID string) error {
	if err := p.ensureAuthor(ctx, projectID, issueID, commentID, authorID); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
		DELETE FROM issue_comments
		WHERE id = $3 AND project_id = $1 AND issue_id = $2
	`, projectID, issueID, commentID)
	return err
}

func (p *Postgres) ensureAuthor(ctx context.Context, projectID, issueID, commentID, userID string) error {
	var author string
	err := p.pool.QueryRow(ctx, `
		SELECT author_id FROM issue_comments
		WHERE id = $3 AND project_id = $1 AND issue_id = $2
	`, projectID, issueID, commentID).Scan(&author)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCommentNotFound
	}
	if err != nil {
		return err
	}
	if author != userID {
		return ErrNotAuthor
	}
	return nil
}

package store

import "errors"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrIssueNotFound   = errors.New("issue not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrForbidden       = errors.New("you do not have access to this project")
	ErrNotAuthor       = errors.New("only the author can modify a comment")
)

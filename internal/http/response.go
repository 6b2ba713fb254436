package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rajatg180/issueFlow-Project/internal/store"
)

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps store errors to HTTP status codes
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrIssueNotFound),
		errors.Is(err, store.ErrCommentNotFound),
		errors.Is(err, store.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrForbidden),
		errors.Is(err, store.ErrNotAuthor):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jacentio/directories/directory"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Items   []string `json:"items,omitempty"`
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}, statusCode)
}

func sendJSON(w http.ResponseWriter, body any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// statusFor maps a directory error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrInvalidArgument), errors.Is(err, directory.ErrNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, directory.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// sendServiceError writes err as a JSON error. Internal errors are logged
// and their details withheld.
func (s *Server) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var partial *directory.PartialMoveError
	if errors.As(err, &partial) {
		s.logger.Error("move partially applied",
			"owner", partial.Owner,
			"source", partial.Source,
			"target", partial.Target,
			"error", err,
		)
		sendJSON(w, ErrorResponse{
			Error:   http.StatusText(status),
			Message: "items were added to the target but not removed from the source",
			Items:   partial.Items,
		}, status)
		return
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		sendError(w, "An unexpected error occurred", status)
		return
	}
	sendError(w, err.Error(), status)
}

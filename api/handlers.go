package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/jacentio/directories/directory"
)

const maxBodyBytes = 1 << 20

type listResponse struct {
	Directories []*directory.Directory `json:"directories"`
}

// caller returns the authenticated username. RequireAuth guarantees it, so
// a missing caller means the route was mounted without it.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	c, ok := CallerFromContext(r.Context())
	if !ok {
		sendError(w, "Authentication required", http.StatusUnauthorized)
	}
	return c, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		sendError(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) listDirectories(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	owner := r.URL.Query().Get("owner")
	dirs, err := s.directories.ListDirectories(r.Context(), c, owner)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	if dirs == nil {
		dirs = []*directory.Directory{}
	}
	sendJSON(w, listResponse{Directories: dirs}, http.StatusOK)
}

func (s *Server) getDirectory(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	dir, err := s.directories.GetDirectory(r.Context(), c, chi.URLParam(r, "owner"), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, dir, http.StatusOK)
}

func (s *Server) createDirectory(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	var req directory.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var dir *directory.Directory
	err := s.withConflictRetry(r.Context(), func(ctx context.Context) error {
		var err error
		dir, err = s.directories.CreateDirectory(ctx, c, req)
		return err
	})
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, dir, http.StatusCreated)
}

func (s *Server) updateDirectory(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	var req directory.UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	dir, err := s.directories.UpdateDirectory(r.Context(), c, req)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, dir, http.StatusOK)
}

func (s *Server) deleteDirectory(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	req := directory.DeleteRequest{
		Owner: r.URL.Query().Get("owner"),
		ID:    chi.URLParam(r, "id"),
	}
	dir, err := s.directories.DeleteDirectory(r.Context(), c, req)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, dir, http.StatusOK)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	var req directory.AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.DirectoryID = chi.URLParam(r, "id")

	dir, err := s.directories.AddItem(r.Context(), c, req)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, dir, http.StatusOK)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	// Game ids contain '#', so clients escape them. chi routes on RawPath
	// when it is set and leaves params escaped; otherwise they are decoded.
	itemID := chi.URLParam(r, "itemId")
	if r.URL.RawPath != "" {
		var err error
		if itemID, err = url.PathUnescape(itemID); err != nil {
			sendError(w, "Invalid item ID", http.StatusBadRequest)
			return
		}
	}

	req := directory.RemoveItemRequest{
		Owner:       r.URL.Query().Get("owner"),
		DirectoryID: chi.URLParam(r, "id"),
		ItemID:      itemID,
	}
	if err := s.directories.RemoveItem(r.Context(), c, req); err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveItems(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}

	var req directory.MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var result *directory.MoveResult
	err := s.withConflictRetry(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = s.directories.MoveItems(ctx, c, req)
		return err
	})
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, result, http.StatusOK)
}

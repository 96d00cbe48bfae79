package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/inamate/bspview/internal/typeid"
)

const maxNameLength = 64

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type viewerRequest struct {
	Name string `json:"name"`
}

type tokenResponse struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

// Viewer hands out a viewer token under a fresh viewer id. Editor tokens are
// only minted offline with the signing secret.
func (h *Handler) Viewer(w http.ResponseWriter, r *http.Request) {
	var req viewerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Anonymous"
	}
	if len(name) > maxNameLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is too long"})
		return
	}

	id := Identity{Subject: typeid.NewViewerID(), Name: name, Role: RoleViewer}
	token, err := h.service.IssueToken(id)
	if err != nil {
		slog.Error("issue viewer token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, Identity: id})
}

// Whoami echoes the identity behind the request's bearer token.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

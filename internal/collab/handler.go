package collab

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/bspview/internal/auth"
	"github.com/inamate/bspview/internal/store"
	"github.com/inamate/bspview/internal/typeid"
)

// Handler upgrades /ws/scenes/{sceneId} requests into room clients. A token
// query parameter identifies the viewer; without one the viewer joins
// anonymously and read-only.
func (h *Hub) Handler(authSvc *auth.Service, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := mux.Vars(r)["sceneId"]

		var id auth.Identity
		if token := r.URL.Query().Get("token"); token != "" {
			var err error
			id, err = authSvc.ValidateToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
		} else {
			id = auth.Identity{Subject: typeid.NewViewerID(), Name: "Anonymous", Role: auth.RoleViewer}
		}

		if _, err := h.scenes.Get(r.Context(), sceneID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "scene not found", http.StatusNotFound)
				return
			}
			slog.Error("load scene for websocket", "scene", sceneID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(h, conn, id, sceneID, uuid.New().String())
		h.Register(r.Context(), client)

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/dicee-room-backend/internal/hub"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, emit *obs.Emitter) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", CreateRoom(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, emit))
	return r
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reversus/internal/room"
	"reversus/internal/ws"
)

func SetupRoutes(dir *room.Directory, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/rooms", ListRooms(dir))
	r.Get("/ws", ws.Handler(dir, log))
	return r
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"reversus/internal/protocol"
	"reversus/internal/room"
)

// ListRooms mirrors the relay's roomList push as a plain HTTP endpoint,
// handy for debugging and for the lobby browser's first paint.
func ListRooms(dir *room.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []protocol.RoomListing, 1)
		dir.Inbox() <- room.GetRooms{Reply: reply}

		select {
		case rooms := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(rooms)
		case <-time.After(5 * time.Second):
			http.Error(w, "directory unavailable", http.StatusServiceUnavailable)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

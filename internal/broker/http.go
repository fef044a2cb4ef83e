package broker

import (
	"encoding/json"
	"log"
	"net/http"
)

// RegisterDebugAPI mounts the read-only inspection endpoints on mux. The
// endpoints expose in-memory chat state for debugging and dashboards; they
// carry no authentication and should not be exposed publicly.
//
//	GET /api/rooms                     room-name list
//	GET /api/rooms/{room}/messages     a room's message log
//	GET /api/private/{a}/{b}           a pair's conversation log
func (b *Broker) RegisterDebugAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms", b.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{room}/messages", b.handleRoomMessages)
	mux.HandleFunc("GET /api/private/{a}/{b}", b.handlePrivateMessages)
}

func (b *Broker) handleListRooms(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	names := b.rooms.Names()
	b.mu.Unlock()

	writeJSON(w, map[string]interface{}{"rooms": names})
}

func (b *Broker) handleRoomMessages(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	msgs := marshalMessages(b.rooms.Messages(r.PathValue("room")))
	b.mu.Unlock()

	writeJSON(w, map[string]interface{}{"messages": msgs})
}

func (b *Broker) handlePrivateMessages(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	msgs := marshalMessages(b.convos.Messages(r.PathValue("a"), r.PathValue("b")))
	b.mu.Unlock()

	writeJSON(w, map[string]interface{}{"messages": msgs})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("broker: write debug response: %v", err)
	}
}

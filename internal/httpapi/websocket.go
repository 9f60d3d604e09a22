package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/streamsquirrel/aes67gateway/internal/supervisor"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// statusHub pushes status snapshots to connected /ws/status clients,
// supplementing the polling /api/status contract (spec.md §4.7).
type statusHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *statusHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Drain and discard reads so the connection's read deadline never trips
	// and pong control frames are processed; clients never send payloads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type wsStatusPayload struct {
	Running bool                `json:"running"`
	Message string              `json:"message"`
	Slots   []wsSlotStatusEntry `json:"slots"`
}

type wsSlotStatusEntry struct {
	SlotID      int    `json:"slot_id"`
	AudioFrames uint64 `json:"audio_frames"`
	RTPPackets  uint64 `json:"rtp_packets"`
	LastError   string `json:"error"`
}

// broadcast pushes the current status snapshot to every connected client,
// dropping any connection that fails to accept the write.
func (h *statusHub) broadcast(sup *supervisor.Supervisor) {
	st := sup.CurrentStatus()
	statuses := sup.AllStatuses()

	payload := wsStatusPayload{Running: st.Running, Message: st.Message}
	for _, s := range statuses {
		payload.Slots = append(payload.Slots, wsSlotStatusEntry{
			SlotID:      s.SlotID,
			AudioFrames: s.AudioFrames,
			RTPPackets:  s.RTPPacketsSent,
			LastError:   s.LastError,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("httpapi: marshal ws status: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

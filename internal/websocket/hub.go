package websocket

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type endRequest struct {
	sessionID uuid.UUID
	reason    string
}

// Hub tracks liveness connections by session so that a session ended
// elsewhere (logout, a newer login) can be announced to its sockets.
type Hub struct {
	sessions   map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	end        chan endRequest
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	log        *zap.Logger
	mu         sync.RWMutex
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		sessions:   make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		end:        make(chan endRequest),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for _, clients := range h.sessions {
				for client := range clients {
					client.Close()
				}
			}
			h.sessions = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			sid := client.auth.SessionID
			if h.sessions[sid] == nil {
				h.sessions[sid] = make(map[*Client]bool)
			}
			h.sessions[sid][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			sid := client.auth.SessionID
			if clients, ok := h.sessions[sid]; ok && clients[client] {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.sessions, sid)
				}
				client.Close()
			}
			h.mu.Unlock()

		case req := <-h.end:
			h.mu.Lock()
			clients := h.sessions[req.sessionID]
			delete(h.sessions, req.sessionID)
			h.mu.Unlock()

			if len(clients) > 0 {
				msg, _ := NewMessage(MessageTypeSessionEnded, SessionEndedPayload{Reason: req.reason})
				for client := range clients {
					client.Send(msg)
					client.Close()
				}
				h.log.Info("[websocket.Hub] session ended",
					zap.String("session_id", req.sessionID.String()),
					zap.Int("connections", len(clients)))
			}
		}
	}
}

// Stop closes every connection and blocks until Run has exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// EndSession pushes SESSION_ENDED to every connection of the session and closes them.
func (h *Hub) EndSession(sessionID uuid.UUID, reason string) {
	select {
	case h.end <- endRequest{sessionID: sessionID, reason: reason}:
	case <-h.done:
	}
}

// ConnectionCount reports the open connections of a session.
func (h *Hub) ConnectionCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

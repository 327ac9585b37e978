package socket

import (
	"encoding/json"
	"sync"
	"time"

	"guidebook/pkg/logger"
)

const (
	SubscribedType = "SUBSCRIBED" // Sent once to a client after it joined
	FeedChangeType = "FEED_CHANGE"
)

// AllDocuments is the room of clients following the whole feed.
const AllDocuments int64 = 0

type WSMessage struct {
	Type       string          `json:"type"`
	DocumentID int64           `json:"document_id"`
	UserID     int64           `json:"user_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Time       time.Time       `json:"time"`
}

// Hub fans feed changes out to websocket clients. Clients join the room of
// one document or the AllDocuments room.
type Hub struct {
	Rooms      map[int64]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[int64]map[*Client]bool),
		Broadcast:  make(chan WSMessage, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Publish queues msg for delivery without waiting for slow clients.
func (h *Hub) Publish(msg WSMessage) {
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warnf("Feed broadcast queue is full, dropping change for document %d", msg.DocumentID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.DocID] == nil {
				h.Rooms[client.DocID] = make(map[*Client]bool)
			}
			h.Rooms[client.DocID][client] = true
			h.mu.Unlock()

			hello, _ := json.Marshal(WSMessage{Type: SubscribedType, DocumentID: client.DocID, UserID: client.UserID, Time: time.Now().UTC()})
			client.Send <- hello

		case client := <-h.Unregister:
			h.remove(client)

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling feed message: %v", err)
				continue
			}

			h.mu.Lock()
			recipients := make([]*Client, 0, len(h.Rooms[msg.DocumentID])+len(h.Rooms[AllDocuments]))
			for client := range h.Rooms[AllDocuments] {
				recipients = append(recipients, client)
			}
			if msg.DocumentID != AllDocuments {
				for client := range h.Rooms[msg.DocumentID] {
					recipients = append(recipients, client)
				}
			}
			h.mu.Unlock()

			for _, client := range recipients {
				select {
				case client.Send <- payload:
				default:
					logger.Sugar.Warnf("Client of user %d is lagging, closing its connection", client.UserID)
					h.remove(client)
				}
			}
		}
	}
}

// remove drops client from its room and closes its send channel. Removing
// a client twice is a no-op.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.Rooms[client.DocID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.Rooms, client.DocID)
	}
}

// Subscribers counts the clients in the room of documentID.
func (h *Hub) Subscribers(documentID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[documentID])
}

// README: Per-order tracking hub; fans position events out to subscribed connections.
package tracking

import (
	"sync"

	"github.com/gorilla/websocket"

	"skyeats/internal/types"
)

// Client is one websocket subscriber on an order's tracking channel.
type Client struct {
	Conn    *websocket.Conn
	Send    chan []byte
	OrderID types.ID
	Role    string // "customer", "operator", "drone"
}

type broadcastMsg struct {
	OrderID types.ID
	Data    []byte
}

// Hub relays messages to every client joined to an order's room. Rooms are
// ephemeral: created on first join, dropped when the last client leaves or
// the order reaches a terminal status. No history is kept; late joiners only
// see reports that arrive after they join.
type Hub struct {
	rooms      map[types.ID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	closing    chan types.ID
	quit       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[types.ID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		closing:    make(chan types.ID),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.OrderID] == nil {
				h.rooms[c.OrderID] = make(map[*Client]bool)
			}
			h.rooms[c.OrderID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.rooms[c.OrderID]; conns != nil {
				if conns[c] {
					delete(conns, c)
					close(c.Send)
				}
				if len(conns) == 0 {
					delete(h.rooms, c.OrderID)
				}
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.OrderID] {
				select {
				case c.Send <- m.Data:
				default:
					// Slow or dead subscriber; drop it rather than block
					// delivery to the rest of the room.
					close(c.Send)
					delete(h.rooms[m.OrderID], c)
				}
			}
			h.mu.Unlock()

		case orderID := <-h.closing:
			h.mu.Lock()
			for c := range h.rooms[orderID] {
				close(c.Send)
			}
			delete(h.rooms, orderID)
			h.mu.Unlock()

		case <-h.quit:
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// Join registers the client on its order's room.
func (h *Hub) Join(c *Client) {
	h.register <- c
}

// Leave removes the client; its send channel is closed by the hub.
func (h *Hub) Leave(c *Client) {
	h.unregister <- c
}

// Publish fans data out to every client currently joined to the order's room.
func (h *Hub) Publish(orderID types.ID, data []byte) {
	h.broadcast <- broadcastMsg{OrderID: orderID, Data: data}
}

// CloseRoom disconnects all subscribers of an order; used when the order
// reaches a terminal status.
func (h *Hub) CloseRoom(orderID types.ID) {
	h.closing <- orderID
}

// Subscribers reports the current room size.
func (h *Hub) Subscribers(orderID types.ID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[orderID])
}

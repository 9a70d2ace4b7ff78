// README: Websocket endpoint for joining an order's tracking channel.
package tracking

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"skyeats/internal/types"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Serve upgrades the request and joins the caller to the order's channel.
// Leaving is implicit: closing the socket unregisters the client, and a
// reconnecting client must join again.
func (h *Handler) Serve(c *gin.Context, role string) {
	orderID := types.ID(c.Param("id"))
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing order id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("tracking: upgrade order %s: %v", orderID, err)
		return
	}

	client := &Client{
		Conn:    conn,
		Send:    make(chan []byte, 256),
		OrderID: orderID,
		Role:    role,
	}
	h.hub.Join(client)
	go writePump(client)
	go h.readPump(client)
}

func writePump(c *Client) {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Leave(c)
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}

		var in inboundPayload
		if err := json.Unmarshal(raw, &in); err != nil {
			log.Printf("tracking: invalid payload on order %s: %v", c.OrderID, err)
			continue
		}

		switch in.Action {
		case "report":
			// Only the delivering drone publishes positions; everyone else
			// is a listener.
			if c.Role != "drone" || in.Position == nil {
				continue
			}
			pos := *in.Position
			if pos.Timestamp.IsZero() {
				pos.Timestamp = time.Now()
			}
			h.hub.PublishPosition(c.OrderID, pos)
		default:
			log.Printf("tracking: unknown action %q on order %s", in.Action, c.OrderID)
		}
	}
}

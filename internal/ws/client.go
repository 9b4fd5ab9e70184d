package ws

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/waraqa-store/api/internal/auth"
	"github.com/waraqa-store/api/internal/enum"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// publicTables may be watched without a token.
var publicTables = map[string]bool{
	enum.TableProducts:      true,
	enum.TableCategories:    true,
	enum.TableProductImages: true,
	enum.TableStoreSettings: true,
	enum.TableDeliveryFees:  true,
}

var defaultTables = []string{enum.TableProducts, enum.TableCategories}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS layer and admin tables by JWT
	},
}

// Client is a single websocket connection watching a set of tables.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	tables []string
	send   chan []byte
}

// ReadPump only detects disconnects; browsers never send data.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// parseTables reads ?tables=a,b and reports whether an admin token is needed.
func parseTables(raw string) ([]string, bool, bool) {
	if strings.TrimSpace(raw) == "" {
		return defaultTables, false, true
	}
	seen := map[string]bool{}
	var tables []string
	needsAdmin := false
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		switch {
		case publicTables[t]:
		case t == enum.TableOrders:
			needsAdmin = true
		default:
			return nil, false, false
		}
		seen[t] = true
		tables = append(tables, t)
	}
	return tables, needsAdmin, len(tables) > 0
}

// ServeWS upgrades a change-feed subscription.
// Endpoint: WS /ws/changes?tables=products,categories[&token=JWT]
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	tables, needsAdmin, ok := parseTables(r.URL.Query().Get("tables"))
	if !ok {
		http.Error(w, "invalid tables", http.StatusBadRequest)
		return
	}

	if needsAdmin {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := auth.ValidateToken(jwtSecret, tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Role != enum.UserRoleAdmin {
			http.Error(w, "orders feed requires admin", http.StatusForbidden)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		tables: tables,
		send:   make(chan []byte, 256),
	}
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

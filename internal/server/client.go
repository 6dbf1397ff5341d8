package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 65536

	// DefaultUsername is used when a connection supplies no display name.
	DefaultUsername = "Anónimo"
)

// Client is one live connection. Its lifecycle runs connecting (upgrade
// done, not yet in a room), active (registered, messages routed) and
// closed; the close transition fires exactly once even when the read
// pump and a server shutdown race.
type Client struct {
	sessionId   string
	conn        *websocket.Conn
	chatServer  *ChatServer
	log         *log.Logger
	username    string
	send        chan *ServerMessage
	room        *Room
	roomLock    sync.RWMutex
	stop        chan struct{}
	stopOnce    sync.Once
	cleanupOnce sync.Once
}

func NewClient(username string, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	if username == "" {
		username = DefaultUsername
	}

	sessionId, err := shortid.Generate()
	if err != nil {
		sessionId = uuid.NewString()
	}

	return &Client{
		sessionId:  sessionId,
		conn:       conn,
		chatServer: cs,
		log:        l,
		username:   username,
		send:       make(chan *ServerMessage, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Username() string {
	return c.username
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		msg, err := parseClientMessage(raw)
		if err != nil {
			var malformed *MalformedMessageError
			if errors.As(err, &malformed) {
				c.log.Printf("dropping payload from %s: %v", c.sessionId, err)
				c.chatServer.stats.Incr(statMalformedMessages)
				c.queueMessage(systemMessage("Mensaje no válido."))
			}
			continue
		}

		msg.client = c
		r := c.getRoom()
		if r == nil {
			c.log.Printf("connection %s not yet in a room, dropping message", c.sessionId)
			continue
		}

		select {
		case r.clientMsgChan <- msg:
		default:
			c.log.Printf("clientMsgChan full for room %q", r.id)
		}
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send buffer full for connection %s, dropping message", c.sessionId)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup runs the close transition: leave the room, deregister from the
// server and stop the write pump. Abrupt transport failures land here
// through the read pump exactly like orderly closes.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		if r := c.getRoom(); r != nil {
			select {
			case r.leaveChan <- c:
			default:
				c.log.Printf("leaveChan full for room %q", r.id)
			}
		}

		c.chatServer.deregisterChan <- c
		c.stopClient()
	})
}

func (c *Client) setRoom(r *Room) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	c.room = r
}

func (c *Client) clearRoom() {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	c.room = nil
}

func (c *Client) getRoom() *Room {
	c.roomLock.RLock()
	defer c.roomLock.RUnlock()
	return c.room
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

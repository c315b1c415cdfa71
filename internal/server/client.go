package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/acormier/matchlink/internal/stats"
	"github.com/acormier/matchlink/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

type channelKind int

const (
	presenceChannel channelKind = iota
	conversationChannel
)

// Client is one live websocket connection on either channel. The transport's
// ping/pong deadlines double as the liveness policy: a silently dead peer
// trips the read deadline and runs the same cleanup path as a clean close.
type Client struct {
	conn         *websocket.Conn
	chatServer   *ChatServer
	log          *log.Logger
	stats        stats.StatsProvider
	user         types.User
	connectionId string
	kind         channelKind
	// otherUser is the second conversation participant, set only on
	// conversation connections.
	otherUser string
	send      chan *ServerMessage
	stop      chan struct{}
	closeOnce sync.Once
}

func NewPresenceClient(user types.User, connectionId string, conn *websocket.Conn, cs *ChatServer, l *log.Logger, sp stats.StatsProvider) *Client {
	return &Client{
		conn:         conn,
		chatServer:   cs,
		log:          l,
		stats:        sp,
		user:         user,
		connectionId: connectionId,
		kind:         presenceChannel,
		send:         make(chan *ServerMessage, 256),
		stop:         make(chan struct{}),
	}
}

func NewConversationClient(user types.User, otherUser, connectionId string, conn *websocket.Conn, cs *ChatServer, l *log.Logger, sp stats.StatsProvider) *Client {
	return &Client{
		conn:         conn,
		chatServer:   cs,
		log:          l,
		stats:        sp,
		user:         user,
		connectionId: connectionId,
		kind:         conversationChannel,
		otherUser:    otherUser,
		send:         make(chan *ServerMessage, 256),
		stop:         make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
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
		c.log.Println("read exiting")
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

		if c.kind == presenceChannel {
			// lifecycle-only channel, clients have nothing to say here
			c.log.Printf("ignoring message on presence connection %q", c.connectionId)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.Timestamp = Now()

		switch {
		case msg.Send != nil:
			// handled inline so sends on one connection stay ordered
			// behind its join
			c.chatServer.handleSendMessage(c, &msg)
		default:
			c.queueMessage(ErrInvalidMessage(msg.Id))
		}
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
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
	close(c.stop)
}

// Close tears the connection down and runs the closed-state path. Safe to
// call alongside a read-pump exit, cleanup still runs once.
func (c *Client) Close() {
	c.conn.Close()
	c.cleanup()
}

// cleanup runs the closed-state path exactly once per connection, whether
// the close was graceful, abrupt, or server initiated.
func (c *Client) cleanup() {
	c.closeOnce.Do(func() {
		switch c.kind {
		case presenceChannel:
			c.chatServer.LeavePresence(c)
		case conversationChannel:
			c.chatServer.LeaveConversation(c)
		}
		c.stopClient()
	})
}

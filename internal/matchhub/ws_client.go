package matchhub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"radargo/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Command is what the browser sends over the socket.
type Command struct {
	Action string `json:"action"` // "join" or "leave"
}

// WebSocketClient implements the Client interface over a gorilla/websocket
// connection. The read pump turns incoming commands into matcher requests;
// the write pump streams change events back to the browser.
type WebSocketClient struct {
	ParticipantID string
	SessionID     string
	Conn          *websocket.Conn
	Hub           *Hub
	Matcher       *Matcher
	State         *StateMachine
	Send          chan models.ChangeEvent

	mu     sync.Mutex
	closed bool
}

func (c *WebSocketClient) GetParticipantID() string { return c.ParticipantID }
func (c *WebSocketClient) GetSessionID() string     { return c.SessionID }
func (c *WebSocketClient) SetSessionID(id string)   { c.SessionID = id }

func (c *WebSocketClient) GetSendChannel() chan<- models.ChangeEvent { return c.Send }

// Run starts the pumps for this connection.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops the write pump. A command
// goroutine can outlive the socket, so push must observe the closed flag
// before it touches the channel. Idempotent.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			log.Printf("Error decoding command from client %s: %v", c.ParticipantID, err)
			continue
		}

		switch cmd.Action {
		case "join":
			// The matcher serializes requests, so don't hold up the read loop.
			go c.join()
		case "leave":
			go c.leave()
		default:
			log.Printf("Unknown command %q from client %s", cmd.Action, c.ParticipantID)
		}
	}
}

func (c *WebSocketClient) join() {
	if err := c.State.Begin(); err != nil {
		c.pushError(err)
		return
	}

	entry, err := c.Matcher.Join(c.ParticipantID)
	if err != nil {
		c.State.Fail(err)
		c.pushError(err)
		return
	}

	if entry.Status == models.QueueMatched && entry.SessionID != nil {
		// announceMatch already pushed the matched event; the projection
		// update happens in the write pump when it arrives.
		return
	}
	c.State.ToWaiting()
	c.push(models.ChangeEvent{
		Table:         models.TableQueue,
		Op:            models.OpUpdate,
		ParticipantID: c.ParticipantID,
		Status:        models.QueueWaiting,
	})
}

func (c *WebSocketClient) leave() {
	if err := c.Matcher.Leave(c.ParticipantID); err != nil {
		// Non-fatal: the participant may still be waiting and can retry.
		c.pushError(err)
		return
	}
	c.State.Reset()
	c.push(models.ChangeEvent{
		Table:         models.TableQueue,
		Op:            models.OpDelete,
		ParticipantID: c.ParticipantID,
	})
}

// push queues an event for this client only, dropping it when the client is
// already closed or the buffer is full (the browser's periodic re-poll
// covers the gap).
func (c *WebSocketClient) push(ev models.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- ev:
	default:
	}
}

func (c *WebSocketClient) pushError(err error) {
	c.push(models.ChangeEvent{
		Table:         models.TableQueue,
		Op:            models.OpUpdate,
		ParticipantID: c.ParticipantID,
		Status:        string(StateError),
		Error:         err.Error(),
	})
}

// apply folds a delivered event into the local projection before it goes out
// on the wire.
func (c *WebSocketClient) apply(ev models.ChangeEvent) {
	if ev.Table != models.TableQueue {
		return
	}
	// A matched event names this client either as the entry owner or as the
	// claimed peer.
	if ev.ParticipantID != c.ParticipantID && ev.MatchedWith != c.ParticipantID {
		return
	}
	if ev.Status == models.QueueMatched && ev.SessionID != "" {
		c.State.ToMatched(ev.SessionID)
		c.SessionID = ev.SessionID
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.apply(ev)

			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error encoding event for client %s: %v", c.ParticipantID, err)
				continue
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Flush whatever else is already queued.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next := <-c.Send
				c.apply(next)
				extra, _ := json.Marshal(next)
				w.Write(extra)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/realtime"
	"github.com/vedran77/hive/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   identity.Identity
	log  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	// session holds the one thread this client has open.
	session *realtime.Session

	mu           sync.Mutex
	stopActivity store.Unsubscribe

	send chan []byte
	done chan struct{}

	// latest holds the newest unsent frame per snapshot event type; wake
	// tells WritePump one is waiting.
	latestMu sync.Mutex
	latest   map[string][]byte
	wake     chan struct{}
}

// snapshotTypes are coalesced and flushed in this order.
var snapshotTypes = []string{EventTypeActivitySnapshot, EventTypeThreadSnapshot}

func NewClient(hub *Hub, conn *websocket.Conn, id identity.Identity) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		hub:    hub,
		conn:   conn,
		id:     id,
		log:    hub.log.WithField("user_id", id.UID),
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
		latest: make(map[string][]byte),
		wake:   make(chan struct{}, 1),
	}
	c.session = realtime.NewSession(ctx, hub.deps.Watcher.Starter(id.UID, c.pushSnapshot))
	conn.SetReadLimit(maxMessageSize)
	return c
}

// IsWatching checks if this client has the thread with key open.
func (c *Client) IsWatching(key string) bool {
	thread, ok := c.session.Current()
	return ok && thread.Key() == key
}

// ReadPump reads messages from the WebSocket and routes them.
func (c *Client) ReadPump() {
	defer func() {
		c.shutdown()
		c.hub.remove(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				c.log.Debug("ws: client disconnected")
			} else {
				c.log.WithError(err).Debug("ws: read error")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.sendError("INVALID_EVENT", "malformed event")
			continue
		}
		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.log.WithError(err).Debug("ws: write error")
				return
			}

		case <-c.wake:
			for _, message := range c.takeLatest() {
				ctx, cancel := context.WithTimeout(c.ctx, writeWait)
				err := c.conn.Write(ctx, websocket.MessageText, message)
				cancel()
				if err != nil {
					c.log.WithError(err).Debug("ws: write error")
					return
				}
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.log.WithError(err).Debug("ws: ping error")
				return
			}

		case <-c.done:
			return
		}
	}
}

// watchActivity streams the user's activity feed until the client goes away.
func (c *Client) watchActivity() error {
	stop, err := c.hub.deps.Activity.Watch(c.ctx, c.id.UID, func(items []domain.ActivityItem) {
		unread := 0
		for _, it := range items {
			if !it.IsRead {
				unread++
			}
		}
		c.pushLatest(EventTypeActivitySnapshot, nil, ActivityPayload{Items: items, UnreadCount: unread})
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.stopActivity = stop
	c.mu.Unlock()
	return nil
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeThreadOpen:
		var p ThreadPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid thread.open payload")
			return
		}
		c.openThread(p.Thread)

	case EventTypeThreadClose:
		c.session.Leave()
		c.dropLatest(EventTypeThreadSnapshot)

	case EventTypeTypingStart, EventTypeTypingStop:
		c.hub.HandleTyping(c, event)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

// openThread authorizes thread, swaps the session onto it and marks what the
// user now sees as read.
func (c *Client) openThread(thread addressing.Thread) {
	log := c.log.WithField("thread", thread.Key())
	if err := c.hub.deps.Threads.Authorize(c.ctx, c.id.UID, thread); err != nil {
		c.sendError("ACCESS_DENIED", err.Error())
		return
	}
	if err := c.session.Switch(thread); err != nil {
		log.WithError(err).Warn("ws: opening thread")
		c.sendError("INTERNAL", "could not open thread")
		return
	}

	if _, err := c.hub.deps.Activity.MarkThreadRead(c.ctx, c.id.UID, thread); err != nil {
		log.WithError(err).Warn("ws: marking activity read")
	}
	if thread.IsDirect() && c.hub.deps.Receipts != nil {
		if _, err := c.hub.deps.Receipts.MarkAsRead(c.ctx, c.id.UID, thread.ConversationID); err != nil {
			log.WithError(err).Warn("ws: marking messages read")
		}
	}
}

// recheck closes the open thread if it belongs to communityID and the user
// may no longer read it.
func (c *Client) recheck(communityID string) {
	thread, ok := c.session.Current()
	if !ok || thread.IsDirect() || thread.CommunityID != communityID {
		return
	}
	if err := c.hub.deps.Threads.Authorize(c.ctx, c.id.UID, thread); err == nil {
		return
	}
	c.session.Leave()
	c.dropLatest(EventTypeThreadSnapshot)
	c.sendError("ACCESS_REVOKED", "you no longer have access to this thread")
}

func (c *Client) pushSnapshot(snap realtime.Snapshot) {
	thread := snap.Thread
	c.pushLatest(EventTypeThreadSnapshot, &thread, snap)
}

func (c *Client) shutdown() {
	c.session.Close()
	c.mu.Lock()
	if c.stopActivity != nil {
		c.stopActivity()
		c.stopActivity = nil
	}
	c.mu.Unlock()
	c.cancel()
}

// pushLatest replaces any unsent frame of the same type, so the client always
// ends up with the newest snapshot however slowly it reads.
func (c *Client) pushLatest(eventType string, thread *addressing.Thread, payload any) {
	data, err := encode(eventType, thread, payload)
	if err != nil {
		c.log.WithError(err).Error("ws: marshal error")
		return
	}
	c.latestMu.Lock()
	c.latest[eventType] = data
	c.latestMu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) takeLatest() [][]byte {
	c.latestMu.Lock()
	defer c.latestMu.Unlock()
	var out [][]byte
	for _, typ := range snapshotTypes {
		if data, ok := c.latest[typ]; ok {
			out = append(out, data)
			delete(c.latest, typ)
		}
	}
	return out
}

func (c *Client) dropLatest(eventType string) {
	c.latestMu.Lock()
	delete(c.latest, eventType)
	c.latestMu.Unlock()
}

// push queues a one-off event without blocking. It is dropped if the client
// has fallen a full buffer behind.
func (c *Client) push(eventType string, thread *addressing.Thread, payload any) {
	data, err := encode(eventType, thread, payload)
	if err != nil {
		c.log.WithError(err).Error("ws: marshal error")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
	}
}

func (c *Client) sendPong() {
	c.push(EventTypePong, nil, nil)
}

func (c *Client) sendError(code, message string) {
	c.push(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
}

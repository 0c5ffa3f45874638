package ws

import (
	"context"
	"errors"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/metrics"
	"github.com/vedran77/hive/internal/realtime"
	"github.com/vedran77/hive/internal/store"
)

// ThreadAuthorizer decides whether a user may open a thread.
type ThreadAuthorizer interface {
	Authorize(ctx context.Context, userID string, thread addressing.Thread) error
}

// ActivityFeed is the per-user activity stream.
type ActivityFeed interface {
	Watch(ctx context.Context, userID string, fn func([]domain.ActivityItem)) (store.Unsubscribe, error)
	MarkThreadRead(ctx context.Context, userID string, thread addressing.Thread) (int, error)
}

// ReadReceipts marks direct messages read.
type ReadReceipts interface {
	MarkAsRead(ctx context.Context, userID, conversationID string) (int, error)
}

// Deps are the services a connected client talks to.
type Deps struct {
	Threads  ThreadAuthorizer
	Activity ActivityFeed
	Receipts ReadReceipts
	Watcher  *realtime.Watcher
}

// Hub manages all active WebSocket clients and routes messages.
type Hub struct {
	deps Deps
	log  logrus.FieldLogger

	// clients maps userID → that user's connections.
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	recheck    chan recheckReq
	done       chan struct{}
}

type broadcastMsg struct {
	threadKey string
	data      []byte
	excludeID string // optional: skip this user (e.g. sender)
}

type recheckReq struct {
	userID      string
	communityID string
}

func NewHub(deps Deps, log logrus.FieldLogger) *Hub {
	return &Hub{
		deps:       deps,
		log:        log,
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		recheck:    make(chan recheckReq, 64),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's main event loop until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					h.drop(client)
				}
			}
			return

		case client := <-h.register:
			set, ok := h.clients[client.id.UID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.id.UID] = set
			}
			set[client] = struct{}{}
			metrics.WSConnected()
			h.log.WithField("user_id", client.id.UID).Debug("ws hub: client connected")

			if !ok {
				h.broadcastPresence(client.id.UID, "online")
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client.id.UID][client]; ok {
				h.drop(client)
				h.log.WithField("user_id", client.id.UID).Debug("ws hub: client disconnected")

				if len(h.clients[client.id.UID]) == 0 {
					delete(h.clients, client.id.UID)
					h.broadcastPresence(client.id.UID, "offline")
				}
			}

		case msg := <-h.broadcast:
			for userID, set := range h.clients {
				if msg.excludeID != "" && userID == msg.excludeID {
					continue
				}
				for client := range set {
					// Only send to clients that have this thread open
					if !client.IsWatching(msg.threadKey) {
						continue
					}
					select {
					case client.send <- msg.data:
					default:
						// Client buffer full - disconnect
						h.drop(client)
					}
				}
			}

		case ev := <-h.recheck:
			for client := range h.clients[ev.userID] {
				go client.recheck(ev.communityID)
			}
		}
	}
}

// drop removes client and stops its write pump. Only the Run loop calls it.
func (h *Hub) drop(client *Client) {
	set := h.clients[client.id.UID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.done)
	metrics.WSDisconnected()
}

// BroadcastToThread sends an event to every client that has thread open.
func (h *Hub) BroadcastToThread(thread addressing.Thread, event *Event, excludeUserID string) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("ws hub: marshal error")
		return
	}
	select {
	case h.broadcast <- &broadcastMsg{threadKey: thread.Key(), data: data, excludeID: excludeUserID}:
	case <-h.done:
	}
}

func (h *Hub) add(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return errHubClosed
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Recheck re-authorizes userID's open threads in communityID and closes the
// ones the user lost access to, e.g. after a kick, ban or demotion.
func (h *Hub) Recheck(communityID, userID string) {
	select {
	case h.recheck <- recheckReq{userID: userID, communityID: communityID}:
	default:
		h.log.WithField("user_id", userID).Warn("ws hub: recheck queue full")
	}
}

// HandleTyping broadcasts typing events to the sender's open thread.
func (h *Hub) HandleTyping(sender *Client, event *Event) {
	thread, ok := sender.session.Current()
	if !ok {
		sender.sendError("NO_THREAD", "open a thread before sending typing events")
		return
	}

	evt, err := NewEvent(EventTypeTyping, &thread, TypingPayload{
		UserID:      sender.id.UID,
		DisplayName: sender.id.DisplayName,
		Active:      event.Type == EventTypeTypingStart,
	})
	if err != nil {
		return
	}

	h.BroadcastToThread(thread, evt, sender.id.UID)
}

// broadcastPresence sends online/offline to all connected clients.
func (h *Hub) broadcastPresence(userID, status string) {
	data, err := encode(EventTypePresence, nil, PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	for id, set := range h.clients {
		if id == userID {
			continue
		}
		for client := range set {
			select {
			case client.send <- data:
			default:
			}
		}
	}
}

var errHubClosed = errors.New("hub closed")

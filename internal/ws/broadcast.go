package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakoon/console-backend/internal/session"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster pushes registry snapshots to connected dashboard clients.
// Ticks and operator actions queue a push; queued pushes within the throttle
// window coalesce into one message carrying the latest snapshot.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	snapshot func() *session.Snapshot
	throttle time.Duration

	flushMu    sync.Mutex
	flushTimer *time.Timer
	lastNotif  string
}

func NewBroadcaster(snapshot func() *session.Snapshot, throttle time.Duration) *Broadcaster {
	if throttle <= 0 {
		throttle = 100 * time.Millisecond
	}
	return &Broadcaster{
		clients:  make(map[*client]bool),
		snapshot: snapshot,
		throttle: throttle,
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	msg := WSMessage{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Snapshot: b.snapshot()},
	}
	data, _ := json.Marshal(msg)

	select {
	case c.send <- data:
	default:
		// Client too slow, drop the snapshot
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// QueueSnapshot schedules a snapshot push. Multiple queued pushes inside the
// throttle window collapse into a single broadcast.
func (b *Broadcaster) QueueSnapshot() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	b.flushTimer = nil
	b.flushMu.Unlock()

	snap := b.snapshot()
	b.broadcast(WSMessage{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Snapshot: snap},
	})

	// A newly raised notification also goes out as its own event, so the
	// dashboard can toast it without diffing snapshots.
	b.flushMu.Lock()
	raised := snap.Notification != "" && snap.Notification != b.lastNotif
	b.lastNotif = snap.Notification
	b.flushMu.Unlock()

	if raised {
		b.broadcast(WSMessage{
			Type:    MsgNotification,
			Payload: NotificationPayload{Message: snap.Notification},
		})
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

package transport

import (
	"context"
	"log"
	"strings"
	"sync"

	pubnub "github.com/pubnub/go"
)

// PubNubRooms drives audio rooms over PubNub channels. Control messages go
// out on the room's own channel; presence "leave" events and explicit
// remote_leave messages come back and are mapped to the onRemoteLeave hook,
// which feeds the session engine's end path.
type PubNubRooms struct {
	pn            *pubnub.PubNub
	onRemoteLeave func(room string)

	mu       sync.Mutex
	released map[string]bool
}

func NewPubNubRooms(publishKey, subscribeKey string, onRemoteLeave func(room string)) *PubNubRooms {
	cfg := pubnub.NewConfig()
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey

	r := &PubNubRooms{
		pn:            pubnub.NewPubNub(cfg),
		onRemoteLeave: onRemoteLeave,
		released:      make(map[string]bool),
	}
	go r.listen()
	return r
}

func (r *PubNubRooms) listen() {
	listener := pubnub.NewListener()
	r.pn.AddListener(listener)

	for {
		select {
		case message := <-listener.Message:
			if room, ok := remoteLeaveRoom(message.Message); ok {
				log.Printf("transport: remote_leave for %s", room)
				r.onRemoteLeave(room)
			}
		case presence := <-listener.Presence:
			if presence.Event == "leave" && isRoomChannel(presence.Channel) {
				log.Printf("transport: presence leave on %s", presence.Channel)
				r.onRemoteLeave(presence.Channel)
			}
		case <-listener.Status:
		}
	}
}

func (r *PubNubRooms) PublishAudio(ctx context.Context, room string) error {
	r.mu.Lock()
	delete(r.released, room)
	r.mu.Unlock()

	r.pn.Subscribe().
		Channels([]string{room}).
		WithPresence(true).
		Execute()

	_, _, err := r.pn.Publish().
		Channel(room).
		Message(map[string]interface{}{
			"type": "publish_audio",
			"room": room,
		}).
		Execute()
	return err
}

func (r *PubNubRooms) Release(ctx context.Context, room string) error {
	r.mu.Lock()
	if r.released[room] {
		r.mu.Unlock()
		return nil
	}
	r.released[room] = true
	r.mu.Unlock()

	_, _, err := r.pn.Publish().
		Channel(room).
		Message(map[string]interface{}{
			"type": "release",
			"room": room,
		}).
		Execute()

	r.pn.Unsubscribe().
		Channels([]string{room}).
		Execute()
	return err
}

// remoteLeaveRoom extracts the room from a remote_leave control message.
func remoteLeaveRoom(message interface{}) (string, bool) {
	data, ok := message.(map[string]interface{})
	if !ok {
		return "", false
	}
	if t, _ := data["type"].(string); t != "remote_leave" {
		return "", false
	}
	room, _ := data["room"].(string)
	if room == "" {
		return "", false
	}
	return room, true
}

func isRoomChannel(channel string) bool {
	return strings.HasPrefix(channel, "call-")
}

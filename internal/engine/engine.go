// Package engine owns the single timeline everything else reacts to: one
// ticker drives session countdowns, expiries and the arrival cadence, and
// every operator action funnels through here so transport side effects stay
// in one place.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sakoon/console-backend/internal/arrivals"
	"github.com/sakoon/console-backend/internal/session"
	"github.com/sakoon/console-backend/internal/transport"
)

type Engine struct {
	reg          *session.Registry
	gen          *arrivals.Generator
	rooms        transport.Rooms
	interval     time.Duration
	arrivalEvery int
	onChange     func()

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// New wires the engine. interval falls back to one second, arrivalEvery to
// every 15th tick; arrivalEvery < 0 disables arrivals entirely.
func New(reg *session.Registry, gen *arrivals.Generator, rooms transport.Rooms, interval time.Duration, arrivalEvery int) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	if arrivalEvery == 0 {
		arrivalEvery = 15
	}
	return &Engine{
		reg:          reg,
		gen:          gen,
		rooms:        rooms,
		interval:     interval,
		arrivalEvery: arrivalEvery,
		done:         make(chan struct{}),
	}
}

// OnChange registers a hook invoked after every tick and every mutating
// operator action, typically to push a fresh snapshot to dashboard clients.
// Must be called before Start.
func (e *Engine) OnChange(fn func()) {
	e.onChange = fn
}

// Start launches the tick loop. Stop (or cancelling ctx) ends it.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	// The counter starts at 0 and the first transition happens on tick 1,
	// one interval after startup.
	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			e.Step(tick)
		}
	}
}

// Step applies one tick: countdowns and expiries first, then the arrival
// cadence. Exported so tests can drive the timeline without a real ticker.
func (e *Engine) Step(tick int) {
	res := e.reg.Tick()
	for _, s := range res.ExpiredCalls {
		e.release(s.Room)
	}
	if e.arrivalEvery > 0 && tick%e.arrivalEvery == 0 {
		e.gen.Fire()
	}
	e.changed()
}

// Stop halts the tick loop and releases every live audio room. Safe to call
// more than once; no tick fires after Stop returns.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
			<-e.done
		}
		for _, room := range e.reg.Rooms() {
			e.release(room)
		}
	})
}

// ConnectCall promotes a waiting call and starts publishing audio into its
// room. Unknown ids are a safe no-op.
func (e *Engine) ConnectCall(id int64) bool {
	s, ok := e.reg.ConnectCall(id)
	if !ok {
		return false
	}
	if err := e.rooms.PublishAudio(context.Background(), s.Room); err != nil {
		log.Printf("engine: publish audio for %s: %v", s.Room, err)
	}
	e.changed()
	return true
}

// EndCall ends an active call and releases its room.
func (e *Engine) EndCall(id int64) bool {
	s, ok := e.reg.EndCall(id)
	if !ok {
		return false
	}
	e.release(s.Room)
	e.changed()
	return true
}

// StartChat promotes a waiting chat.
func (e *Engine) StartChat(id int64) bool {
	_, ok := e.reg.StartChat(id)
	if ok {
		e.changed()
	}
	return ok
}

// EndChat ends an active chat.
func (e *Engine) EndChat(id int64) bool {
	_, ok := e.reg.EndChat(id)
	if ok {
		e.changed()
	}
	return ok
}

// SendMessage appends an admin message to an active chat. Blank text and
// stale ids are no-ops.
func (e *Engine) SendMessage(chatID int64, text string) bool {
	ok := e.reg.SendMessage(chatID, text)
	if ok {
		e.changed()
	}
	return ok
}

// RemoteLeave is the transport's inbound hook: the remote party left the
// room, so the call ends exactly as an operator-initiated end would.
func (e *Engine) RemoteLeave(room string) {
	s, ok := e.reg.EndCallByRoom(room)
	if !ok {
		return
	}
	e.release(s.Room)
	e.changed()
}

// Snapshot returns the registry's read-only state copy.
func (e *Engine) Snapshot() *session.Snapshot {
	return e.reg.Snapshot()
}

func (e *Engine) release(room string) {
	if room == "" {
		return
	}
	if err := e.rooms.Release(context.Background(), room); err != nil {
		log.Printf("engine: release %s: %v", room, err)
	}
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

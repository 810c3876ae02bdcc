package session

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultFeedCap bounds the recent-activity feed.
	DefaultFeedCap = 50
	// DefaultNotificationTTL is how many ticks a purchase notification stays
	// visible.
	DefaultNotificationTTL = 5
)

// lane bundles the collections for one session kind. Calls and chats run the
// same lifecycle over independent lanes.
type lane struct {
	kind    Kind
	active  []*ActiveSession
	waiting []*WaitingEntry
	history []*HistoryEntry
}

// Registry owns all session state: both lanes, the recent-activity feed, the
// stats block and the current notification. Every mutation happens under one
// mutex, so a tick or an operator action is atomic with its stats update.
// All reads hand out copies; nothing inside the registry is shared by
// reference with callers.
type Registry struct {
	mu       sync.Mutex
	nextID   int64
	tick     int
	feedCap  int
	notifTTL int
	now      func() time.Time

	calls lane
	chats lane
	feed  []*Activity
	stats Stats

	notifMsg   string
	notifUntil int

	events      chan Event
	dropped     int64
	lastDropLog time.Time
}

// TickResult reports the sessions a tick expired, so the caller can release
// their transport rooms.
type TickResult struct {
	ExpiredCalls []*ActiveSession
	ExpiredChats []*ActiveSession
}

// New creates an empty registry. feedCap and notificationTTL fall back to the
// defaults when non-positive.
func New(feedCap, notificationTTL int) *Registry {
	if feedCap <= 0 {
		feedCap = DefaultFeedCap
	}
	if notificationTTL <= 0 {
		notificationTTL = DefaultNotificationTTL
	}
	return &Registry{
		nextID:   1000,
		feedCap:  feedCap,
		notifTTL: notificationTTL,
		now:      time.Now,
		calls:    lane{kind: Call},
		chats:    lane{kind: Chat},
		stats:    Stats{TodaysRevenue: decimal.Zero},
		events:   make(chan Event, 256),
	}
}

// NextID returns a fresh process-unique id. Ids are never reused within a run.
func (r *Registry) NextID() int64 {
	return atomic.AddInt64(&r.nextID, 1)
}

// Events exposes the registry's mutation stream. Events are dropped, never
// blocked on, when the consumer falls behind.
func (r *Registry) Events() <-chan Event {
	return r.events
}

func (r *Registry) emit(t EventType, kind Kind, plan string) {
	ev := Event{Type: t, Kind: kind, Plan: plan, Stats: r.stats}
	select {
	case r.events <- ev:
	default:
		r.dropped++
		if time.Since(r.lastDropLog) > time.Minute {
			log.Printf("registry: dropped %d events (observer too slow)", r.dropped)
			r.lastDropLog = time.Now()
			r.dropped = 0
		}
	}
}

func (r *Registry) laneFor(kind Kind) *lane {
	if kind == Chat {
		return &r.chats
	}
	return &r.calls
}

// ConnectCall promotes a waiting call to an active session. Missing ids are a
// silent no-op: the entry may already have been taken by a concurrent action.
// The returned session is a copy carrying the minted transport room.
func (r *Registry) ConnectCall(id int64) (*ActiveSession, bool) {
	return r.connect(Call, id)
}

// StartChat promotes a waiting chat to an active session, seeding one
// user-authored message that echoes the plan label.
func (r *Registry) StartChat(id int64) (*ActiveSession, bool) {
	return r.connect(Chat, id)
}

func (r *Registry) connect(kind Kind, id int64) (*ActiveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.laneFor(kind)
	entry, ok := takeWaiting(&l.waiting, id)
	if !ok {
		return nil, false
	}

	seconds := PlanSeconds(entry.Plan, kind)
	active := &ActiveSession{
		ID:            entry.ID,
		Name:          entry.Name,
		Avatar:        entry.Avatar,
		Kind:          kind,
		PlanDuration:  seconds,
		TimeRemaining: seconds,
	}
	if kind == Call {
		active.Room = "call-" + uuid.NewString()
	} else {
		active.Messages = []ChatMessage{{
			ID:        r.NextID(),
			Sender:    SenderUser,
			Text:      fmt.Sprintf("Hi! I've started the %s.", entry.Plan),
			Timestamp: r.now().Format("03:04 PM"),
		}}
	}

	// Most-recent-first ordering.
	l.active = append([]*ActiveSession{active}, l.active...)
	r.addActive(kind, 1)
	r.stats.WaitingQueue--
	r.emit(EventConnected, kind, entry.Plan)

	return active.Clone(), true
}

// EndCall moves an active call to history, recording the actually elapsed
// time. A stale id is a silent no-op and never creates a duplicate history
// entry. The returned copy carries the room the caller must release.
func (r *Registry) EndCall(id int64) (*ActiveSession, bool) {
	return r.end(Call, id)
}

// EndChat moves an active chat to history. See EndCall.
func (r *Registry) EndChat(id int64) (*ActiveSession, bool) {
	return r.end(Chat, id)
}

func (r *Registry) end(kind Kind, id int64) (*ActiveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.laneFor(kind)
	active, ok := takeActive(&l.active, id)
	if !ok {
		return nil, false
	}

	elapsed := active.PlanDuration - active.TimeRemaining
	r.archive(l, active, elapsed)
	r.emit(EventEnded, kind, minuteLabel(active.PlanDuration, kind))

	return active.Clone(), true
}

// EndCallByRoom ends the active call bound to the given transport room. Used
// when the remote party leaves; follows the exact same path as an operator
// end.
func (r *Registry) EndCallByRoom(room string) (*ActiveSession, bool) {
	r.mu.Lock()
	var id int64 = -1
	for _, s := range r.calls.active {
		if s.Room == room {
			id = s.ID
			break
		}
	}
	r.mu.Unlock()
	if id < 0 {
		return nil, false
	}
	return r.EndCall(id)
}

// archive appends a history entry for a terminated session and settles the
// active counter. Caller holds the lock and has already removed the session
// from the lane.
func (r *Registry) archive(l *lane, s *ActiveSession, elapsedSeconds int) {
	l.history = append([]*HistoryEntry{{
		ID:       s.ID,
		Name:     s.Name,
		Avatar:   s.Avatar,
		Plan:     minuteLabel(s.PlanDuration, l.kind),
		Duration: FormatDuration(elapsedSeconds),
	}}, l.history...)
	r.addActive(l.kind, -1)
}

// SendMessage appends an admin message to an active chat. Blank or
// whitespace-only text is a no-op, as is a stale chat id.
func (r *Registry) SendMessage(chatID int64, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.chats.active {
		if s.ID == chatID {
			s.Messages = append(s.Messages, ChatMessage{
				ID:        r.NextID(),
				Sender:    SenderAdmin,
				Text:      text,
				Timestamp: r.now().Format("03:04 PM"),
			})
			r.emit(EventMessage, Chat, "")
			return true
		}
	}
	return false
}

// Tick advances all timers by one second: active sessions count down and
// expire into history at zero, waiting entries age by one second, and a
// notification past its lifetime is cleared. The whole tick is one critical
// section, so observers never see a half-applied tick.
func (r *Registry) Tick() TickResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tick++

	res := TickResult{
		ExpiredCalls: r.tickActive(&r.calls),
		ExpiredChats: r.tickActive(&r.chats),
	}
	for _, w := range r.calls.waiting {
		w.WaitingSeconds++
	}
	for _, w := range r.chats.waiting {
		w.WaitingSeconds++
	}

	if r.notifMsg != "" && r.tick >= r.notifUntil {
		r.notifMsg = ""
	}

	return res
}

// tickActive decrements every session in the lane and expires the ones that
// reach zero. Expired sessions are archived with the full plan duration.
// Caller holds the lock.
func (r *Registry) tickActive(l *lane) []*ActiveSession {
	var expired []*ActiveSession
	kept := l.active[:0]
	for _, s := range l.active {
		if s.TimeRemaining > 0 {
			s.TimeRemaining--
		}
		if s.TimeRemaining <= 0 {
			expired = append(expired, s.Clone())
			continue
		}
		kept = append(kept, s)
	}
	l.active = kept

	for _, s := range expired {
		r.archive(l, s, s.PlanDuration)
		r.emit(EventExpired, l.kind, minuteLabel(s.PlanDuration, l.kind))
	}
	return expired
}

// RecordArrival registers a synthetic plan purchase: a feed entry, a real
// waiting entry in the lane the plan names, the revenue delta and a transient
// notification. Returns a copy of the enqueued waiting entry.
func (r *Registry) RecordArrival(plan string) *WaitingEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.NextID()
	r.feed = append([]*Activity{{
		ID:        id,
		Avatar:    "N",
		Name:      "New User",
		Plan:      plan,
		Status:    StatusWaiting,
		Timestamp: "Just now",
	}}, r.feed...)
	if len(r.feed) > r.feedCap {
		r.feed = r.feed[:r.feedCap]
	}

	entry := &WaitingEntry{
		ID:     id,
		Name:   "New User",
		Avatar: "N",
		Plan:   plan,
	}
	l := &r.calls
	if strings.Contains(strings.ToLower(plan), "chat") {
		l = &r.chats
	}
	l.waiting = append(l.waiting, entry)

	r.stats.WaitingQueue++
	if minutes := PlanMinutes(plan); minutes > 0 {
		r.stats.TodaysRevenue = r.stats.TodaysRevenue.Add(decimal.NewFromInt(int64(minutes) * 10))
	} else {
		r.stats.TodaysRevenue = r.stats.TodaysRevenue.Add(decimal.NewFromInt(50))
	}

	r.notifMsg = fmt.Sprintf("🔔 New User Purchased %s Plan!", plan)
	r.notifUntil = r.tick + r.notifTTL
	r.emit(EventArrival, l.kind, plan)

	e := *entry
	return &e
}

func (r *Registry) addActive(kind Kind, delta int) {
	if kind == Chat {
		r.stats.ActiveChats += delta
	} else {
		r.stats.ActiveCalls += delta
	}
}

// StatsView returns a copy of the current stats block.
func (r *Registry) StatsView() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Rooms lists the transport rooms of all active calls, for release on
// shutdown.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]string, 0, len(r.calls.active))
	for _, s := range r.calls.active {
		if s.Room != "" {
			rooms = append(rooms, s.Room)
		}
	}
	return rooms
}

// Snapshot returns a deep copy of everything the registry holds.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &Snapshot{
		Stats:          r.stats,
		ActiveCalls:    cloneActive(r.calls.active),
		WaitingCalls:   cloneWaiting(r.calls.waiting),
		CallHistory:    cloneHistory(r.calls.history),
		ActiveChats:    cloneActive(r.chats.active),
		WaitingChats:   cloneWaiting(r.chats.waiting),
		ChatHistory:    cloneHistory(r.chats.history),
		RecentActivity: cloneFeed(r.feed),
		Notification:   r.notifMsg,
	}
}

func takeWaiting(list *[]*WaitingEntry, id int64) (*WaitingEntry, bool) {
	for i, w := range *list {
		if w.ID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return w, true
		}
	}
	return nil, false
}

func takeActive(list *[]*ActiveSession, id int64) (*ActiveSession, bool) {
	for i, s := range *list {
		if s.ID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return s, true
		}
	}
	return nil, false
}

func cloneActive(list []*ActiveSession) []*ActiveSession {
	out := make([]*ActiveSession, len(list))
	for i, s := range list {
		out[i] = s.Clone()
	}
	return out
}

func cloneWaiting(list []*WaitingEntry) []*WaitingEntry {
	out := make([]*WaitingEntry, len(list))
	for i, w := range list {
		c := *w
		out[i] = &c
	}
	return out
}

func cloneHistory(list []*HistoryEntry) []*HistoryEntry {
	out := make([]*HistoryEntry, len(list))
	for i, h := range list {
		c := *h
		out[i] = &c
	}
	return out
}

func cloneFeed(list []*Activity) []*Activity {
	out := make([]*Activity, len(list))
	for i, a := range list {
		c := *a
		out[i] = &c
	}
	return out
}

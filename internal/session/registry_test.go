package session

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestRegistry() *Registry {
	r := New(0, 0)
	r.now = func() time.Time {
		return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	}
	return r
}

func seededRegistry() *Registry {
	r := newTestRegistry()
	r.Seed()
	return r
}

func TestSeed(t *testing.T) {
	r := seededRegistry()
	snap := r.Snapshot()

	if got := len(snap.ActiveCalls); got != 1 {
		t.Errorf("seeded active calls = %d, want 1", got)
	}
	if got := len(snap.WaitingCalls); got != 2 {
		t.Errorf("seeded waiting calls = %d, want 2", got)
	}
	if got := len(snap.ActiveChats); got != 1 {
		t.Errorf("seeded active chats = %d, want 1", got)
	}
	if got := len(snap.WaitingChats); got != 2 {
		t.Errorf("seeded waiting chats = %d, want 2", got)
	}
	if got := len(snap.RecentActivity); got != 4 {
		t.Errorf("seeded feed = %d entries, want 4", got)
	}
	if snap.Stats.ActiveCalls != 1 || snap.Stats.ActiveChats != 1 {
		t.Errorf("seeded stats = %+v, want 1 active call and 1 active chat", snap.Stats)
	}
	if snap.Stats.WaitingQueue != 4 {
		t.Errorf("seeded waiting queue = %d, want 4", snap.Stats.WaitingQueue)
	}
	if !snap.Stats.TodaysRevenue.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("seeded revenue = %s, want 1250", snap.Stats.TodaysRevenue)
	}
	if snap.ActiveCalls[0].Room == "" {
		t.Error("seeded active call has no transport room")
	}
}

func TestConnectCall(t *testing.T) {
	r := seededRegistry()

	s, ok := r.ConnectCall(201) // Rahul, "10 min Call"
	if !ok {
		t.Fatal("ConnectCall(201) returned ok=false")
	}
	if s.PlanDuration != 600 || s.TimeRemaining != 600 {
		t.Errorf("connected call duration = %d/%d, want 600/600", s.PlanDuration, s.TimeRemaining)
	}
	if s.Room == "" {
		t.Error("connected call has no transport room")
	}

	snap := r.Snapshot()
	if got := len(snap.WaitingCalls); got != 1 {
		t.Errorf("waiting calls after connect = %d, want 1", got)
	}
	if snap.ActiveCalls[0].ID != 201 {
		t.Errorf("active calls head = %d, want 201 (most recent first)", snap.ActiveCalls[0].ID)
	}
	if snap.Stats.ActiveCalls != 2 {
		t.Errorf("activeCalls stat = %d, want 2", snap.Stats.ActiveCalls)
	}
	if snap.Stats.WaitingQueue != 3 {
		t.Errorf("waitingQueue stat = %d, want 3", snap.Stats.WaitingQueue)
	}
}

func TestConnectCallMissingID(t *testing.T) {
	r := seededRegistry()
	before := r.Snapshot()

	if _, ok := r.ConnectCall(9999); ok {
		t.Fatal("ConnectCall with unknown id returned ok=true")
	}

	after := r.Snapshot()
	if len(after.ActiveCalls) != len(before.ActiveCalls) || after.Stats != before.Stats {
		t.Error("ConnectCall with unknown id mutated state")
	}
}

func TestStartChatSeedsMessage(t *testing.T) {
	r := seededRegistry()

	s, ok := r.StartChat(501) // "15 min Chat Plan – ₹15"
	if !ok {
		t.Fatal("StartChat(501) returned ok=false")
	}
	if s.PlanDuration != 900 {
		t.Errorf("chat plan duration = %d, want 900", s.PlanDuration)
	}
	if len(s.Messages) != 1 {
		t.Fatalf("started chat has %d messages, want 1", len(s.Messages))
	}
	msg := s.Messages[0]
	if msg.Sender != SenderUser {
		t.Errorf("seeded message sender = %v, want user", msg.Sender)
	}
	if want := "Hi! I've started the 15 min Chat Plan – ₹15."; msg.Text != want {
		t.Errorf("seeded message text = %q, want %q", msg.Text, want)
	}
	if msg.Timestamp == "" {
		t.Error("seeded message has no timestamp")
	}
}

func TestConnectThenImmediateEnd(t *testing.T) {
	r := seededRegistry()

	s, _ := r.ConnectCall(202)
	ended, ok := r.EndCall(s.ID)
	if !ok {
		t.Fatal("EndCall right after connect returned ok=false")
	}
	if ended.Room != s.Room {
		t.Errorf("ended call room = %q, want %q", ended.Room, s.Room)
	}

	snap := r.Snapshot()
	head := snap.CallHistory[0]
	if head.ID != 202 {
		t.Fatalf("history head id = %d, want 202", head.ID)
	}
	if head.Duration != "00:00" {
		t.Errorf("zero-tick session duration = %q, want \"00:00\"", head.Duration)
	}
	if head.Plan != "5 min Call" {
		t.Errorf("history plan = %q, want \"5 min Call\"", head.Plan)
	}
}

func TestEndCallTwice(t *testing.T) {
	r := seededRegistry()
	histBefore := len(r.Snapshot().CallHistory)

	if _, ok := r.EndCall(101); !ok {
		t.Fatal("first EndCall(101) returned ok=false")
	}
	if _, ok := r.EndCall(101); ok {
		t.Error("second EndCall with stale id returned ok=true")
	}

	snap := r.Snapshot()
	if got := len(snap.CallHistory); got != histBefore+1 {
		t.Errorf("history grew by %d entries, want exactly 1", got-histBefore)
	}
	if snap.Stats.ActiveCalls != 0 {
		t.Errorf("activeCalls stat = %d, want 0", snap.Stats.ActiveCalls)
	}
}

func TestEndCallRecordsElapsed(t *testing.T) {
	r := seededRegistry()

	for i := 0; i < 130; i++ {
		r.Tick()
	}
	// Seeded call started at 750 of 900: elapsed is 150+130 seconds.
	if _, ok := r.EndCall(101); !ok {
		t.Fatal("EndCall(101) returned ok=false")
	}

	head := r.Snapshot().CallHistory[0]
	if head.Duration != "04:40" {
		t.Errorf("elapsed duration = %q, want \"04:40\"", head.Duration)
	}
	if head.Plan != "15 min Call" {
		t.Errorf("history plan = %q, want \"15 min Call\"", head.Plan)
	}
}

func TestEndChat(t *testing.T) {
	r := seededRegistry()

	if _, ok := r.EndChat(401); !ok {
		t.Fatal("EndChat(401) returned ok=false")
	}
	snap := r.Snapshot()
	head := snap.ChatHistory[0]
	if head.Plan != "10 min Chat" {
		t.Errorf("chat history plan = %q, want \"10 min Chat\"", head.Plan)
	}
	if head.Duration != "02:00" { // 600-480 elapsed
		t.Errorf("chat history duration = %q, want \"02:00\"", head.Duration)
	}
	if snap.Stats.ActiveChats != 0 {
		t.Errorf("activeChats stat = %d, want 0", snap.Stats.ActiveChats)
	}
}

func TestSendMessage(t *testing.T) {
	r := seededRegistry()

	if !r.SendMessage(401, "How can I help?") {
		t.Fatal("SendMessage to active chat returned false")
	}
	chat := r.Snapshot().ActiveChats[0]
	last := chat.Messages[len(chat.Messages)-1]
	if last.Sender != SenderAdmin || last.Text != "How can I help?" {
		t.Errorf("appended message = %+v, want admin-authored text", last)
	}
}

func TestSendMessageBlankIsNoop(t *testing.T) {
	r := seededRegistry()
	before := len(r.Snapshot().ActiveChats[0].Messages)

	for _, text := range []string{"", "   ", "\n\t "} {
		if r.SendMessage(401, text) {
			t.Errorf("SendMessage(%q) returned true, want no-op", text)
		}
	}
	if got := len(r.Snapshot().ActiveChats[0].Messages); got != before {
		t.Errorf("blank sends grew messages to %d, want %d", got, before)
	}
}

func TestSendMessageStaleID(t *testing.T) {
	r := seededRegistry()
	if r.SendMessage(9999, "anyone there?") {
		t.Error("SendMessage to unknown chat returned true")
	}
}

func TestTickDecrementsAndAges(t *testing.T) {
	r := seededRegistry()
	r.Tick()

	snap := r.Snapshot()
	if got := snap.ActiveCalls[0].TimeRemaining; got != 749 {
		t.Errorf("active call after one tick = %d, want 749", got)
	}
	if got := snap.ActiveChats[0].TimeRemaining; got != 479 {
		t.Errorf("active chat after one tick = %d, want 479", got)
	}
	if got := snap.WaitingCalls[0].WaitingSeconds; got != 126 {
		t.Errorf("waiting call after one tick = %d, want 126", got)
	}
	if got := snap.WaitingChats[0].WaitingSeconds; got != 181 {
		t.Errorf("waiting chat after one tick = %d, want 181", got)
	}
}

func TestTickNeverRemovesWaiting(t *testing.T) {
	r := seededRegistry()
	for i := 0; i < 5000; i++ {
		r.Tick()
	}
	snap := r.Snapshot()
	if len(snap.WaitingCalls) != 2 || len(snap.WaitingChats) != 2 {
		t.Errorf("waiting collections after 5000 ticks = %d/%d, want 2/2",
			len(snap.WaitingCalls), len(snap.WaitingChats))
	}
	if got := snap.WaitingCalls[0].WaitingSeconds; got != 5125 {
		t.Errorf("waiting time = %d, want 5125 (no upper bound)", got)
	}
}

func TestActiveCallExpires(t *testing.T) {
	// Seeded call: planDuration 900, timeRemaining 750. After 750 ticks it
	// must land in history with the full plan duration, exactly once.
	r := seededRegistry()

	var expired int
	for i := 0; i < 750; i++ {
		res := r.Tick()
		expired += len(res.ExpiredCalls)
	}

	if expired != 1 {
		t.Fatalf("expired %d calls, want exactly 1", expired)
	}
	snap := r.Snapshot()
	if len(snap.ActiveCalls) != 0 {
		t.Errorf("active calls after expiry = %d, want 0", len(snap.ActiveCalls))
	}
	head := snap.CallHistory[0]
	if head.ID != 101 {
		t.Errorf("history head id = %d, want 101", head.ID)
	}
	if head.Duration != "15:00" {
		t.Errorf("expired duration = %q, want \"15:00\"", head.Duration)
	}
	if head.Plan != "15 min Call" {
		t.Errorf("expired plan label = %q, want \"15 min Call\"", head.Plan)
	}
	if snap.Stats.ActiveCalls != 0 {
		t.Errorf("activeCalls stat = %d, want 0", snap.Stats.ActiveCalls)
	}

	// Further ticks must not produce more history entries for the same id.
	before := len(snap.CallHistory)
	for i := 0; i < 10; i++ {
		r.Tick()
	}
	if got := len(r.Snapshot().CallHistory); got != before {
		t.Errorf("history grew to %d after expiry settled, want %d", got, before)
	}
}

func TestConnectedCallRunsFullPlan(t *testing.T) {
	r := newTestRegistry()
	entry := r.RecordArrival("10 min Call")

	if _, ok := r.ConnectCall(entry.ID); !ok {
		t.Fatal("ConnectCall on arrival entry returned ok=false")
	}
	for i := 0; i < 600; i++ {
		r.Tick()
	}

	snap := r.Snapshot()
	if len(snap.ActiveCalls) != 0 {
		t.Fatalf("call still active after 600 ticks, remaining=%d", snap.ActiveCalls[0].TimeRemaining)
	}
	if got := snap.CallHistory[0].Duration; got != "10:00" {
		t.Errorf("expired duration = %q, want \"10:00\"", got)
	}
}

func TestChatExpiryKeepsLanesIndependent(t *testing.T) {
	r := newTestRegistry()
	call := r.RecordArrival("5 min Call")
	chat := r.RecordArrival("10 min Chat")
	r.ConnectCall(call.ID)
	r.StartChat(chat.ID)

	for i := 0; i < 300; i++ {
		r.Tick()
	}

	snap := r.Snapshot()
	if len(snap.ActiveCalls) != 0 {
		t.Error("call did not expire after its full plan")
	}
	if len(snap.ActiveChats) != 1 {
		t.Fatal("chat expired alongside the call")
	}
	if got := snap.ActiveChats[0].TimeRemaining; got != 300 {
		t.Errorf("chat remaining = %d, want 300", got)
	}
	if snap.Stats.ActiveCalls != 0 || snap.Stats.ActiveChats != 1 {
		t.Errorf("stats = %+v, want 0 calls / 1 chat", snap.Stats)
	}
}

func TestArrivalEnqueuesWaitingEntry(t *testing.T) {
	// Arrivals feed the real waiting collections, not just the activity
	// feed, so the waiting-queue counter stays truthful and connect/start
	// can consume what arrivals produce.
	r := newTestRegistry()

	chatEntry := r.RecordArrival("30 min Chat")
	callEntry := r.RecordArrival("5 min Call")

	snap := r.Snapshot()
	if len(snap.WaitingChats) != 1 || snap.WaitingChats[0].ID != chatEntry.ID {
		t.Errorf("chat arrival not in waiting chats: %+v", snap.WaitingChats)
	}
	if len(snap.WaitingCalls) != 1 || snap.WaitingCalls[0].ID != callEntry.ID {
		t.Errorf("call arrival not in waiting calls: %+v", snap.WaitingCalls)
	}
	if snap.Stats.WaitingQueue != 2 {
		t.Errorf("waitingQueue stat = %d, want 2", snap.Stats.WaitingQueue)
	}
	if len(snap.RecentActivity) != 2 {
		t.Errorf("feed has %d entries, want 2", len(snap.RecentActivity))
	}
	if snap.RecentActivity[0].Status != StatusWaiting {
		t.Errorf("feed head status = %v, want Waiting", snap.RecentActivity[0].Status)
	}
}

func TestArrivalRevenue(t *testing.T) {
	r := newTestRegistry()

	r.RecordArrival("30 min Chat")
	if got := r.StatsView().TodaysRevenue; !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("revenue after 30 min plan = %s, want 300", got)
	}

	r.RecordArrival("Gift Pack")
	if got := r.StatsView().TodaysRevenue; !got.Equal(decimal.NewFromInt(350)) {
		t.Errorf("revenue after unparsable plan = %s, want 350 (flat 50)", got)
	}
}

func TestArrivalNotificationLifetime(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 15; i++ {
		r.Tick()
	}
	r.RecordArrival("10 min Chat")

	snap := r.Snapshot()
	if !strings.Contains(snap.Notification, "10 min Chat") {
		t.Fatalf("notification = %q, want purchase message", snap.Notification)
	}

	for i := 0; i < 4; i++ {
		r.Tick()
		if r.Snapshot().Notification == "" {
			t.Fatalf("notification gone after %d ticks, want visible for 4 more", i+1)
		}
	}
	r.Tick()
	if got := r.Snapshot().Notification; got != "" {
		t.Errorf("notification still %q after 5 ticks, want cleared", got)
	}
}

func TestFeedCap(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 120; i++ {
		r.RecordArrival("5 min Call")
	}
	if got := len(r.Snapshot().RecentActivity); got != DefaultFeedCap {
		t.Errorf("feed length = %d, want capped at %d", got, DefaultFeedCap)
	}
}

func TestStatsMatchCollections(t *testing.T) {
	r := seededRegistry()

	r.ConnectCall(201)
	r.StartChat(501)
	r.RecordArrival("5 min Call")
	r.RecordArrival("10 min Chat")
	r.EndCall(101)
	r.EndCall(101) // stale, must not skew counters
	for i := 0; i < 90; i++ {
		r.Tick()
	}
	r.EndChat(401)

	snap := r.Snapshot()
	if snap.Stats.ActiveCalls != len(snap.ActiveCalls) {
		t.Errorf("activeCalls stat = %d, collection = %d", snap.Stats.ActiveCalls, len(snap.ActiveCalls))
	}
	if snap.Stats.ActiveChats != len(snap.ActiveChats) {
		t.Errorf("activeChats stat = %d, collection = %d", snap.Stats.ActiveChats, len(snap.ActiveChats))
	}
	if want := len(snap.WaitingCalls) + len(snap.WaitingChats); snap.Stats.WaitingQueue != want {
		t.Errorf("waitingQueue stat = %d, collections = %d", snap.Stats.WaitingQueue, want)
	}
}

func TestEndCallByRoom(t *testing.T) {
	r := seededRegistry()
	room := r.Snapshot().ActiveCalls[0].Room

	if _, ok := r.EndCallByRoom(room); !ok {
		t.Fatal("EndCallByRoom returned ok=false for a live room")
	}
	if _, ok := r.EndCallByRoom(room); ok {
		t.Error("EndCallByRoom on a released room returned ok=true")
	}
	if got := len(r.Snapshot().ActiveCalls); got != 0 {
		t.Errorf("active calls = %d, want 0", got)
	}
}

func TestRooms(t *testing.T) {
	r := seededRegistry()
	entry := r.RecordArrival("5 min Call")
	r.ConnectCall(entry.ID)

	rooms := r.Rooms()
	if len(rooms) != 2 {
		t.Fatalf("Rooms() = %d entries, want 2", len(rooms))
	}
	for _, room := range rooms {
		if !strings.HasPrefix(room, "call-") {
			t.Errorf("room %q does not carry the call- prefix", room)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := seededRegistry()

	snap := r.Snapshot()
	snap.ActiveCalls[0].TimeRemaining = 1
	snap.ActiveChats[0].Messages[0].Text = "mutated"
	snap.WaitingCalls[0].Plan = "mutated"
	snap.Stats.ActiveCalls = 99

	fresh := r.Snapshot()
	if fresh.ActiveCalls[0].TimeRemaining != 750 {
		t.Error("snapshot mutation leaked into active calls")
	}
	if fresh.ActiveChats[0].Messages[0].Text != "Hello, can you help me?" {
		t.Error("snapshot mutation leaked into chat messages")
	}
	if fresh.WaitingCalls[0].Plan != "10 min Call" {
		t.Error("snapshot mutation leaked into waiting calls")
	}
	if fresh.Stats.ActiveCalls != 1 {
		t.Error("snapshot mutation leaked into stats")
	}
}

func TestEventsEmitted(t *testing.T) {
	r := seededRegistry()

	r.ConnectCall(201)
	r.EndCall(201)
	r.RecordArrival("5 min Call")

	want := []EventType{EventConnected, EventEnded, EventArrival}
	for i, wt := range want {
		select {
		case ev := <-r.Events():
			if ev.Type != wt {
				t.Errorf("event[%d].Type = %v, want %v", i, ev.Type, wt)
			}
		default:
			t.Fatalf("expected %d events, got %d", len(want), i)
		}
	}
}

func TestIDsNeverReused(t *testing.T) {
	r := newTestRegistry()
	seen := make(map[int64]bool)
	for i := 0; i < 200; i++ {
		entry := r.RecordArrival("5 min Call")
		if seen[entry.ID] {
			t.Fatalf("id %d reused", entry.ID)
		}
		seen[entry.ID] = true
	}
}

package session

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seed loads the demo dataset: one call and one chat mid-flight, a few users
// waiting on each side, finished sessions in both histories and a populated
// feed. Ids stay below the registry's id counter so fresh ids never collide.
func (r *Registry) Seed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls.active = []*ActiveSession{
		{ID: 101, Name: "Priya Sharma", Avatar: "P", Kind: Call,
			PlanDuration: 900, TimeRemaining: 750, Room: "call-" + uuid.NewString()},
	}
	r.calls.waiting = []*WaitingEntry{
		{ID: 201, Name: "Rahul Verma", Avatar: "R", Plan: "10 min Call", WaitingSeconds: 125},
		{ID: 202, Name: "Sneha Patel", Avatar: "S", Plan: "5 min Call", WaitingSeconds: 45},
	}
	r.calls.history = []*HistoryEntry{
		{ID: 301, Name: "Amit Kumar", Avatar: "A", Plan: "15 min Call", Duration: "14:55"},
		{ID: 302, Name: "Neha Singh", Avatar: "N", Plan: "30 min Call", Duration: "28:10"},
	}

	r.chats.active = []*ActiveSession{
		{ID: 401, Name: "Aman Gupta", Avatar: "A", Kind: Chat,
			PlanDuration: 600, TimeRemaining: 480,
			Messages: []ChatMessage{
				{ID: 1, Sender: SenderUser, Text: "Hello, can you help me?", Timestamp: "10:31 AM"},
				{ID: 2, Sender: SenderAdmin, Text: "Hi Aman, of course. How can I assist you today?", Timestamp: "10:32 AM"},
				{ID: 3, Sender: SenderUser, Text: "I have a question about my plan.", Timestamp: "10:33 AM"},
			}},
	}
	r.chats.waiting = []*WaitingEntry{
		{ID: 501, Name: "Nisha Kumari", Avatar: "N", Plan: "15 min Chat Plan – ₹15", WaitingSeconds: 180},
		{ID: 502, Name: "Raj Singh", Avatar: "R", Plan: "10 min Chat Plan – ₹10", WaitingSeconds: 65},
	}
	r.chats.history = []*HistoryEntry{
		{ID: 601, Name: "Kavita Iyer", Avatar: "K", Plan: "5 min Chat", Duration: "04:58"},
		{ID: 602, Name: "Rohan Mehra", Avatar: "R", Plan: "30 min Chat", Duration: "29:45"},
	}

	r.feed = []*Activity{
		{ID: 1, Avatar: "R", Name: "Riya", Plan: "15 min Chat", Status: StatusCompleted, Timestamp: "2 min ago"},
		{ID: 2, Avatar: "A", Name: "Amit", Plan: "10 min Call", Status: StatusActive, Timestamp: "5 min ago"},
		{ID: 3, Avatar: "S", Name: "Sonia", Plan: "30 min Chat", Status: StatusWaiting, Timestamp: "8 min ago"},
		{ID: 4, Avatar: "V", Name: "Vikram", Plan: "5 min Call", Status: StatusCompleted, Timestamp: "10 min ago"},
	}

	r.stats.ActiveCalls = len(r.calls.active)
	r.stats.ActiveChats = len(r.chats.active)
	r.stats.WaitingQueue = len(r.calls.waiting) + len(r.chats.waiting)
	r.stats.TodaysRevenue = r.stats.TodaysRevenue.Add(decimal.NewFromInt(1250))
}

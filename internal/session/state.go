package session

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Kind distinguishes the two session flavours. Calls and chats share the same
// lifecycle but live in independent collections with independent counters.
type Kind int

const (
	Call Kind = iota
	Chat
)

var kindNames = map[Kind]string{
	Call: "call",
	Chat: "chat",
}

var kindFromName = map[string]Kind{
	"call": Call,
	"chat": Chat,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := kindFromName[s]; ok {
		*k = v
	}
	return nil
}

// Sender identifies who authored a chat message.
type Sender int

const (
	SenderUser Sender = iota
	SenderAdmin
)

var senderNames = map[Sender]string{
	SenderUser:  "user",
	SenderAdmin: "admin",
}

var senderFromName = map[string]Sender{
	"user":  SenderUser,
	"admin": SenderAdmin,
}

func (s Sender) String() string {
	if n, ok := senderNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Sender) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Sender) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, ok := senderFromName[n]; ok {
		*s = v
	}
	return nil
}

// ActivityStatus labels a recent-activity feed entry.
type ActivityStatus int

const (
	StatusActive ActivityStatus = iota
	StatusWaiting
	StatusCompleted
)

var statusNames = map[ActivityStatus]string{
	StatusActive:    "Active",
	StatusWaiting:   "Waiting",
	StatusCompleted: "Completed",
}

func (s ActivityStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

var statusFromName = map[string]ActivityStatus{
	"Active":    StatusActive,
	"Waiting":   StatusWaiting,
	"Completed": StatusCompleted,
}

func (s ActivityStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ActivityStatus) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, ok := statusFromName[n]; ok {
		*s = v
	}
	return nil
}

// WaitingEntry is a user queued for a call or chat, not yet connected to an
// operator. WaitingSeconds grows by one on every tick with no upper bound.
type WaitingEntry struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Avatar         string `json:"avatar"`
	Plan           string `json:"plan"`
	WaitingSeconds int    `json:"waitingTime"`
}

// ChatMessage is immutable once created. Messages are owned by their session
// and kept in insertion order.
type ChatMessage struct {
	ID        int64  `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ActiveSession is a call or chat currently consuming allotted time.
// PlanDuration is fixed at creation; TimeRemaining only ever decreases.
// Room names the realtime-audio channel for calls and is empty for chats.
type ActiveSession struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Avatar        string        `json:"avatar"`
	Kind          Kind          `json:"kind"`
	PlanDuration  int           `json:"planDuration"`
	TimeRemaining int           `json:"timeRemaining"`
	Room          string        `json:"room,omitempty"`
	Messages      []ChatMessage `json:"messages,omitempty"`
}

// Clone returns a deep copy of the ActiveSession, duplicating the message
// slice so the copy can be mutated independently of the original.
func (s *ActiveSession) Clone() *ActiveSession {
	c := *s
	if len(s.Messages) > 0 {
		c.Messages = make([]ChatMessage, len(s.Messages))
		copy(c.Messages, s.Messages)
	}
	return &c
}

// HistoryEntry records a terminated session. Immutable.
type HistoryEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Plan     string `json:"plan"`
	Duration string `json:"duration"`
}

// Activity is a display-only projection for the dashboard's recent feed.
type Activity struct {
	ID        int64          `json:"id"`
	Avatar    string         `json:"avatar"`
	Name      string         `json:"name"`
	Plan      string         `json:"plan"`
	Status    ActivityStatus `json:"status"`
	Timestamp string         `json:"timestamp"`
}

// Stats is the aggregate block shown on the dashboard. ActiveCalls and
// ActiveChats always equal the sizes of their collections; WaitingQueue is a
// running counter adjusted by arrivals and connect/start.
type Stats struct {
	ActiveCalls   int             `json:"activeCalls"`
	ActiveChats   int             `json:"activeChats"`
	WaitingQueue  int             `json:"waitingQueue"`
	TodaysRevenue decimal.Decimal `json:"todaysRevenue"`
}

// Snapshot is a read-only copy of everything the registry holds. Mutating a
// snapshot never affects registry state.
type Snapshot struct {
	Stats          Stats            `json:"stats"`
	ActiveCalls    []*ActiveSession `json:"activeCalls"`
	WaitingCalls   []*WaitingEntry  `json:"waitingCalls"`
	CallHistory    []*HistoryEntry  `json:"callHistory"`
	ActiveChats    []*ActiveSession `json:"activeChats"`
	WaitingChats   []*WaitingEntry  `json:"waitingChats"`
	ChatHistory    []*HistoryEntry  `json:"chatHistory"`
	RecentActivity []*Activity      `json:"recentActivity"`
	Notification   string           `json:"notification,omitempty"`
}

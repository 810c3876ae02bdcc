package ws

import (
	"github.com/sakoon/console-backend/internal/session"
)

type MessageType string

const (
	MsgSnapshot     MessageType = "snapshot"
	MsgNotification MessageType = "notification"
	MsgError        MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Snapshot *session.Snapshot `json:"snapshot"`
}

type NotificationPayload struct {
	Message string `json:"message"`
}

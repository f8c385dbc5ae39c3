package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// Client to Server
	MessageTypeHeartbeat MessageType = "HEARTBEAT"

	// Server to Client
	MessageTypeSessionAlive   MessageType = "SESSION_ALIVE"
	MessageTypeSessionExpired MessageType = "SESSION_EXPIRED"
	MessageTypeSessionEnded   MessageType = "SESSION_ENDED"
	MessageTypeError          MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Server to Client payloads

type SessionAlivePayload struct {
	SessionID        string  `json:"sessionId"`
	RemainingSeconds float64 `json:"remainingSeconds"`
	UsedSeconds      float64 `json:"usedSeconds"`
}

type SessionExpiredPayload struct {
	Reason string `json:"reason"`
}

type SessionEndedPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

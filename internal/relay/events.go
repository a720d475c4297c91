package relay

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Client to server events.
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventTypingStart       = "typing-start"
	EventTypingStop        = "typing-stop"
)

// Server to client events.
const (
	EventUserTyping      = "user-typing"
	EventUserStopTyping  = "user-stop-typing"
	EventNewMessage      = "new-message"
	EventMessageReaction = "message-reaction"
)

const maxRoomIDLen = 128

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// TypingStart is the client payload of typing-start. UserID is accepted for
// wire compatibility and ignored; the connection's user is relayed.
type TypingStart struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
	UserName       string `json:"userName"`
}

type TypingStop struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
}

type UserTyping struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type UserStopTyping struct {
	UserID string `json:"userId"`
}

var errBadRoom = errors.New("bad room id")

// decodeRoomID accepts the room id either as a bare JSON string or as
// {"conversationId": "..."}.
func decodeRoomID(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	var id string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &id); err != nil {
			return "", err
		}
	} else {
		var obj struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", err
		}
		id = obj.ConversationID
	}
	if id == "" || len(id) > maxRoomIDLen {
		return "", errBadRoom
	}
	return id, nil
}

func encode(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: payload})
}

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChat            MessageType = "chat"
	TypePlayerJoin      MessageType = "player_join"
	TypePlayerLeave     MessageType = "player_leave"
	TypeChatResponse    MessageType = "chat_response"
	TypePlayerEvent     MessageType = "player_event"
	TypeServerBroadcast MessageType = "server_broadcast"
	TypeErrorEvent      MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// Chat is an inbound question from a connected game server.
type Chat struct {
	Type    MessageType `json:"type"`
	Player  string      `json:"player"`
	Message string      `json:"message"`
}

// PlayerJoin announces a player entering the game world.
type PlayerJoin struct {
	Type   MessageType `json:"type"`
	Player string      `json:"player"`
}

// PlayerLeave announces a player leaving the game world.
type PlayerLeave struct {
	Type   MessageType `json:"type"`
	Player string      `json:"player"`
}

// ChatResponse answers a Chat message on the same connection.
type ChatResponse struct {
	Type     MessageType `json:"type"`
	Player   string      `json:"player"`
	Response string      `json:"response"`
}

// PlayerEvent fans a join or leave announcement out to every connection.
type PlayerEvent struct {
	Type   MessageType `json:"type"`
	Event  string      `json:"event"`
	Player string      `json:"player"`
}

// ServerBroadcast fans an operator message out to every connection.
type ServerBroadcast struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ErrorEvent reports a failure back on the connection that caused it.
type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChat:
		var msg Chat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Player == "" || msg.Message == "" {
			return nil, errors.New("invalid chat")
		}
		return msg, nil
	case TypePlayerJoin:
		var msg PlayerJoin
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Player == "" {
			return nil, errors.New("invalid player_join")
		}
		return msg, nil
	case TypePlayerLeave:
		var msg PlayerLeave
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Player == "" {
			return nil, errors.New("invalid player_leave")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

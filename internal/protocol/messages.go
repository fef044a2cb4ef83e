// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
// Acknowledged operations carry a client-chosen "seq" that the server echoes
// back in the corresponding ack message.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoin           = "join"
	TypeRoomJoin       = "room:join"
	TypeRoomLeave      = "room:leave"
	TypeRoomMessage    = "room:message"
	TypePrivateMessage = "private_message"
	TypeMessageRead    = "message:read"
	TypeMessageReact   = "message:react"
	TypeTyping         = "typing"
	TypeGetRooms       = "get:rooms"
	TypeGetPrivate     = "get:private_history"
	TypeReport         = "report"
	TypePing           = "ping"
)

// Server -> Client message types. TypeRoomMessage, TypePrivateMessage,
// TypeMessageRead and TypeMessageReact are reused verbatim for server pushes.
const (
	TypeSessionCreated = "session_created"
	TypeAck            = "ack"
	TypeInit           = "init"
	TypeUserList       = "user_list"
	TypeUserJoined     = "user_joined"
	TypeUserLeft       = "user_left"
	TypeRoomList       = "room_list"
	TypeRoomInfo       = "room:info"
	TypeTypingUsers    = "typing_users"
	TypeRateLimited    = "rate_limited"
	TypeError          = "error"
	TypePong           = "pong"
)

// Ack failure reasons.
const (
	ReasonNoRoom         = "no-room"
	ReasonNoTarget       = "no-target"
	ReasonNotFound       = "not-found"
	ReasonBlocked        = "blocked"
	ReasonInvalidMessage = "invalid-message"
	ReasonRateLimited    = "rate-limited"
	ReasonUnavailable    = "unavailable"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Shared payload fragments
// ---------------------------------------------------------------------------

// FileRef is an opaque client-encoded file payload attached to a message.
// The server never inspects Data; encoding and decoding are client concerns.
type FileRef struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinMsg is sent once after connecting to declare a display name and enter
// the "global" room.
type JoinMsg struct {
	Type        string `json:"type"`
	Seq         int64  `json:"seq,omitempty"`
	DisplayName string `json:"display_name"`
}

// RoomJoinMsg switches the sender into the named room, creating it if needed.
type RoomJoinMsg struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq,omitempty"`
	Room string `json:"room"`
}

// RoomLeaveMsg returns the sender to the "global" room.
type RoomLeaveMsg struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq,omitempty"`
	Room string `json:"room"`
}

// RoomMessageMsg posts a text and/or file message to a room.
type RoomMessageMsg struct {
	Type string   `json:"type"`
	Seq  int64    `json:"seq,omitempty"`
	Room string   `json:"room"`
	Text string   `json:"text,omitempty"`
	File *FileRef `json:"file,omitempty"`
}

// PrivateMessageMsg sends a direct message to another connection id.
type PrivateMessageMsg struct {
	Type string   `json:"type"`
	Seq  int64    `json:"seq,omitempty"`
	To   string   `json:"to"`
	Text string   `json:"text,omitempty"`
	File *FileRef `json:"file,omitempty"`
}

// MessageReadMsg marks a room or private message as read by the sender.
// Exactly one of Room / PrivateWith addresses the owning log.
type MessageReadMsg struct {
	Type        string `json:"type"`
	Seq         int64  `json:"seq,omitempty"`
	Room        string `json:"room,omitempty"`
	PrivateWith string `json:"private_with,omitempty"`
	MessageID   string `json:"message_id"`
}

// MessageReactMsg adds a reaction to a room or private message.
type MessageReactMsg struct {
	Type        string `json:"type"`
	Seq         int64  `json:"seq,omitempty"`
	Room        string `json:"room,omitempty"`
	PrivateWith string `json:"private_with,omitempty"`
	MessageID   string `json:"message_id"`
	Reaction    string `json:"reaction"`
}

// TypingMsg signals that the sender started or stopped composing a message.
// Fire-and-forget: it carries no seq and receives no ack.
type TypingMsg struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

// GetRoomsMsg requests the current room-name list.
type GetRoomsMsg struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq,omitempty"`
}

// GetPrivateMsg requests the private conversation history with another user.
type GetPrivateMsg struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq,omitempty"`
	With string `json:"with"`
}

// ReportMsg files an abuse report against another user; the addressed log
// provides a message snapshot for moderator review.
type ReportMsg struct {
	Type        string `json:"type"`
	Seq         int64  `json:"seq,omitempty"`
	UserID      string `json:"user_id"`
	Room        string `json:"room,omitempty"`
	PrivateWith string `json:"private_with,omitempty"`
	Reason      string `json:"reason"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent by the server when a new connection is
// established, before the client joins.
type SessionCreatedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// AckMsg is the synchronous result of an acknowledged operation. Only the
// fields relevant to the acknowledged operation are populated.
type AckMsg struct {
	Type     string            `json:"type"`
	Seq      int64             `json:"seq"`
	Ok       bool              `json:"ok"`
	Reason   string            `json:"reason,omitempty"`
	UserID   string            `json:"user_id,omitempty"`
	ID       string            `json:"id,omitempty"`
	Messages []json.RawMessage `json:"messages,omitempty"`
	Rooms    []string          `json:"rooms,omitempty"`
}

// InitMsg delivers the joining user's id, the room-name list, and the
// "global" room history.
type InitMsg struct {
	Type     string            `json:"type"`
	UserID   string            `json:"user_id"`
	Rooms    []string          `json:"rooms"`
	Messages []json.RawMessage `json:"messages"`
}

// UserEntry is one user in a presence broadcast.
type UserEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Room        string `json:"room"`
}

// UserListMsg is the full presence snapshot, broadcast to everyone whenever
// it changes.
type UserListMsg struct {
	Type  string      `json:"type"`
	Users []UserEntry `json:"users"`
}

// UserJoinedMsg announces a new user to the "global" room.
type UserJoinedMsg struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// UserLeftMsg announces a disconnect to everyone.
type UserLeftMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RoomListMsg is the room-name list, broadcast whenever it may have changed.
type RoomListMsg struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms"`
}

// RoomInfoMsg is an informational notice delivered to a room's members.
type RoomInfoMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Msg  string `json:"msg"`
}

// ReadReceiptMsg announces that a message was read.
type ReadReceiptMsg struct {
	Type        string `json:"type"`
	MessageID   string `json:"message_id"`
	By          string `json:"by"`
	Room        string `json:"room,omitempty"`
	PrivateWith string `json:"private_with,omitempty"`
}

// ReactionMsg announces a message's updated reaction counts.
type ReactionMsg struct {
	Type        string         `json:"type"`
	MessageID   string         `json:"message_id"`
	Reactions   map[string]int `json:"reactions"`
	Room        string         `json:"room,omitempty"`
	PrivateWith string         `json:"private_with,omitempty"`
}

// TypingUsersMsg is the current list of typing display names for a room.
type TypingUsersMsg struct {
	Type  string   `json:"type"`
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// RateLimitedMsg is sent by the server when the client has been rate-limited.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// ErrorMsg is sent by the server to communicate an error condition outside
// the ack path (malformed payloads, unsupported types).
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoin:
		var m JoinMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRoomJoin:
		var m RoomJoinMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRoomLeave:
		var m RoomLeaveMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRoomMessage:
		var m RoomMessageMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePrivateMessage:
		var m PrivateMessageMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMessageRead:
		var m MessageReadMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMessageReact:
		var m MessageReactMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m TypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeGetRooms:
		var m GetRoomsMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeGetPrivate:
		var m GetPrivateMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeReport:
		var m ReportMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}

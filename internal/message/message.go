// Package message defines the chat message model shared by the room and
// private-conversation stores: message construction, identifier generation,
// canonical conversation keys, and the bounded in-memory log.
package message

import "time"

// From identifies the sender of a message.
type From struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// File is an opaque client-encoded file payload. The broker stores and
// forwards Data without ever decoding it.
type File struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Message is a single chat message. Exactly one of Room / To is set: Room for
// the room variant, To for the private variant. ReadBy accumulates reader ids
// on room messages; Read flips once on private messages. Both receipt state
// and Reactions only ever grow for the lifetime of the message.
type Message struct {
	ID        string         `json:"id"`
	From      From           `json:"from"`
	Room      string         `json:"room,omitempty"`
	To        string         `json:"to,omitempty"`
	Text      string         `json:"text,omitempty"`
	File      *File          `json:"file,omitempty"`
	Ts        int64          `json:"ts"` // unix milliseconds
	ReadBy    []string       `json:"read_by,omitempty"`
	Read      bool           `json:"read,omitempty"`
	Reactions map[string]int `json:"reactions"`
}

// NewRoomMessage constructs a room message with a fresh id and timestamp.
func NewRoomMessage(from From, room, text string, file *File) *Message {
	return &Message{
		ID:        NewID(),
		From:      from,
		Room:      room,
		Text:      text,
		File:      file,
		Ts:        time.Now().UnixMilli(),
		ReadBy:    []string{},
		Reactions: map[string]int{},
	}
}

// NewPrivateMessage constructs a private message with a fresh id and timestamp.
func NewPrivateMessage(from From, to, text string, file *File) *Message {
	return &Message{
		ID:        NewID(),
		From:      from,
		To:        to,
		Text:      text,
		File:      file,
		Ts:        time.Now().UnixMilli(),
		Reactions: map[string]int{},
	}
}

// MarkReadBy records a read receipt on a room message. It is idempotent per
// reader: a second call with the same reader id leaves ReadBy unchanged.
// Returns true if the receipt was newly recorded.
func (m *Message) MarkReadBy(readerID string) bool {
	for _, id := range m.ReadBy {
		if id == readerID {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, readerID)
	return true
}

// React increments the count for a reaction symbol, creating the entry on
// first use. Reactions are counts, not toggles: repeated calls keep
// incrementing.
func (m *Message) React(symbol string) {
	if m.Reactions == nil {
		m.Reactions = map[string]int{}
	}
	m.Reactions[symbol]++
}

// Package broker implements the message-routing engine: it validates inbound
// operations, mutates the session registry and the room, conversation, and
// typing stores, computes broadcast target sets, and acknowledges the
// initiating connection. The broker owns all authoritative chat state; the
// transport layer only moves frames.
package broker

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/parley/chat-server/internal/conversation"
	"github.com/parley/chat-server/internal/message"
	"github.com/parley/chat-server/internal/metrics"
	"github.com/parley/chat-server/internal/moderation"
	"github.com/parley/chat-server/internal/protocol"
	"github.com/parley/chat-server/internal/ratelimit"
	"github.com/parley/chat-server/internal/report"
	"github.com/parley/chat-server/internal/room"
	"github.com/parley/chat-server/internal/session"
	"github.com/parley/chat-server/internal/typing"
)

// Sender delivers an encoded server message to a single connection. The ws
// server implements it; tests substitute a recorder.
type Sender interface {
	Send(connID string, data []byte) error
}

// EventPublisher fans committed events out to external consumers. All
// publishing is fire-and-forget; errors are logged and never affect routing.
// messaging.NATSClient implements it.
type EventPublisher interface {
	PublishRoomEvent(room string, data []byte) error
	PublishPrivateEvent(data []byte) error
	PublishPresenceEvent(data []byte) error
}

// Config holds broker tunables.
type Config struct {
	LogBound  int           // messages retained per room/conversation (0 = default 500)
	TypingTTL time.Duration // typing entry expiry (0 = never)
}

// Broker is the routing engine. Construct one per process with New and hand
// it to the transport layer; tests construct isolated instances.
//
// Every operation acquires mu for its full duration, so mutations to shared
// state are serialized: for a given room or conversation, log order equals
// commit order, and recipients observe broadcasts in that order.
type Broker struct {
	mu sync.Mutex

	sessions *session.Registry
	rooms    *room.Store
	convos   *conversation.Store
	typing   *typing.Tracker

	sender  Sender
	filter  *moderation.Filter // nil disables content screening
	limiter *ratelimit.Limiter // nil *Limiter allows everything
	events  EventPublisher     // nil disables fan-out
	reports *report.Store      // nil rejects report operations
}

// New creates a Broker with fresh stores and the given sender.
func New(cfg Config, sender Sender) *Broker {
	b := &Broker{
		sessions: session.NewRegistry(),
		rooms:    room.NewStore(cfg.LogBound),
		convos:   conversation.NewStore(cfg.LogBound),
		typing:   typing.NewTracker(cfg.TypingTTL),
		sender:   sender,
	}
	// The global room exists from process start so the first join's init
	// payload always lists it.
	if _, err := b.rooms.Ensure(session.GlobalRoom); err != nil {
		panic("broker: cannot create global room: " + err.Error())
	}
	return b
}

// SetFilter enables content screening of room and private messages.
func (b *Broker) SetFilter(f *moderation.Filter) { b.filter = f }

// SetLimiter enables rate limiting of message sends and room joins.
func (b *Broker) SetLimiter(l *ratelimit.Limiter) { b.limiter = l }

// SetEventPublisher enables event fan-out after commits.
func (b *Broker) SetEventPublisher(p EventPublisher) { b.events = p }

// SetReportStore enables the abuse-report operation.
func (b *Broker) SetReportStore(s *report.Store) { b.reports = s }

// Sessions exposes the registry for the debug API and transport hooks.
func (b *Broker) Sessions() *session.Registry { return b.sessions }

// ---------------------------------------------------------------------------
// Send and broadcast primitives
// ---------------------------------------------------------------------------

// send writes one server message to one connection, logging failures.
// Delivery failures are not surfaced: a dead connection will be evicted by
// the transport's heartbeat.
func (b *Broker) send(connID string, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("broker: build %s message: %v", msgType, err)
		return
	}
	if err := b.sender.Send(connID, data); err != nil {
		log.Printf("broker: send %s to %s: %v", msgType, connID, err)
	}
}

// sendAck returns an operation result to the initiating connection. Acks are
// suppressed when the operation carried no seq.
func (b *Broker) sendAck(connID string, ack protocol.AckMsg) {
	if ack.Seq == 0 {
		return
	}
	b.send(connID, protocol.TypeAck, ack)
}

// broadcastAll sends a server message to every registered session.
func (b *Broker) broadcastAll(msgType string, payload interface{}) {
	sessions := b.sessions.All()
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("broker: build %s broadcast: %v", msgType, err)
		return
	}
	for _, s := range sessions {
		if err := b.sender.Send(s.ID, data); err != nil {
			log.Printf("broker: broadcast %s to %s: %v", msgType, s.ID, err)
		}
	}
	metrics.BroadcastFanout.Observe(float64(len(sessions)))
}

// broadcastRoom sends a server message to every session currently in the room.
func (b *Broker) broadcastRoom(roomName, msgType string, payload interface{}) {
	members := b.sessions.InRoom(roomName)
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("broker: build %s broadcast: %v", msgType, err)
		return
	}
	for _, id := range members {
		if err := b.sender.Send(id, data); err != nil {
			log.Printf("broker: broadcast %s to %s in %s: %v", msgType, id, roomName, err)
		}
	}
	metrics.BroadcastFanout.Observe(float64(len(members)))
}

// broadcastPair sends a server message to both participants of a private
// exchange. Sender and recipient can be the same connection (self-messaging),
// in which case it is delivered once.
func (b *Broker) broadcastPair(a, bID, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("broker: build %s pair message: %v", msgType, err)
		return
	}
	if err := b.sender.Send(a, data); err != nil {
		log.Printf("broker: send %s to %s: %v", msgType, a, err)
	}
	if bID != a {
		if err := b.sender.Send(bID, data); err != nil {
			log.Printf("broker: send %s to %s: %v", msgType, bID, err)
		}
	}
	metrics.BroadcastFanout.Observe(2)
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// marshalMessages encodes a message snapshot for an ack or init payload.
func marshalMessages(msgs []*message.Message) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			log.Printf("broker: marshal message %s: %v", m.ID, err)
			continue
		}
		out = append(out, raw)
	}
	return out
}

// userList builds the presence snapshot for a user_list broadcast.
func (b *Broker) userList() protocol.UserListMsg {
	sessions := b.sessions.All()
	users := make([]protocol.UserEntry, 0, len(sessions))
	for _, s := range sessions {
		users = append(users, protocol.UserEntry{
			ID:          s.ID,
			DisplayName: s.DisplayName,
			Room:        s.CurrentRoom,
		})
	}
	return protocol.UserListMsg{Users: users}
}

// publishPresence fans a presence event out, if a publisher is configured.
func (b *Broker) publishPresence(event string, connID, displayName string) {
	if b.events == nil {
		return
	}
	data, err := json.Marshal(struct {
		Event       string `json:"event"`
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name,omitempty"`
		Ts          int64  `json:"ts"`
	}{event, connID, displayName, time.Now().UnixMilli()})
	if err != nil {
		return
	}
	if err := b.events.PublishPresenceEvent(data); err != nil {
		log.Printf("broker: publish presence event: %v", err)
	}
}

// publishRoomMessage fans a committed room message out.
func (b *Broker) publishRoomMessage(roomName string, msg *message.Message) {
	if b.events == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := b.events.PublishRoomEvent(roomName, data); err != nil {
		log.Printf("broker: publish room event: %v", err)
	}
}

// publishPrivateMessage fans a committed private message out.
func (b *Broker) publishPrivateMessage(msg *message.Message) {
	if b.events == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := b.events.PublishPrivateEvent(data); err != nil {
		log.Printf("broker: publish private event: %v", err)
	}
}

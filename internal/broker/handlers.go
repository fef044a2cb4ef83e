package broker

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/parley/chat-server/internal/message"
	"github.com/parley/chat-server/internal/metrics"
	"github.com/parley/chat-server/internal/protocol"
	"github.com/parley/chat-server/internal/ratelimit"
	"github.com/parley/chat-server/internal/report"
	"github.com/parley/chat-server/internal/session"
)

const reportSnapshotSize = 10

// HandleJoin registers a display name for the connection, enters the "global"
// room, and delivers the init snapshot. Joining again replaces the previous
// identity.
func (b *Broker) HandleJoin(connID string, msg protocol.JoinMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := strings.TrimSpace(msg.DisplayName)
	if name == "" {
		name = "Anonymous"
	}

	s := b.sessions.Register(connID, name)
	metrics.SessionsTotal.Set(float64(b.sessions.Count()))

	b.broadcastAll(protocol.TypeUserList, b.userList())
	b.broadcastRoom(session.GlobalRoom, protocol.TypeUserJoined, protocol.UserJoinedMsg{
		ID:          s.ID,
		DisplayName: s.DisplayName,
	})

	b.send(connID, protocol.TypeInit, protocol.InitMsg{
		UserID:   s.ID,
		Rooms:    b.rooms.Names(),
		Messages: marshalMessages(b.rooms.Messages(session.GlobalRoom)),
	})
	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true, UserID: s.ID})

	b.publishPresence("joined", s.ID, s.DisplayName)
}

// HandleRoomJoin switches the sender into the named room, creating the room
// if it does not exist yet.
func (b *Broker) HandleRoomJoin(connID string, msg protocol.RoomJoinMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: room:join from unknown connection %s", connID)
		return
	}

	target := strings.TrimSpace(msg.Room)
	if target == "" {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNoRoom})
		return
	}

	if !b.allow(connID, ratelimit.RuleRoomJoin, msg.Seq) {
		return
	}

	prev := s.CurrentRoom
	if prev != target {
		// Stop showing the sender as typing in the room they left.
		users := b.typing.SetTyping(prev, connID, s.DisplayName, false)
		b.broadcastRoom(prev, protocol.TypeTypingUsers, protocol.TypingUsersMsg{Room: prev, Users: users})
	}

	if _, err := b.rooms.Ensure(target); err != nil {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNoRoom})
		return
	}
	b.sessions.SetRoom(connID, target)
	metrics.RoomsTotal.Set(float64(b.rooms.Count()))

	b.broadcastRoom(target, protocol.TypeRoomInfo, protocol.RoomInfoMsg{
		Room: target,
		Msg:  s.DisplayName + " joined " + target,
	})
	b.broadcastAll(protocol.TypeRoomList, protocol.RoomListMsg{Rooms: b.rooms.Names()})
	b.broadcastAll(protocol.TypeUserList, b.userList())

	b.sendAck(connID, protocol.AckMsg{
		Seq:      msg.Seq,
		Ok:       true,
		Messages: marshalMessages(b.rooms.Messages(target)),
	})
}

// HandleRoomLeave returns the sender to the "global" room.
func (b *Broker) HandleRoomLeave(connID string, msg protocol.RoomLeaveMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: room:leave from unknown connection %s", connID)
		return
	}

	target := strings.TrimSpace(msg.Room)
	if target == "" {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNoRoom})
		return
	}

	users := b.typing.SetTyping(target, connID, s.DisplayName, false)
	b.broadcastRoom(target, protocol.TypeTypingUsers, protocol.TypingUsersMsg{Room: target, Users: users})

	b.sessions.SetRoom(connID, session.GlobalRoom)
	b.broadcastAll(protocol.TypeRoomList, protocol.RoomListMsg{Rooms: b.rooms.Names()})
	b.broadcastAll(protocol.TypeUserList, b.userList())
	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true})
}

// HandleRoomMessage appends a message to a room's log and broadcasts it to
// the room's current members. The room defaults to the sender's current room
// and is created lazily if it does not exist.
func (b *Broker) HandleRoomMessage(connID string, msg protocol.RoomMessageMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: room:message from unknown connection %s", connID)
		return
	}

	target := strings.TrimSpace(msg.Room)
	if target == "" {
		target = s.CurrentRoom
	}
	if target == "" {
		target = session.GlobalRoom
	}

	if !b.allow(connID, ratelimit.RuleMessage, msg.Seq) {
		return
	}
	if !b.screen(connID, msg.Text, msg.File, msg.Seq) {
		return
	}

	m := message.NewRoomMessage(
		message.From{UserID: s.ID, DisplayName: s.DisplayName},
		target, msg.Text, fileFromRef(msg.File),
	)
	if err := b.rooms.Append(target, m); err != nil {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNoRoom})
		return
	}
	metrics.RoomsTotal.Set(float64(b.rooms.Count()))
	metrics.MessagesTotal.WithLabelValues("room").Inc()

	b.broadcastRoom(target, protocol.TypeRoomMessage, m)
	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true, ID: m.ID})

	b.publishRoomMessage(target, m)
}

// HandlePrivateMessage appends a message to the conversation log for the
// sender/recipient pair and delivers it to both connections.
func (b *Broker) HandlePrivateMessage(connID string, msg protocol.PrivateMessageMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: private_message from unknown connection %s", connID)
		return
	}

	to := strings.TrimSpace(msg.To)
	if to == "" {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNoTarget})
		return
	}

	if !b.allow(connID, ratelimit.RuleMessage, msg.Seq) {
		return
	}
	if !b.screen(connID, msg.Text, msg.File, msg.Seq) {
		return
	}

	m := message.NewPrivateMessage(
		message.From{UserID: s.ID, DisplayName: s.DisplayName},
		to, msg.Text, fileFromRef(msg.File),
	)
	b.convos.Append(s.ID, to, m)
	metrics.MessagesTotal.WithLabelValues("private").Inc()

	b.broadcastPair(connID, to, protocol.TypePrivateMessage, m)
	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true, ID: m.ID})

	b.publishPrivateMessage(m)
}

// HandleRead records a read receipt on a room or private message and
// broadcasts the updated receipt state. Re-reading an already-read message is
// a no-op on state but still acks ok.
func (b *Broker) HandleRead(connID string, msg protocol.MessageReadMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: message:read from unknown connection %s", connID)
		return
	}

	if with := strings.TrimSpace(msg.PrivateWith); with != "" {
		m := b.convos.Find(s.ID, with, msg.MessageID)
		if m == nil {
			b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNotFound})
			return
		}
		m.Read = true
		metrics.ReceiptsTotal.WithLabelValues("read").Inc()
		b.broadcastPair(connID, with, protocol.TypeMessageRead, protocol.ReadReceiptMsg{
			MessageID:   m.ID,
			By:          s.ID,
			PrivateWith: with,
		})
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true})
		return
	}

	target := strings.TrimSpace(msg.Room)
	if target == "" {
		target = s.CurrentRoom
	}
	if target == "" {
		target = session.GlobalRoom
	}
	m := b.rooms.Find(target, msg.MessageID)
	if m == nil {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNotFound})
		return
	}
	if m.MarkReadBy(s.ID) {
		metrics.ReceiptsTotal.WithLabelValues("read").Inc()
	}
	b.broadcastRoom(target, protocol.TypeMessageRead, protocol.ReadReceiptMsg{
		MessageID: m.ID,
		By:        s.ID,
		Room:      target,
	})
	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true})
}

// HandleReact increments a reaction counter on a room or private message and
// broadcasts the updated counts. Repeated reactions keep counting up.
func (b *Broker) HandleReact(connID string, msg protocol.MessageReactMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: message:react from unknown connection %s", connID)
		return
	}
	if msg.Reaction == "" {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNotFound})
		return
	}

	if with := strings.TrimSpace(msg.PrivateWith); with != "" {
		m := b.convos.Find(s.ID, with, msg.MessageID)
		if m == nil {
			b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNotFound})
			return
		}
		m.React(msg.Reaction)
		metrics.ReceiptsTotal.WithLabelValues("react").Inc()
		b.broadcastPair(connID, with, protocol.TypeMessageReact, protocol.ReactionMsg{
			MessageID:   m.ID,
			Reactions:   copyReactions(m.Reactions),
			PrivateWith: with,
		})
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true})
		return
	}

	target := strings.TrimSpace(msg.Room)
	if target == "" {
		target = s.CurrentRoom
	}
	if target == "" {
		target = session.GlobalRoom
	}
	m := b.rooms.Find(target, msg.MessageID)
	if m == nil {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNotFound})
		return
	}
	m.React(msg.Reaction)
	metrics.ReceiptsTotal.WithLabelValues("react").Inc()
	b.broadcastRoom(target, protocol.TypeMessageReact, protocol.ReactionMsg{
		MessageID: m.ID,
		Reactions: copyReactions(m.Reactions),
		Room:      target,
	})
	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true})
}

// HandleTyping updates the sender's typing state for a room and broadcasts
// the room's typing list. Fire-and-forget: no ack, and failures only log.
func (b *Broker) HandleTyping(connID string, msg protocol.TypingMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		return
	}

	target := strings.TrimSpace(msg.Room)
	if target == "" {
		target = s.CurrentRoom
	}
	if target == "" {
		target = session.GlobalRoom
	}

	users := b.typing.SetTyping(target, connID, s.DisplayName, msg.IsTyping)
	b.broadcastRoom(target, protocol.TypeTypingUsers, protocol.TypingUsersMsg{
		Room:  target,
		Users: users,
	})
}

// HandleGetRooms returns the current room-name list.
func (b *Broker) HandleGetRooms(connID string, msg protocol.GetRoomsMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true, Rooms: b.rooms.Names()})
}

// HandleGetPrivate returns the sender's conversation history with another
// user. Either participant sees the same log; an untouched pair yields an
// empty list.
func (b *Broker) HandleGetPrivate(connID string, msg protocol.GetPrivateMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: get:private_history from unknown connection %s", connID)
		return
	}

	with := strings.TrimSpace(msg.With)
	if with == "" {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNoTarget})
		return
	}

	b.sendAck(connID, protocol.AckMsg{
		Seq:      msg.Seq,
		Ok:       true,
		Messages: marshalMessages(b.convos.Messages(s.ID, with)),
	})
}

// HandleReport files an abuse report with a snapshot of the addressed log.
// Requires a configured report store.
func (b *Broker) HandleReport(connID string, msg protocol.ReportMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Lookup(connID)
	if s == nil {
		log.Printf("broker: report from unknown connection %s", connID)
		return
	}
	if b.reports == nil {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonUnavailable})
		return
	}
	if strings.TrimSpace(msg.UserID) == "" {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonNoTarget})
		return
	}
	if !report.ValidReason(msg.Reason) {
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonInvalidMessage})
		return
	}

	var (
		reportCtx string
		snapshot  []*message.Message
	)
	if with := strings.TrimSpace(msg.PrivateWith); with != "" {
		reportCtx = "private:" + with
		snapshot = tail(b.convos.Messages(s.ID, with), reportSnapshotSize)
	} else {
		target := strings.TrimSpace(msg.Room)
		if target == "" {
			target = s.CurrentRoom
		}
		reportCtx = "room:" + target
		snapshot = tail(b.rooms.Messages(target), reportSnapshotSize)
	}

	entries := make([]report.MessageEntry, 0, len(snapshot))
	for _, m := range snapshot {
		entries = append(entries, report.MessageEntry{
			From: m.From.UserID,
			Text: m.Text,
			Ts:   m.Ts,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := b.reports.Create(ctx, &report.Report{
		ReporterID: s.ID,
		ReportedID: msg.UserID,
		Context:    reportCtx,
		Reason:     msg.Reason,
		Messages:   entries,
	})
	if err != nil {
		log.Printf("broker: store report from %s: %v", s.ID, err)
		b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: false, Reason: protocol.ReasonUnavailable})
		return
	}
	b.sendAck(connID, protocol.AckMsg{Seq: msg.Seq, Ok: true})
}

// HandleDisconnect tears down a connection's session: the registry entry and
// all typing state are removed, and presence updates go out to everyone.
// Unknown connections (never joined) disconnect silently.
func (b *Broker) HandleDisconnect(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessions.Remove(connID)
	if s == nil {
		return
	}
	metrics.SessionsTotal.Set(float64(b.sessions.Count()))

	for _, r := range b.typing.ClearConnection(connID) {
		b.broadcastRoom(r, protocol.TypeTypingUsers, protocol.TypingUsersMsg{
			Room:  r,
			Users: b.typing.Snapshot(r),
		})
	}

	b.broadcastAll(protocol.TypeUserLeft, protocol.UserLeftMsg{ID: s.ID})
	b.broadcastAll(protocol.TypeUserList, b.userList())

	b.publishPresence("left", s.ID, s.DisplayName)
}

// ---------------------------------------------------------------------------
// Guards
// ---------------------------------------------------------------------------

// allow applies a rate-limit rule. On a limited request it acks the failure
// and pushes a rate_limited notice; the operation must not proceed.
func (b *Broker) allow(connID string, rule ratelimit.Rule, seq int64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	ok, err := b.limiter.Allow(ctx, connID, rule)
	if err != nil {
		// Fail open: the limiter already logged the Redis error.
		return true
	}
	if ok {
		return true
	}
	metrics.MessagesTotal.WithLabelValues("rate_limited").Inc()
	b.send(connID, protocol.TypeRateLimited, protocol.RateLimitedMsg{
		RetryAfter: b.limiter.RetryAfter(ctx, connID, rule),
	})
	b.sendAck(connID, protocol.AckMsg{Seq: seq, Ok: false, Reason: protocol.ReasonRateLimited})
	return false
}

// screen validates and content-checks an outbound message, acking the failure
// itself. Returns true when the message may be stored and delivered.
func (b *Broker) screen(connID, text string, file *protocol.FileRef, seq int64) bool {
	if text == "" && file == nil {
		b.sendAck(connID, protocol.AckMsg{Seq: seq, Ok: false, Reason: protocol.ReasonInvalidMessage})
		return false
	}
	if err := message.ValidateText(text); err != nil {
		b.sendAck(connID, protocol.AckMsg{Seq: seq, Ok: false, Reason: protocol.ReasonInvalidMessage})
		return false
	}
	if err := message.ValidateFile(fileFromRef(file)); err != nil {
		b.sendAck(connID, protocol.AckMsg{Seq: seq, Ok: false, Reason: protocol.ReasonInvalidMessage})
		return false
	}
	if b.filter != nil {
		if r := b.filter.Check(text); r.Blocked {
			log.Printf("broker: blocked message from %s (%s)", connID, r.Reason)
			metrics.MessagesTotal.WithLabelValues("blocked").Inc()
			b.sendAck(connID, protocol.AckMsg{Seq: seq, Ok: false, Reason: protocol.ReasonBlocked})
			return false
		}
	}
	return true
}

func fileFromRef(f *protocol.FileRef) *message.File {
	if f == nil {
		return nil
	}
	return &message.File{Name: f.Name, Data: f.Data}
}

func copyReactions(src map[string]int) map[string]int {
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func tail(msgs []*message.Message, n int) []*message.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

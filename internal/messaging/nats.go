// Package messaging provides a NATS client wrapper used to fan chat events
// out to external consumers (archivers, moderation dashboards). Publishing is
// strictly observational: the broker's in-memory state stays authoritative
// and nothing in the delivery path waits on NATS.
package messaging

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns for published chat events.
const (
	SubjectRoomPrefix = "chat.room."   // + <room name>
	SubjectPrivate    = "chat.private" // private message events (ids only, no pair subjects)
	SubjectPresence   = "chat.presence"
)

// NATSClient wraps the NATS connection with helper methods for publishing.
type NATSClient struct {
	conn *nats.Conn
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "parley",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{conn: nc}, nil
}

// PublishRoomEvent publishes a committed room event to chat.room.<room>.
func (c *NATSClient) PublishRoomEvent(room string, data []byte) error {
	return c.conn.Publish(SubjectRoomPrefix+room, data)
}

// PublishPrivateEvent publishes a committed private-message event. Events go
// to a single shared subject; payloads reference participants by connection
// id only.
func (c *NATSClient) PublishPrivateEvent(data []byte) error {
	return c.conn.Publish(SubjectPrivate, data)
}

// PublishPresenceEvent publishes a join/leave/presence-change event.
func (c *NATSClient) PublishPresenceEvent(data []byte) error {
	return c.conn.Publish(SubjectPresence, data)
}

// Close drains and closes the NATS connection.
func (c *NATSClient) Close() {
	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}
	log.Printf("[nats] client closed")
}

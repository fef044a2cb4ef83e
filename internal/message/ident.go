package message

import (
	"crypto/rand"
	"strings"
)

// base36 is the alphabet used for message identifiers.
const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// idLength is the number of characters in a message identifier. 36^8 distinct
// values keeps the collision probability negligible for a single process
// lifetime; ids are not meant to be unguessable.
const idLength = 8

// NewID returns a random 8-character base-36 message identifier.
func NewID() string {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails if the OS entropy source is broken, in
		// which case there is nothing sensible to fall back to.
		panic("message: crypto/rand unavailable: " + err.Error())
	}

	var b strings.Builder
	b.Grow(idLength)
	for _, c := range buf {
		b.WriteByte(base36[int(c)%len(base36)])
	}
	return b.String()
}

// ConversationKey is the canonical key for an unordered pair of connection
// ids. (A,B) and (B,A) yield the same key.
type ConversationKey string

// NewConversationKey returns the canonical key for the pair: the two ids in
// lexicographic order, joined with "|".
func NewConversationKey(a, b string) ConversationKey {
	if b < a {
		a, b = b, a
	}
	return ConversationKey(a + "|" + b)
}

package entities

import (
	"strings"
	"time"
)

// TempIDPrefix marks identifiers generated locally for provisional messages
const TempIDPrefix = "temp-"

// Message is a direct message between two users
type Message struct {
	ID         string    `json:"id" db:"id"`
	SenderID   string    `json:"sender_id" db:"sender_id"`
	ReceiverID string    `json:"receiver_id" db:"receiver_id"`
	Body       string    `json:"body" db:"body"`
	IsRead     bool      `json:"is_read" db:"is_read"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`

	// Pending is set on provisional entries that have not been acknowledged
	// by the data service. It is never stored.
	Pending bool `json:"pending,omitempty" db:"-"`
}

// IsTemporary reports whether m carries a locally generated identifier
func (m *Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Between reports whether m belongs to the conversation of a and b
func (m *Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Clone returns a copy of m
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

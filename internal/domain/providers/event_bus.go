package providers

import (
	"context"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// ChangeFeed delivers row-level change events to scoped subscribers
type ChangeFeed interface {
	// Publish publishes an event to every subscription whose scope matches it
	Publish(ctx context.Context, event *entities.ChangeEvent) error

	// Subscribe opens a subscription for scope. The subscription ends when
	// Close is called or ctx is done.
	Subscribe(ctx context.Context, scope Scope) (Subscription, error)

	// Close closes the feed and all subscriptions
	Close() error
}

// Subscription is a handle on an open scoped subscription
type Subscription interface {
	// Events delivers matching events. It is closed once the subscription ends.
	Events() <-chan *entities.ChangeEvent

	// Close releases the subscription. It is safe to call more than once;
	// no event is delivered after it returns.
	Close() error
}

// Scope selects the events a subscription receives
type Scope struct {
	// Name identifies the scope in logs
	Name string

	// Tables the scope listens to
	Tables []string

	// Filter further narrows events; nil accepts all events on Tables
	Filter func(*entities.ChangeEvent) bool
}

// Matches reports whether event belongs to the scope
func (s Scope) Matches(event *entities.ChangeEvent) bool {
	if event == nil {
		return false
	}
	found := false
	for _, t := range s.Tables {
		if t == event.Table {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return s.Filter == nil || s.Filter(event)
}

// EventChannelPrefix prefixes the per-table channel names of the feed
const EventChannelPrefix = "changes:"

// GetTableChannel returns the channel name carrying a table's changes
func GetTableChannel(table string) string {
	return EventChannelPrefix + table
}

// TableScope listens to every change on the given tables
func TableScope(name string, tables ...string) Scope {
	return Scope{Name: name, Tables: tables}
}

// ReceiverScope listens to message changes addressed to userID
func ReceiverScope(userID string) Scope {
	return Scope{
		Name:   "unread:" + userID,
		Tables: []string{entities.TableMessages},
		Filter: func(e *entities.ChangeEvent) bool {
			return e.Field("receiver_id") == userID
		},
	}
}

// ConversationScope listens to message changes between a and b in either direction
func ConversationScope(a, b string) Scope {
	return Scope{
		Name:   "chat:" + a + ":" + b,
		Tables: []string{entities.TableMessages},
		Filter: func(e *entities.ChangeEvent) bool {
			sender, receiver := e.Field("sender_id"), e.Field("receiver_id")
			return (sender == a && receiver == b) || (sender == b && receiver == a)
		},
	}
}

package services

import (
	"sync"

	"github.com/Rakhazzan/SINTESIS/internal/application/chat"
)

type conversationKey struct {
	self string
	peer string
}

// Sessions tracks the conversations currently mounted so that a send can go
// through the optimistic layer of the view the user is looking at
type Sessions struct {
	mu      sync.Mutex
	mounted map[conversationKey][]*chat.Conversation
}

// NewSessions creates an empty registry
func NewSessions() *Sessions {
	return &Sessions{mounted: make(map[conversationKey][]*chat.Conversation)}
}

// Mount registers conv until the returned function is called
func (s *Sessions) Mount(conv *chat.Conversation) (unmount func()) {
	key := conversationKey{self: conv.Self(), peer: conv.Peer()}

	s.mu.Lock()
	s.mounted[key] = append(s.mounted[key], conv)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			list := s.mounted[key]
			for i, c := range list {
				if c == conv {
					list = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(list) == 0 {
				delete(s.mounted, key)
			} else {
				s.mounted[key] = list
			}
		})
	}
}

// Lookup returns the most recently mounted conversation of self with peer
func (s *Sessions) Lookup(self, peer string) (*chat.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.mounted[conversationKey{self: self, peer: peer}]
	if len(list) == 0 {
		return nil, false
	}
	return list[len(list)-1], true
}

// Len returns the number of mounted conversations
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, list := range s.mounted {
		n += len(list)
	}
	return n
}

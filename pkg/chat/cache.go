package chat

import (
	"sync"
)

// Listener is notified after a session's message collection changes
type Listener func(sessionID string)

// Cache is the authoritative ordered collection of messages per session.
// It is mutated by user actions and by streamed events; every mutation
// publishes a fresh slice so previously returned snapshots stay valid.
type Cache struct {
	mu        sync.RWMutex
	sessions  map[string][]Message
	listeners []Listener
}

// NewCache creates an empty message cache
func NewCache() *Cache {
	return &Cache{
		sessions: make(map[string][]Message),
	}
}

// Subscribe registers a listener invoked after every mutation
func (c *Cache) Subscribe(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Messages returns a snapshot of one session's ordered messages
func (c *Cache) Messages(sessionID string) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := c.sessions[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Get returns one message by id
func (c *Cache) Get(sessionID, messageID string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.sessions[sessionID] {
		if m.ID == messageID {
			return m, true
		}
	}
	return Message{}, false
}

// Seed replaces a session's collection, used when loading from the server
func (c *Cache) Seed(sessionID string, msgs []Message) {
	c.mu.Lock()
	replaced := make([]Message, len(msgs))
	copy(replaced, msgs)
	c.sessions[sessionID] = replaced
	c.mu.Unlock()

	c.notify(sessionID)
}

// Append adds a message to the end of a session's collection
func (c *Cache) Append(sessionID string, msg Message) {
	c.mu.Lock()
	current := c.sessions[sessionID]
	next := make([]Message, len(current)+1)
	copy(next, current)
	next[len(current)] = msg
	c.sessions[sessionID] = next
	c.mu.Unlock()

	c.notify(sessionID)
}

// Update applies fn to the message with the given id. Updating an id
// that is no longer present is a no-op; it never re-creates a message.
func (c *Cache) Update(sessionID, messageID string, fn func(Message) Message) bool {
	c.mu.Lock()
	current := c.sessions[sessionID]
	found := false
	next := make([]Message, len(current))
	for i, m := range current {
		if m.ID == messageID {
			m = fn(m)
			found = true
		}
		next[i] = m
	}
	if found {
		c.sessions[sessionID] = next
	}
	c.mu.Unlock()

	if found {
		c.notify(sessionID)
	}
	return found
}

// AppendText concatenates a streamed content chunk onto a message's text
func (c *Cache) AppendText(sessionID, messageID, chunk string) bool {
	return c.Update(sessionID, messageID, func(m Message) Message {
		m.Text += chunk
		return m
	})
}

// Remove deletes a message from a session's collection
func (c *Cache) Remove(sessionID, messageID string) {
	c.mu.Lock()
	current := c.sessions[sessionID]
	next := make([]Message, 0, len(current))
	for _, m := range current {
		if m.ID != messageID {
			next = append(next, m)
		}
	}
	c.sessions[sessionID] = next
	c.mu.Unlock()

	c.notify(sessionID)
}

// Clear drops a session's collection entirely
func (c *Cache) Clear(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	c.notify(sessionID)
}

// notify runs outside the mutation lock so listeners may read back
func (c *Cache) notify(sessionID string) {
	c.mu.RLock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(sessionID)
	}
}

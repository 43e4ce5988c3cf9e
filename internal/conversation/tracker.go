package conversation

import "sync"

// Mode is the step of the multi-turn subscription dialogue a user is in
type Mode int

const (
	// None means idle or browsing menus; free text is not captured
	None Mode = iota
	// Adding captures free text as a topic to subscribe to
	Adding
	// Removing captures free text as topics to unsubscribe from
	Removing
)

func (m Mode) String() string {
	switch m {
	case Adding:
		return "adding"
	case Removing:
		return "removing"
	default:
		return "none"
	}
}

// Tracker holds the dialogue mode of every user in memory.
// Unseen users are in None. Modes never expire.
type Tracker struct {
	mu    sync.RWMutex
	modes map[string]Mode
}

// NewTracker creates an empty mode tracker
func NewTracker() *Tracker {
	return &Tracker{modes: make(map[string]Mode)}
}

// Get returns the current mode of a user
func (t *Tracker) Get(userID string) Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modes[userID]
}

// Set moves a user to mode
func (t *Tracker) Set(userID string, mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if mode == None {
		delete(t.modes, userID)
		return
	}
	t.modes[userID] = mode
}

// Reset returns a user to None
func (t *Tracker) Reset(userID string) {
	t.Set(userID, None)
}

// Len returns the number of users in a non-idle mode
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.modes)
}

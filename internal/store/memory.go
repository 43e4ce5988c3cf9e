package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is a process-local Store used with DB_DRIVER=memory and in tests.
// Subscriptions keep insertion order.
type MemoryStore struct {
	mu            sync.RWMutex
	subscriptions map[string][]string
	pushTopics    map[string]map[string]bool
	pushTimes     map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscriptions: make(map[string][]string),
		pushTopics:    make(map[string]map[string]bool),
		pushTimes:     make(map[string]string),
	}
}

func (m *MemoryStore) Init(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) ListSubscriptions(ctx context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.subscriptions[userID]), nil
}

func (m *MemoryStore) AddSubscription(ctx context.Context, userID, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Contains(m.subscriptions[userID], topic) {
		return nil
	}
	m.subscriptions[userID] = append(m.subscriptions[userID], topic)
	return nil
}

func (m *MemoryStore) RemoveSubscription(ctx context.Context, userID, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := slices.DeleteFunc(m.subscriptions[userID], func(t string) bool { return t == topic })
	if len(topics) == 0 {
		delete(m.subscriptions, userID)
		return nil
	}
	m.subscriptions[userID] = topics
	return nil
}

func (m *MemoryStore) ListPushTopics(ctx context.Context, userID string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	choices := make(map[string]bool, len(m.pushTopics[userID]))
	for topic, enabled := range m.pushTopics[userID] {
		choices[topic] = enabled
	}
	return choices, nil
}

func (m *MemoryStore) SetPushChoice(ctx context.Context, userID, topic string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushTopics[userID] == nil {
		m.pushTopics[userID] = make(map[string]bool)
	}
	m.pushTopics[userID][topic] = enabled
	return nil
}

func (m *MemoryStore) SetPushTime(ctx context.Context, userID string, pushTime *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pushTime == nil {
		delete(m.pushTimes, userID)
		return nil
	}
	m.pushTimes[userID] = *pushTime
	return nil
}

func (m *MemoryStore) GetPushTime(ctx context.Context, userID string) (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.pushTimes[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryStore) ListAllPushSchedules(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schedules := make(map[string]string, len(m.pushTimes))
	for userID, t := range m.pushTimes {
		schedules[userID] = t
	}
	return schedules, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

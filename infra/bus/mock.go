package bus

import (
	"fmt"
	"sync"

	corebus "github.com/gridsense/tapctl/core/bus"
)

// Mock is an in-memory bus used in tests. Handlers receive published
// messages synchronously on exact topic matches.
type Mock struct {
	mu          sync.Mutex
	handlers    map[string][]*mockSubscription
	published   map[string][][]byte
	FailPublish bool
	FailSub     bool
}

// NewMock creates an empty mock bus.
func NewMock() *Mock {
	return &Mock{
		handlers:  make(map[string][]*mockSubscription),
		published: make(map[string][][]byte),
	}
}

type mockSubscription struct {
	bus     *Mock
	topic   string
	handler corebus.Handler
}

func (s *mockSubscription) Topic() string { return s.topic }

func (s *mockSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.handlers[s.topic]
	for i, sub := range subs {
		if sub == s {
			s.bus.handlers[s.topic] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("not subscribed to %s", s.topic)
}

func (m *Mock) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	if m.FailPublish {
		m.mu.Unlock()
		return fmt.Errorf("publish failed")
	}
	m.published[topic] = append(m.published[topic], payload)
	subs := append([]*mockSubscription(nil), m.handlers[topic]...)
	m.mu.Unlock()
	for _, s := range subs {
		s.handler(topic, payload)
	}
	return nil
}

func (m *Mock) Subscribe(topic string, h corebus.Handler) (corebus.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSub {
		return nil, fmt.Errorf("subscribe failed")
	}
	sub := &mockSubscription{bus: m, topic: topic, handler: h}
	m.handlers[topic] = append(m.handlers[topic], sub)
	return sub, nil
}

// Deliver injects a message as if it arrived from the broker.
func (m *Mock) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	subs := append([]*mockSubscription(nil), m.handlers[topic]...)
	m.mu.Unlock()
	for _, s := range subs {
		s.handler(topic, payload)
	}
}

// Published returns the payloads published on the topic.
func (m *Mock) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.published[topic]))
	copy(out, m.published[topic])
	return out
}

// SubscriberCount returns the number of live subscriptions on the topic.
func (m *Mock) SubscriberCount(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers[topic])
}

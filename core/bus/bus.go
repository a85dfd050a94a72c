// Package bus defines the topic-addressed message transport used to reach
// devices. The broker is external; implementations live under infra.
package bus

import "errors"

// ErrNotConnected is returned when the transport is not usable.
var ErrNotConnected = errors.New("bus not connected")

// Handler receives messages delivered on a subscribed topic.
type Handler func(topic string, payload []byte)

// Subscription is a live topic subscription. Unsubscribe must be called on
// every exit path of the consuming operation; leaked handlers accumulate over
// the process lifetime.
type Subscription interface {
	Topic() string
	Unsubscribe() error
}

// Bus publishes to and subscribes on a topic-addressed transport.
type Bus interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, h Handler) (Subscription, error)
}

package mq

import (
	"context"
	"errors"

	"github.com/cozy-creator/influencer-studio/internal/config"
)

var (
	ErrTopicNotExists = errors.New("topic does not exist")
	ErrQueueFull      = errors.New("queue is full")
	ErrQueueClosed    = errors.New("queue closed")
	ErrTopicClosed    = errors.New("topic closed")
)

const (
	MQTypeInMemory = "inmemory"
	MQTypePulsar   = "pulsar"
)

const DefaultInMemorySize = 256

// Message is one delivery from a topic. handle is the backend's own message
// value, needed to acknowledge it.
type Message struct {
	Topic   string
	Payload []byte
	handle  any
}

type MQ interface {
	Type() string
	Publish(ctx context.Context, topic string, payload []byte) error
	Receive(ctx context.Context, topic string) (*Message, error)
	Ack(msg *Message) error
	CloseTopic(topic string) error
	Close() error
}

// NewMQ returns a Pulsar backed queue when a broker URL is configured and an
// in-process queue otherwise.
func NewMQ(cfg *config.Config) (MQ, error) {
	if cfg != nil && cfg.Pulsar.URL != "" {
		return NewPulsarMQ(cfg.Pulsar)
	}
	return NewInMemoryMQ(DefaultInMemorySize)
}

package mq

import (
	"context"
	"sync"
)

type InMemoryMQ struct {
	maxSize   int
	topics    sync.Map
	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewInMemoryMQ(maxSize int) (*InMemoryMQ, error) {
	if maxSize <= 0 {
		maxSize = DefaultInMemorySize
	}

	return &InMemoryMQ{
		maxSize: maxSize,
		closeCh: make(chan struct{}),
	}, nil
}

func (q *InMemoryMQ) Type() string {
	return MQTypeInMemory
}

// memoryTopic's closed channel is signalled by CloseTopic; ch itself is
// never closed.
type memoryTopic struct {
	ch        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func (q *InMemoryMQ) topic(name string) *memoryTopic {
	value, _ := q.topics.LoadOrStore(name, &memoryTopic{
		ch:     make(chan []byte, q.maxSize),
		closed: make(chan struct{}),
	})
	return value.(*memoryTopic)
}

func (q *InMemoryMQ) Publish(ctx context.Context, topic string, payload []byte) error {
	t := q.topic(topic)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeCh:
		return ErrQueueClosed
	case <-t.closed:
		return ErrTopicClosed
	default:
	}

	select {
	case t.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

// Receive drains whatever a closed topic still buffers before reporting
// ErrTopicClosed.
func (q *InMemoryMQ) Receive(ctx context.Context, topic string) (*Message, error) {
	t := q.topic(topic)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closeCh:
		return nil, ErrQueueClosed
	case data := <-t.ch:
		return &Message{Topic: topic, Payload: data}, nil
	case <-t.closed:
		select {
		case data := <-t.ch:
			return &Message{Topic: topic, Payload: data}, nil
		default:
			q.topics.CompareAndDelete(topic, t)
			return nil, ErrTopicClosed
		}
	}
}

// Ack is a no-op; in-memory deliveries are consumed on receive.
func (q *InMemoryMQ) Ack(*Message) error {
	return nil
}

func (q *InMemoryMQ) CloseTopic(topic string) error {
	value, ok := q.topics.Load(topic)
	if !ok {
		return ErrTopicNotExists
	}

	t := value.(*memoryTopic)
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (q *InMemoryMQ) Close() error {
	q.closeOnce.Do(func() { close(q.closeCh) })
	return nil
}

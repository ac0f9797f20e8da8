package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/cozy-creator/influencer-studio/internal/config"
)

type PulsarMQ struct {
	client    pulsar.Client
	mu        sync.Mutex
	producers map[string]pulsar.Producer
	consumers map[string]pulsar.Consumer
}

func NewPulsarMQ(cfg config.PulsarConfig) (*PulsarMQ, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: cfg.URL})
	if err != nil {
		return nil, fmt.Errorf("failed to create pulsar client: %w", err)
	}

	return &PulsarMQ{
		client:    client,
		producers: make(map[string]pulsar.Producer),
		consumers: make(map[string]pulsar.Consumer),
	}, nil
}

func (mq *PulsarMQ) Type() string {
	return MQTypePulsar
}

func (mq *PulsarMQ) Publish(ctx context.Context, topic string, payload []byte) error {
	producer, err := mq.getProducer(topic)
	if err != nil {
		return err
	}

	if _, err := producer.Send(ctx, &pulsar.ProducerMessage{Payload: payload}); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (mq *PulsarMQ) Receive(ctx context.Context, topic string) (*Message, error) {
	consumer, err := mq.getConsumer(topic)
	if err != nil {
		return nil, err
	}

	msg, err := consumer.Receive(ctx)
	if err != nil {
		return nil, err
	}

	return &Message{Topic: topic, Payload: msg.Payload(), handle: msg}, nil
}

func (mq *PulsarMQ) Ack(msg *Message) error {
	pm, ok := msg.handle.(pulsar.Message)
	if !ok {
		return errors.New("message was not received from pulsar")
	}

	consumer, err := mq.getConsumer(msg.Topic)
	if err != nil {
		return err
	}

	return consumer.Ack(pm)
}

func (mq *PulsarMQ) CloseTopic(topic string) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	producer, hasProducer := mq.producers[topic]
	consumer, hasConsumer := mq.consumers[topic]
	if !hasProducer && !hasConsumer {
		return ErrTopicNotExists
	}

	if hasProducer {
		producer.Close()
		delete(mq.producers, topic)
	}
	if hasConsumer {
		consumer.Close()
		delete(mq.consumers, topic)
	}

	return nil
}

func (mq *PulsarMQ) Close() error {
	mq.mu.Lock()
	for topic, producer := range mq.producers {
		producer.Close()
		delete(mq.producers, topic)
	}
	for topic, consumer := range mq.consumers {
		consumer.Close()
		delete(mq.consumers, topic)
	}
	mq.mu.Unlock()

	mq.client.Close()
	return nil
}

func (mq *PulsarMQ) getProducer(topic string) (pulsar.Producer, error) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if producer, ok := mq.producers[topic]; ok {
		return producer, nil
	}

	producer, err := mq.client.CreateProducer(pulsar.ProducerOptions{Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer for %s: %w", topic, err)
	}

	mq.producers[topic] = producer
	return producer, nil
}

// getConsumer subscribes with a shared subscription so several processors
// can split one topic.
func (mq *PulsarMQ) getConsumer(topic string) (pulsar.Consumer, error) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if consumer, ok := mq.consumers[topic]; ok {
		return consumer, nil
	}

	consumer, err := mq.client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		Type:             pulsar.Shared,
		SubscriptionName: strings.ReplaceAll(topic, "/", "-"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	mq.consumers[topic] = consumer
	return consumer, nil
}

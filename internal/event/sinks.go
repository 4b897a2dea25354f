package event

import (
	"context"
	"encoding/json"
	"fmt"

	"auctionhouse/pkg/logger"

	"github.com/IBM/sarama"
	amqp "github.com/rabbitmq/amqp091-go"
)

// KafkaSink writes JSON events to one topic, keyed by Event.Key.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Publish(_ context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(evt.Key()),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(evt.Type)},
		},
	}
	_, _, err = s.producer.SendMessage(msg)
	return err
}

// amqpChannel is the part of *amqp.Channel the sink needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitSink publishes to a topic exchange with the event type as routing key.
type RabbitSink struct {
	ch       amqpChannel
	exchange string
}

func NewRabbitSink(ch amqpChannel, exchange string) *RabbitSink {
	return &RabbitSink{ch: ch, exchange: exchange}
}

func (s *RabbitSink) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	return s.ch.PublishWithContext(ctx, s.exchange, string(evt.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		Body:         body,
	})
}

// LogSink writes events to the application log.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, evt Event) error {
	logger.Info("auction event", map[string]any{
		"event_id":   evt.ID,
		"event_type": string(evt.Type),
		"session_id": evt.SessionID,
		"item_id":    evt.ItemID,
		"user_id":    evt.UserID,
		"amount":     evt.Amount,
	})
	return nil
}

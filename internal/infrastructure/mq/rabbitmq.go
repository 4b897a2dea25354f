package mq

import (
	"auctionhouse/internal/config"
	"auctionhouse/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ owns the connection and the channel used for publishing.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

// InitRabbitMQ dials the broker and declares the durable topic exchange that
// auction events are published to.
func InitRabbitMQ(cfg *config.RabbitMQConfig) *RabbitMQ {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Fatal("failed to connect to rabbitmq", map[string]any{"error": err.Error()})
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Fatal("failed to open rabbitmq channel", map[string]any{"error": err.Error()})
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		logger.Fatal("failed to declare exchange", map[string]any{"exchange": cfg.Exchange, "error": err.Error()})
	}

	logger.Info("rabbitmq connected", map[string]any{"exchange": cfg.Exchange})
	return &RabbitMQ{Conn: conn, Channel: ch}
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}

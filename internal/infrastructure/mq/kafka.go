package mq

import (
	"auctionhouse/internal/config"
	"auctionhouse/pkg/logger"

	"github.com/IBM/sarama"
)

var KafkaProducer sarama.SyncProducer

// InitKafka 初始化 Kafka 生产者
func InitKafka(cfg *config.KafkaConfig) sarama.SyncProducer {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		logger.Fatal("failed to create kafka producer", map[string]any{"brokers": cfg.Brokers, "error": err.Error()})
	}

	KafkaProducer = producer
	logger.Info("kafka producer ready", map[string]any{"brokers": cfg.Brokers})
	return producer
}

// CloseKafka 关闭 Kafka 生产者
func CloseKafka() {
	if KafkaProducer != nil {
		if err := KafkaProducer.Close(); err != nil {
			logger.Warn("failed to close kafka producer", map[string]any{"error": err.Error()})
		}
	}
}

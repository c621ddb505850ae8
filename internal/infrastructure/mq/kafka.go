package mq

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"tinbox/internal/config"
)

// NewSyncProducer connects a producer that waits for every in-sync replica.
func NewSyncProducer(cfg *config.KafkaConfig, log logrus.FieldLogger) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	log.WithField("brokers", cfg.Brokers).Info("kafka producer connected")
	return producer, nil
}

func ProducerConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 3
	c.Producer.Return.Successes = true
	return c
}

// Publisher sends keyed string messages through a SyncProducer.
type Publisher struct {
	producer sarama.SyncProducer
}

func NewPublisher(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer}
}

func (p *Publisher) SendMessage(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

type executionEvent struct {
	OrderID    string    `json:"order_id"`
	Sender     string    `json:"sender"`
	PoolID     uint64    `json:"pool_id"`
	Side       string    `json:"side"`
	TxHash     string    `json:"tx_hash"`
	Price      string    `json:"price"`
	Endpoint   string    `json:"endpoint"`
	ExecutedAt time.Time `json:"executed_at"`
}

// ExecutionPublisher emits one message per executed order, keyed by order
// id so every event of an order lands in the same partition.
type ExecutionPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Producer.Retry.Max = 5
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("sarama.NewSyncProducer: %w", err)
	}

	return producer, nil
}

func NewExecutionPublisher(producer sarama.SyncProducer, topic string) *ExecutionPublisher {
	return &ExecutionPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *ExecutionPublisher) Publish(ctx context.Context, execution models.Execution) error {
	const op = "ExecutionPublisher.Publish"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	payload, err := json.Marshal(executionEvent{
		OrderID:    execution.OrderID,
		Sender:     execution.Sender,
		PoolID:     execution.PoolID,
		Side:       string(execution.Side),
		TxHash:     execution.TxHash,
		Price:      execution.Price.String(),
		Endpoint:   execution.Endpoint,
		ExecutedAt: execution.ExecutedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(execution.OrderID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("%s: send: %w", op, err)
	}

	return nil
}

func (p *ExecutionPublisher) Close() error {
	return p.producer.Close()
}

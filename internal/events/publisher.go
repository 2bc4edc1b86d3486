// Package events emits verified-sale events for the reporting pipeline.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// SaleVerified is published once per checkout attempt, after verification.
type SaleVerified struct {
	AttemptID  string              `json:"attempt_id"`
	SessionID  string              `json:"session_id"`
	References []string            `json:"references"`
	Items      []domain.SaleResult `json:"items"`
	Amount     decimal.Decimal     `json:"amount"`
	VerifiedAt time.Time           `json:"verified_at"`
}

type Publisher interface {
	PublishSaleVerified(ctx context.Context, ev SaleVerified) error
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishSaleVerified(context.Context, SaleVerified) error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "sales-verified",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishSaleVerified(ctx context.Context, ev SaleVerified) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal sale event failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.AttemptID), // attempt_id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("sale.verified")},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

package repository

import (
	"context"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	pkgkafka "TradePilot/pkg/kafka"
)

// KafkaSignalPublisher emits approved signals to the order-placement topic.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, sig models.TradeSignal, assessment models.RiskAssessment) error {
	return p.producer.Publish(ctx, p.topic, []byte(sig.Symbol), map[string]interface{}{
		"symbol":            sig.Symbol,
		"action":            string(sig.Action),
		"confidence":        sig.Confidence,
		"target_price":      sig.TargetPrice,
		"stop_loss":         sig.StopLoss,
		"quantity":          sig.Quantity,
		"max_position_size": assessment.MaxPositionSize,
		"risk_level":        string(assessment.RiskLevel),
		"reasoning":         sig.Reasoning,
		"ts":                time.Now().Unix(),
	})
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

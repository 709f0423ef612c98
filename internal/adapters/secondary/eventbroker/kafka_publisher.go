package eventbroker

import (
	"context"
	"fmt"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

// KafkaPublisher écrit les events sur un topic unique, clé = post id
// (tous les events d'un post restent ordonnés sur une partition).
type KafkaPublisher struct {
	w *kgo.Writer
}

// NewKafkaPublisher : brokers "host1:9092,host2:9092", acks "none" | "one" | "all".
func NewKafkaPublisher(brokers, topic, acks string) *KafkaPublisher {
	var requiredAcks kgo.RequiredAcks
	switch strings.ToLower(strings.TrimSpace(acks)) {
	case "none":
		requiredAcks = kgo.RequireNone
	case "all":
		requiredAcks = kgo.RequireAll
	default:
		requiredAcks = kgo.RequireOne
	}

	return &KafkaPublisher{w: &kgo.Writer{
		Addr:         kgo.TCP(splitList(brokers)...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: requiredAcks,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.PostEvent) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []kgo.Header{{Key: "type", Value: []byte(ev.Type)}}
	for k, v := range carrier {
		headers = append(headers, kgo.Header{Key: k, Value: []byte(v)})
	}

	msg := kgo.Message{
		Key:     []byte(ev.PostID),
		Value:   data,
		Headers: headers,
		Time:    time.Now(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

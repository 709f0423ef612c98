package eventbroker

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

var _ ports.EventPublisher = (*NatsPublisher)(nil)

// Publish envoie l'event sur le subject égal à son type (post.created, post.liked...).
func (p *NatsPublisher) Publish(ctx context.Context, ev domain.PostEvent) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: string(ev.Type),
		Data:    data,
		Header:  nats.Header{},
	}
	// Le trace id de la requête HTTP voyage dans les headers NATS
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.DebugContext(ctx, "📢 Publishing event", "subject", msg.Subject, "post_id", ev.PostID)
	return p.nc.PublishMsg(msg)
}

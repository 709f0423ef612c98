package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

// PostEventMessage est le contrat JSON publié sur le broker.
type PostEventMessage struct {
	Type   string    `json:"type"`
	PostID string    `json:"post_id"`
	Author string    `json:"author"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

func encode(ev domain.PostEvent) ([]byte, error) {
	data, err := json.Marshal(PostEventMessage{
		Type:   string(ev.Type),
		PostID: ev.PostID,
		Author: ev.Author,
		Actor:  ev.Actor,
		At:     ev.At,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling error: %w", err)
	}
	return data, nil
}

// NoopPublisher est utilisé quand EVENT_BROKER=none.
type NoopPublisher struct{}

var _ ports.EventPublisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, domain.PostEvent) error { return nil }

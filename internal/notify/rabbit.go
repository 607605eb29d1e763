package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is the part of rabbit.Client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, messageID string, message []byte) error
}

// RabbitNotifier serializes intents onto the broker; consumerWorker delivers them.
type RabbitNotifier struct {
	pub Publisher
}

func NewRabbitNotifier(pub Publisher) *RabbitNotifier {
	return &RabbitNotifier{pub: pub}
}

func (n *RabbitNotifier) Notify(ctx context.Context, in Intent) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	if err := n.pub.Publish(ctx, in.ID, payload); err != nil {
		return fmt.Errorf("publish intent: %w", err)
	}
	return nil
}

// Decode is the inverse of what RabbitNotifier puts on the wire.
func Decode(body []byte) (Intent, error) {
	var in Intent
	if err := json.Unmarshal(body, &in); err != nil {
		return Intent{}, fmt.Errorf("unmarshal intent: %w", err)
	}
	if in.Kind == "" || in.Recipient == "" {
		return Intent{}, fmt.Errorf("intent %q is missing kind or recipient", in.ID)
	}
	return in, nil
}

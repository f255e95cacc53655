package pubsub

import (
	"context"
	"encoding/json"
	"log"

	"cloud.google.com/go/pubsub"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// OutcomePublisher emits publish outcomes to a Pub/Sub topic so downstream
// consumers (analytics, notifications) can react without polling the job
// store. A nil client turns every publish into a no-op.
type OutcomePublisher struct {
	client *pubsub.Client
	topic  string
}

func NewOutcomePublisher(client *pubsub.Client, topic string) *OutcomePublisher {
	return &OutcomePublisher{client: client, topic: topic}
}

func (p *OutcomePublisher) PublishOutcome(ctx context.Context, ev *model.PublishOutcome) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	topic := p.client.Topic(p.topic)

	// Create the topic if it doesn't exist.
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		log.Printf("Topic %v doesn't exist - creating it", p.topic)
		if _, err = p.client.CreateTopic(ctx, p.topic); err != nil {
			return err
		}
	}

	serverId, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}

	logger.GetLogger().WithField("server ID", serverId).Info("Outcome published")
	return nil
}

package servicebus

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// OutcomePublisher is the Azure Service Bus variant of the outcome event
// emitter. A nil client turns every publish into a no-op.
type OutcomePublisher struct {
	client *azservicebus.Client
	queue  string
}

func NewOutcomePublisher(client *azservicebus.Client, queue string) *OutcomePublisher {
	return &OutcomePublisher{client: client, queue: queue}
}

func (p *OutcomePublisher) PublishOutcome(ctx context.Context, ev *model.PublishOutcome) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	sender, err := p.client.NewSender(p.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}()

	return sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil)
}

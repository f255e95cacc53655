package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IPublisher is the uniform platform adapter interface: one implementation
// per platform, selected by the job's platform tag. Failures come back as
// classified *model.PublishError values.
type IPublisher interface {
	Publish(ctx context.Context, cred *model.Credential, content model.PublishContent) (*model.PublishResult, error)
}

// IContentGenerator produces a caption and media URL from a prompt for
// automation jobs. day is 1-based within the job's date window so captions
// vary across occurrences.
type IContentGenerator interface {
	Generate(ctx context.Context, prompt string, day int) (caption, mediaURL string, err error)
}

// IEventPublisher emits publish-outcome events to an external bus.
// Implementations must tolerate being unconfigured.
type IEventPublisher interface {
	PublishOutcome(ctx context.Context, ev *model.PublishOutcome) error
}

package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IPublishJob persists publish jobs and implements the conditional updates the
// scheduler relies on for at-most-once-per-occurrence execution.
type IPublishJob interface {
	Create(ctx context.Context, job *model.PublishJob) error
	GetByID(ctx context.Context, id string) (*model.PublishJob, error)
	ListByUser(ctx context.Context, user string) ([]*model.PublishJob, error)

	// FindDueRecurring returns recurring jobs listing timeOfDay (HH:mm).
	// Jobs whose previous occurrence failed are included: failure is not
	// sticky across occurrences.
	FindDueRecurring(ctx context.Context, timeOfDay string) ([]*model.PublishJob, error)
	// FindDueOneShot returns scheduled one-shot jobs with scheduledTime <= now.
	FindDueOneShot(ctx context.Context, now time.Time) ([]*model.PublishJob, error)

	// ClaimOccurrence atomically marks the job as running this occurrence:
	// it matches only when the job is still claimable and lastRunAt predates
	// occurrenceStart, and sets lastRunAt=runAt. Returns false when another
	// tick already claimed the same occurrence.
	ClaimOccurrence(ctx context.Context, id string, occurrenceStart, runAt time.Time) (bool, error)

	// FinalizeSuccess writes status, remote ids and lastRunAt in one update.
	FinalizeSuccess(ctx context.Context, id, status string, res *model.PublishResult, runAt time.Time) error
	// FinalizeFailure writes status=failed, the error message and lastRunAt
	// in one update.
	FinalizeFailure(ctx context.Context, id, message string, runAt time.Time) error

	// DeleteScheduled removes the job only while status==scheduled and the
	// owner matches; returns false otherwise.
	DeleteScheduled(ctx context.Context, id, user string) (bool, error)
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// ISchedulerUsecase drives the per-minute publishing loop and immediate
// dispatch. Tick never returns an error: every failure is recorded on the job
// it belongs to so one bad job cannot stall the loop.
type ISchedulerUsecase interface {
	Tick(ctx context.Context)
	ExecuteNow(ctx context.Context, job *model.PublishJob) (*model.PublishResult, error)
}

type schedulerUsecase struct {
	jobs       repository.IPublishJob
	social     repository.ISocialAccount
	oauth      repository.IOAuthAccount
	publishers map[string]repository.IPublisher
	generator  repository.IContentGenerator
	events     repository.IEventPublisher
	history    repository.IPostHistory
	location   *time.Location
	jobTimeout time.Duration
	now        func() time.Time
}

func NewSchedulerUsecase(
	jobs repository.IPublishJob,
	social repository.ISocialAccount,
	oauth repository.IOAuthAccount,
	publishers map[string]repository.IPublisher,
	generator repository.IContentGenerator,
	events repository.IEventPublisher,
	history repository.IPostHistory,
	location *time.Location,
	jobTimeout time.Duration,
) ISchedulerUsecase {
	return &schedulerUsecase{
		jobs:       jobs,
		social:     social,
		oauth:      oauth,
		publishers: publishers,
		generator:  generator,
		events:     events,
		history:    history,
		location:   location,
		jobTimeout: jobTimeout,
		now:        time.Now,
	}
}

// Tick runs one scheduler pass. Due jobs are claimed one by one through a
// conditional update, so overlapping ticks and concurrent instances each
// publish an occurrence at most once.
func (u *schedulerUsecase) Tick(ctx context.Context) {
	now := u.now().In(u.location)
	occurrenceStart := now.Truncate(time.Minute)
	timeOfDay := now.Format("15:04")

	recurring, err := u.jobs.FindDueRecurring(ctx, timeOfDay)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while fetching due recurring jobs")
	}
	for _, job := range recurring {
		if !u.withinDateRange(job, now) {
			continue
		}
		u.claimAndRun(ctx, job, occurrenceStart, now)
	}

	oneShots, err := u.jobs.FindDueOneShot(ctx, now.UTC())
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while fetching due one-shot jobs")
	}
	for _, job := range oneShots {
		if job.IsRecurring() {
			continue
		}
		u.claimAndRun(ctx, job, occurrenceStart, now)
	}
}

// ExecuteNow publishes a job immediately, outside the tick loop. The job is
// claimed first so a tick racing an immediate publish cannot double-post.
func (u *schedulerUsecase) ExecuteNow(ctx context.Context, job *model.PublishJob) (*model.PublishResult, error) {
	now := u.now().In(u.location)
	claimed, err := u.jobs.ClaimOccurrence(ctx, job.ID.Hex(), now.Truncate(time.Minute), now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, model.NewValidationError("job is already being published")
	}
	return u.runJob(ctx, job, now)
}

func (u *schedulerUsecase) claimAndRun(ctx context.Context, job *model.PublishJob, occurrenceStart, now time.Time) {
	claimed, err := u.jobs.ClaimOccurrence(ctx, job.ID.Hex(), occurrenceStart, now)
	if err != nil {
		logger.GetLogger().
			WithField("jobId", job.ID.Hex()).
			WithField("error", err).
			Error("Error while claiming occurrence")
		return
	}
	if !claimed {
		return
	}
	if _, err := u.runJob(ctx, job, now); err != nil {
		logger.GetLogger().
			WithField("jobId", job.ID.Hex()).
			WithField("platform", job.Platform).
			WithField("error", err).
			Warn("Publish occurrence failed")
	}
}

// runJob resolves content and credentials, dispatches to the platform adapter
// and finalizes the job document. Each run gets its own timeout so a hung
// platform call cannot block the rest of the tick.
func (u *schedulerUsecase) runJob(ctx context.Context, job *model.PublishJob, now time.Time) (*model.PublishResult, error) {
	jctx, cancel := context.WithTimeout(ctx, u.jobTimeout)
	defer cancel()

	result, err := u.publishOnce(jctx, job, now)
	if err != nil {
		u.finalizeFailure(ctx, job, err, now)
		return nil, err
	}
	u.finalizeSuccess(ctx, job, result, now)
	return result, nil
}

func (u *schedulerUsecase) publishOnce(ctx context.Context, job *model.PublishJob, now time.Time) (*model.PublishResult, error) {
	content := model.PublishContent{
		Message:   job.Message,
		MediaURL:  job.MediaURL,
		MediaType: job.MediaType,
	}
	if job.IsAutomation() {
		caption, mediaURL, err := u.generator.Generate(ctx, job.Prompt, u.dayNumber(job, now))
		if err != nil {
			return nil, err
		}
		content.Message = caption
		content.MediaURL = mediaURL
		content.MediaType = model.MediaTypeImage
	}

	cred, err := u.resolveCredential(ctx, job)
	if err != nil {
		return nil, err
	}

	publisher, ok := u.publishers[job.Platform]
	if !ok {
		return nil, model.NewValidationError("unsupported platform: %s", job.Platform)
	}
	return publisher.Publish(ctx, cred, content)
}

// resolveCredential looks the page up in the social-account store first, then
// falls back to the user-level oauth store. Either way the account owner must
// match the job owner.
func (u *schedulerUsecase) resolveCredential(ctx context.Context, job *model.PublishJob) (*model.Credential, error) {
	acc, err := u.social.FindByProvider(ctx, job.PageID, job.Platform)
	if err != nil {
		return nil, err
	}
	if acc != nil {
		if acc.User != job.User {
			return nil, model.NewAccountNotConnectedError(job.Platform, job.PageID)
		}
		return acc.Credential(), nil
	}

	oa, err := u.oauth.Get(ctx, job.User, job.Platform)
	if err != nil {
		return nil, err
	}
	if oa == nil {
		return nil, model.NewAccountNotConnectedError(job.Platform, job.PageID)
	}
	cred := oa.Credential()
	if cred.ProviderID == "" {
		cred.ProviderID = job.PageID
	}
	return cred, nil
}

func (u *schedulerUsecase) finalizeSuccess(ctx context.Context, job *model.PublishJob, result *model.PublishResult, now time.Time) {
	status := model.JobStatusPosted
	if job.IsRecurring() {
		status = model.JobStatusScheduled
		if job.EndDate != nil && !dateOnly(now, u.location).Before(dateOnly(*job.EndDate, u.location)) {
			status = model.JobStatusCompleted
		}
	}
	if err := u.jobs.FinalizeSuccess(ctx, job.ID.Hex(), status, result, now); err != nil {
		logger.GetLogger().
			WithField("jobId", job.ID.Hex()).
			WithField("error", err).
			Error("Error while finalizing successful occurrence")
	}
	u.record(ctx, job, status, result, "", now)
}

func (u *schedulerUsecase) finalizeFailure(ctx context.Context, job *model.PublishJob, cause error, now time.Time) {
	msg := fmt.Sprintf("%s: %v", model.KindOf(cause), cause)
	if err := u.jobs.FinalizeFailure(ctx, job.ID.Hex(), msg, now); err != nil {
		logger.GetLogger().
			WithField("jobId", job.ID.Hex()).
			WithField("error", err).
			Error("Error while finalizing failed occurrence")
	}
	u.record(ctx, job, model.JobStatusFailed, nil, msg, now)
}

// record emits the outcome event and appends the history row. Both are
// best-effort; the job document is the source of truth.
func (u *schedulerUsecase) record(ctx context.Context, job *model.PublishJob, status string, result *model.PublishResult, errMsg string, now time.Time) {
	ev := &model.PublishOutcome{
		JobID:      job.ID.Hex(),
		User:       job.User,
		Platform:   job.Platform,
		PageID:     job.PageID,
		Status:     status,
		Error:      errMsg,
		OccurredAt: now.UTC(),
	}
	h := &model.PostHistory{
		User:         job.User,
		JobID:        job.ID.Hex(),
		Platform:     job.Platform,
		PageID:       job.PageID,
		Caption:      job.Message,
		MediaURL:     job.MediaURL,
		Status:       status,
		ErrorMessage: errMsg,
		PostedAt:     now.UTC(),
	}
	if result != nil {
		ev.RemoteID = result.RemoteID
		h.RemoteID = result.RemoteID
		h.RemoteURL = result.RemoteURL
	}
	if u.events != nil {
		if err := u.events.PublishOutcome(ctx, ev); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Outcome event publish failed")
		}
	}
	if u.history != nil {
		if err := u.history.Append(ctx, h); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Post history append failed")
		}
	}
}

// withinDateRange checks the recurring window by calendar date in the
// scheduler timezone. Out-of-window jobs are skipped, not failed.
func (u *schedulerUsecase) withinDateRange(job *model.PublishJob, now time.Time) bool {
	today := dateOnly(now, u.location)
	if job.StartDate != nil && today.Before(dateOnly(*job.StartDate, u.location)) {
		return false
	}
	if job.EndDate != nil && today.After(dateOnly(*job.EndDate, u.location)) {
		return false
	}
	return true
}

// dayNumber is 1-based from the job's start date, used to vary generated
// content across occurrences.
func (u *schedulerUsecase) dayNumber(job *model.PublishJob, now time.Time) int {
	if job.StartDate == nil {
		return 1
	}
	days := int(dateOnly(now, u.location).Sub(dateOnly(*job.StartDate, u.location)).Hours() / 24)
	if days < 0 {
		return 1
	}
	return days + 1
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

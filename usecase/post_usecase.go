package usecase

import (
	"context"
	"regexp"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var supportedPlatforms = map[string]struct{}{
	model.PlatformFacebook:  {},
	model.PlatformInstagram: {},
	model.PlatformLinkedIn:  {},
	model.PlatformTwitter:   {},
}

// IPostUsecase covers manual posts: immediate, one-shot scheduled and
// recurring. One job is created per requested page id.
type IPostUsecase interface {
	Create(ctx context.Context, user string, req dto.CreatePostRequest) ([]dto.PostResult, error)
	List(ctx context.Context, user string) ([]*model.PublishJob, error)
	Delete(ctx context.Context, user, id string) error
	History(ctx context.Context, user string, limit int) ([]*model.PostHistory, error)
}

type postUsecase struct {
	jobs      repository.IPublishJob
	history   repository.IPostHistory
	scheduler ISchedulerUsecase
	location  *time.Location
}

func NewPostUsecase(jobs repository.IPublishJob, history repository.IPostHistory, scheduler ISchedulerUsecase, location *time.Location) IPostUsecase {
	return &postUsecase{jobs: jobs, history: history, scheduler: scheduler, location: location}
}

func (u *postUsecase) Create(ctx context.Context, user string, req dto.CreatePostRequest) ([]dto.PostResult, error) {
	if _, ok := supportedPlatforms[req.Platform]; !ok {
		return nil, model.NewValidationError("unsupported platform: %s", req.Platform)
	}
	if req.Message == "" && req.MediaURL == "" {
		return nil, model.NewValidationError("message or media_url is required")
	}
	if req.MediaURL != "" && req.MediaType != model.MediaTypeImage && req.MediaType != model.MediaTypeVideo {
		return nil, model.NewValidationError("media_type must be image or video")
	}
	if req.ScheduledTime != "" && len(req.Times) > 0 {
		return nil, model.NewValidationError("scheduled_time and times are mutually exclusive")
	}

	var scheduledTime *time.Time
	if req.ScheduledTime != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledTime)
		if err != nil {
			return nil, model.NewValidationError("scheduled_time must be RFC3339")
		}
		tt := t.UTC()
		scheduledTime = &tt
	}

	if err := validateTimes(req.Times); err != nil {
		return nil, err
	}
	startDate, endDate, err := u.parseDateRange(req.StartDate, req.EndDate, len(req.Times) > 0)
	if err != nil {
		return nil, err
	}

	results := make([]dto.PostResult, 0, len(req.PageIDs))
	for _, pageID := range req.PageIDs {
		job := &model.PublishJob{
			User:          user,
			Platform:      req.Platform,
			PageID:        pageID,
			Message:       req.Message,
			MediaURL:      req.MediaURL,
			MediaType:     req.MediaType,
			ScheduledTime: scheduledTime,
			StartDate:     startDate,
			EndDate:       endDate,
			Times:         req.Times,
			Status:        model.JobStatusScheduled,
		}
		if err := u.jobs.Create(ctx, job); err != nil {
			return nil, err
		}

		if scheduledTime == nil && len(req.Times) == 0 {
			results = append(results, u.dispatchNow(ctx, job))
			continue
		}
		results = append(results, dto.PostResult{PageID: pageID, Status: model.JobStatusScheduled})
	}
	return results, nil
}

// dispatchNow publishes an unscheduled job synchronously. A failed dispatch
// is reported in the result row, not as a request error, so one bad page does
// not abort the remaining pages.
func (u *postUsecase) dispatchNow(ctx context.Context, job *model.PublishJob) dto.PostResult {
	res, err := u.scheduler.ExecuteNow(ctx, job)
	if err != nil {
		logger.GetLogger().
			WithField("jobId", job.ID.Hex()).
			WithField("platform", job.Platform).
			WithField("error", err).
			Warn("Immediate publish failed")
		return dto.PostResult{PageID: job.PageID, Status: model.JobStatusFailed, Error: err.Error()}
	}
	return dto.PostResult{
		PageID:    job.PageID,
		Status:    model.JobStatusPosted,
		RemoteID:  res.RemoteID,
		RemoteURL: res.RemoteURL,
	}
}

func (u *postUsecase) List(ctx context.Context, user string) ([]*model.PublishJob, error) {
	return u.jobs.ListByUser(ctx, user)
}

// Delete removes a job only while it is still scheduled; posted, completed
// and failed jobs are kept as a record of what happened.
func (u *postUsecase) Delete(ctx context.Context, user, id string) error {
	deleted, err := u.jobs.DeleteScheduled(ctx, id, user)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewValidationError("job not found or no longer scheduled")
	}
	return nil
}

func (u *postUsecase) History(ctx context.Context, user string, limit int) ([]*model.PostHistory, error) {
	if u.history == nil {
		return nil, nil
	}
	return u.history.ListByUser(ctx, user, limit)
}

func (u *postUsecase) parseDateRange(start, end string, recurring bool) (*time.Time, *time.Time, error) {
	if !recurring {
		if start != "" || end != "" {
			return nil, nil, model.NewValidationError("start_date/end_date require times")
		}
		return nil, nil, nil
	}
	// Recurring jobs run against a bounded window only.
	if start == "" || end == "" {
		return nil, nil, model.NewValidationError("times require start_date and end_date")
	}
	startDate, err := time.ParseInLocation("2006-01-02", start, u.location)
	if err != nil {
		return nil, nil, model.NewValidationError("start_date must be YYYY-MM-DD")
	}
	endDate, err := time.ParseInLocation("2006-01-02", end, u.location)
	if err != nil {
		return nil, nil, model.NewValidationError("end_date must be YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, nil, model.NewValidationError("end_date is before start_date")
	}
	return &startDate, &endDate, nil
}

func validateTimes(times []string) error {
	for _, t := range times {
		if !timeOfDayRe.MatchString(t) {
			return model.NewValidationError("times entries must be HH:mm, got %q", t)
		}
	}
	return nil
}

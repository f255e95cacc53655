package usecase

import (
	"context"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// IAutomationUsecase creates AI-recurring jobs: a prompt plus a recurrence
// window, with content generated fresh at every occurrence.
type IAutomationUsecase interface {
	Create(ctx context.Context, user string, req dto.CreateAutomationRequest) ([]*model.PublishJob, error)
}

type automationUsecase struct {
	jobs     repository.IPublishJob
	location *time.Location
}

func NewAutomationUsecase(jobs repository.IPublishJob, location *time.Location) IAutomationUsecase {
	return &automationUsecase{jobs: jobs, location: location}
}

func (u *automationUsecase) Create(ctx context.Context, user string, req dto.CreateAutomationRequest) ([]*model.PublishJob, error) {
	if _, ok := supportedPlatforms[req.Platform]; !ok {
		return nil, model.NewValidationError("unsupported platform: %s", req.Platform)
	}
	if req.Prompt == "" {
		return nil, model.NewValidationError("prompt is required")
	}
	if len(req.Times) == 0 {
		return nil, model.NewValidationError("times must list at least one HH:mm entry")
	}
	if err := validateTimes(req.Times); err != nil {
		return nil, err
	}

	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, u.location)
	if err != nil {
		return nil, model.NewValidationError("start_date must be YYYY-MM-DD")
	}
	endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, u.location)
	if err != nil {
		return nil, model.NewValidationError("end_date must be YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, model.NewValidationError("end_date is before start_date")
	}

	jobs := make([]*model.PublishJob, 0, len(req.PageIDs))
	for _, pageID := range req.PageIDs {
		job := &model.PublishJob{
			User:      user,
			Platform:  req.Platform,
			PageID:    pageID,
			Prompt:    req.Prompt,
			StartDate: &startDate,
			EndDate:   &endDate,
			Times:     req.Times,
			Status:    model.JobStatusScheduled,
		}
		if err := u.jobs.Create(ctx, job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

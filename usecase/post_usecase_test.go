package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"
)

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Tick(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockScheduler) ExecuteNow(ctx context.Context, job *model.PublishJob) (*model.PublishResult, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

func newPostUsecase(jobs *MockPublishJobRepo, history *MockPostHistoryRepo, scheduler *MockScheduler) usecase.IPostUsecase {
	return usecase.NewPostUsecase(jobs, history, scheduler, time.UTC)
}

func TestPostCreate_RejectsUnsupportedPlatform(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform: "myspace",
		PageIDs:  []string{"page-1"},
		Message:  "hello",
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
}

func TestPostCreate_RequiresMessageOrMedia(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform: model.PlatformFacebook,
		PageIDs:  []string{"page-1"},
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
}

func TestPostCreate_RejectsUnknownMediaType(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform:  model.PlatformFacebook,
		PageIDs:   []string{"page-1"},
		MediaURL:  "https://cdn.example.com/a.gif",
		MediaType: "gif",
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
}

func TestPostCreate_ScheduledTimeAndTimesAreExclusive(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform:      model.PlatformFacebook,
		PageIDs:       []string{"page-1"},
		Message:       "hello",
		ScheduledTime: "2026-09-01T10:00:00Z",
		Times:         []string{"10:00"},
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
}

func TestPostCreate_RejectsBadScheduledTime(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform:      model.PlatformFacebook,
		PageIDs:       []string{"page-1"},
		Message:       "hello",
		ScheduledTime: "tomorrow at noon",
	})

	assert.Error(t, err)
}

func TestPostCreate_RejectsBadTimesEntry(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform: model.PlatformFacebook,
		PageIDs:  []string{"page-1"},
		Message:  "hello",
		Times:    []string{"25:00"},
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
}

func TestPostCreate_RejectsDatesWithoutTimes(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform:  model.PlatformFacebook,
		PageIDs:   []string{"page-1"},
		Message:   "hello",
		StartDate: "2026-09-01",
	})

	assert.Error(t, err)
}

func TestPostCreate_RecurringRequiresDateRange(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	for _, req := range []dto.CreatePostRequest{
		{Platform: model.PlatformFacebook, PageIDs: []string{"page-1"}, Message: "hello", Times: []string{"10:00"}},
		{Platform: model.PlatformFacebook, PageIDs: []string{"page-1"}, Message: "hello", Times: []string{"10:00"}, StartDate: "2026-09-01"},
		{Platform: model.PlatformFacebook, PageIDs: []string{"page-1"}, Message: "hello", Times: []string{"10:00"}, EndDate: "2026-09-30"},
	} {
		_, err := u.Create(context.Background(), "user-1", req)
		assert.Error(t, err)
		assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
	}
}

func TestPostCreate_RejectsInvertedDateRange(t *testing.T) {
	u := newPostUsecase(new(MockPublishJobRepo), new(MockPostHistoryRepo), new(MockScheduler))

	_, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform:  model.PlatformFacebook,
		PageIDs:   []string{"page-1"},
		Message:   "hello",
		Times:     []string{"10:00"},
		StartDate: "2026-09-10",
		EndDate:   "2026-09-01",
	})

	assert.Error(t, err)
}

func TestPostCreate_ImmediateDispatchPerPage(t *testing.T) {
	jobs := new(MockPublishJobRepo)
	scheduler := new(MockScheduler)
	u := newPostUsecase(jobs, new(MockPostHistoryRepo), scheduler)

	jobs.On("Create", mock.Anything, mock.AnythingOfType("*model.PublishJob")).
		Return(nil).Twice()
	scheduler.On("ExecuteNow", mock.Anything, mock.MatchedBy(func(j *model.PublishJob) bool { return j.PageID == "page-1" })).
		Return(nil, model.NewRemoteAPIError(model.PlatformFacebook, "boom")).Once()
	scheduler.On("ExecuteNow", mock.Anything, mock.MatchedBy(func(j *model.PublishJob) bool { return j.PageID == "page-2" })).
		Return(&model.PublishResult{RemoteID: "post-7", RemoteURL: "https://example.com/post-7"}, nil).Once()

	results, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform: model.PlatformFacebook,
		PageIDs:  []string{"page-1", "page-2"},
		Message:  "hello",
	})

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, model.JobStatusFailed, results[0].Status)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, model.JobStatusPosted, results[1].Status)
	assert.Equal(t, "post-7", results[1].RemoteID)
	jobs.AssertExpectations(t)
	scheduler.AssertExpectations(t)
}

func TestPostCreate_ScheduledJobIsNotDispatched(t *testing.T) {
	jobs := new(MockPublishJobRepo)
	scheduler := new(MockScheduler)
	u := newPostUsecase(jobs, new(MockPostHistoryRepo), scheduler)

	jobs.On("Create", mock.Anything, mock.AnythingOfType("*model.PublishJob")).
		Return(nil).Once()

	results, err := u.Create(context.Background(), "user-1", dto.CreatePostRequest{
		Platform:      model.PlatformTwitter,
		PageIDs:       []string{"tw-1"},
		Message:       "later",
		ScheduledTime: "2026-09-01T10:00:00Z",
	})

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, model.JobStatusScheduled, results[0].Status)
	scheduler.AssertNotCalled(t, "ExecuteNow", mock.Anything, mock.Anything)
	jobs.AssertExpectations(t)
}

func TestPostDelete_OnlyWhileScheduled(t *testing.T) {
	jobs := new(MockPublishJobRepo)
	u := newPostUsecase(jobs, new(MockPostHistoryRepo), new(MockScheduler))

	jobs.On("DeleteScheduled", mock.Anything, "job-1", "user-1").Return(true, nil).Once()
	jobs.On("DeleteScheduled", mock.Anything, "job-2", "user-1").Return(false, nil).Once()

	assert.NoError(t, u.Delete(context.Background(), "user-1", "job-1"))

	err := u.Delete(context.Background(), "user-1", "job-2")
	assert.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
	jobs.AssertExpectations(t)
}

func TestPostHistory_NilStoreReturnsEmpty(t *testing.T) {
	u := usecase.NewPostUsecase(new(MockPublishJobRepo), nil, new(MockScheduler), time.UTC)

	rows, err := u.History(context.Background(), "user-1", 10)

	assert.NoError(t, err)
	assert.Nil(t, rows)
}

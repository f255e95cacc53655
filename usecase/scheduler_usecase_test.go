package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/v2/bson"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/usecase"
)

// Mock implementations

type MockPublishJobRepo struct {
	mock.Mock
}

func (m *MockPublishJobRepo) Create(ctx context.Context, job *model.PublishJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockPublishJobRepo) GetByID(ctx context.Context, id string) (*model.PublishJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishJob), args.Error(1)
}

func (m *MockPublishJobRepo) ListByUser(ctx context.Context, user string) ([]*model.PublishJob, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishJob), args.Error(1)
}

func (m *MockPublishJobRepo) FindDueRecurring(ctx context.Context, timeOfDay string) ([]*model.PublishJob, error) {
	args := m.Called(ctx, timeOfDay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishJob), args.Error(1)
}

func (m *MockPublishJobRepo) FindDueOneShot(ctx context.Context, now time.Time) ([]*model.PublishJob, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishJob), args.Error(1)
}

func (m *MockPublishJobRepo) ClaimOccurrence(ctx context.Context, id string, occurrenceStart, runAt time.Time) (bool, error) {
	args := m.Called(ctx, id, occurrenceStart, runAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockPublishJobRepo) FinalizeSuccess(ctx context.Context, id, status string, res *model.PublishResult, runAt time.Time) error {
	args := m.Called(ctx, id, status, res, runAt)
	return args.Error(0)
}

func (m *MockPublishJobRepo) FinalizeFailure(ctx context.Context, id, message string, runAt time.Time) error {
	args := m.Called(ctx, id, message, runAt)
	return args.Error(0)
}

func (m *MockPublishJobRepo) DeleteScheduled(ctx context.Context, id, user string) (bool, error) {
	args := m.Called(ctx, id, user)
	return args.Bool(0), args.Error(1)
}

type MockSocialAccountRepo struct {
	mock.Mock
}

func (m *MockSocialAccountRepo) FindByProvider(ctx context.Context, providerID, platform string) (*model.SocialAccount, error) {
	args := m.Called(ctx, providerID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SocialAccount), args.Error(1)
}

func (m *MockSocialAccountRepo) FindByUser(ctx context.Context, user, platform string) (*model.SocialAccount, error) {
	args := m.Called(ctx, user, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SocialAccount), args.Error(1)
}

func (m *MockSocialAccountRepo) ListByUser(ctx context.Context, user string) ([]*model.SocialAccount, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialAccount), args.Error(1)
}

func (m *MockSocialAccountRepo) Upsert(ctx context.Context, acc *model.SocialAccount) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockSocialAccountRepo) Delete(ctx context.Context, user, platform string) error {
	args := m.Called(ctx, user, platform)
	return args.Error(0)
}

type MockOAuthAccountRepo struct {
	mock.Mock
}

func (m *MockOAuthAccountRepo) Get(ctx context.Context, user, platform string) (*model.OAuthAccount, error) {
	args := m.Called(ctx, user, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuthAccount), args.Error(1)
}

func (m *MockOAuthAccountRepo) FindByProvider(ctx context.Context, providerID, platform string) (*model.OAuthAccount, error) {
	args := m.Called(ctx, providerID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuthAccount), args.Error(1)
}

func (m *MockOAuthAccountRepo) Upsert(ctx context.Context, acc *model.OAuthAccount) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockOAuthAccountRepo) UpdateTokens(ctx context.Context, user, platform, accessToken, refreshToken string, expiresAt *time.Time) error {
	args := m.Called(ctx, user, platform, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

func (m *MockOAuthAccountRepo) SetSessionID(ctx context.Context, user, platform, sessionID string) error {
	args := m.Called(ctx, user, platform, sessionID)
	return args.Error(0)
}

func (m *MockOAuthAccountRepo) ConsumeSessionID(ctx context.Context, sessionID string) (*model.OAuthAccount, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuthAccount), args.Error(1)
}

func (m *MockOAuthAccountRepo) Delete(ctx context.Context, user, platform string) error {
	args := m.Called(ctx, user, platform)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, cred *model.Credential, content model.PublishContent) (*model.PublishResult, error) {
	args := m.Called(ctx, cred, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, day int) (string, string, error) {
	args := m.Called(ctx, prompt, day)
	return args.String(0), args.String(1), args.Error(2)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishOutcome(ctx context.Context, ev *model.PublishOutcome) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockPostHistoryRepo struct {
	mock.Mock
}

func (m *MockPostHistoryRepo) Append(ctx context.Context, h *model.PostHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockPostHistoryRepo) ListByUser(ctx context.Context, user string, limit int) ([]*model.PostHistory, error) {
	args := m.Called(ctx, user, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PostHistory), args.Error(1)
}

type schedulerFixture struct {
	jobs      *MockPublishJobRepo
	social    *MockSocialAccountRepo
	oauth     *MockOAuthAccountRepo
	publisher *MockPublisher
	generator *MockGenerator
	events    *MockEventPublisher
	history   *MockPostHistoryRepo
	scheduler usecase.ISchedulerUsecase
}

func newSchedulerFixture(platform string) *schedulerFixture {
	f := &schedulerFixture{
		jobs:      new(MockPublishJobRepo),
		social:    new(MockSocialAccountRepo),
		oauth:     new(MockOAuthAccountRepo),
		publisher: new(MockPublisher),
		generator: new(MockGenerator),
		events:    new(MockEventPublisher),
		history:   new(MockPostHistoryRepo),
	}
	f.scheduler = usecase.NewSchedulerUsecase(
		f.jobs, f.social, f.oauth,
		map[string]repository.IPublisher{platform: f.publisher},
		f.generator, f.events, f.history,
		time.UTC, 5*time.Second,
	)
	return f
}

func recurringJob(platform string) *model.PublishJob {
	start := time.Now().UTC().AddDate(0, 0, -1)
	end := time.Now().UTC().AddDate(0, 0, 7)
	return &model.PublishJob{
		ID:        bson.NewObjectID(),
		User:      "user-1",
		Platform:  platform,
		PageID:    "page-1",
		Message:   "hello",
		Status:    model.JobStatusScheduled,
		StartDate: &start,
		EndDate:   &end,
		Times:     []string{"10:30"},
	}
}

func connectedAccount(job *model.PublishJob) *model.SocialAccount {
	return &model.SocialAccount{
		User:        job.User,
		Platform:    job.Platform,
		ProviderID:  job.PageID,
		AccessToken: "page-token",
	}
}

func TestSchedulerTick_PublishesDueRecurringJob(t *testing.T) {
	f := newSchedulerFixture(model.PlatformFacebook)
	job := recurringJob(model.PlatformFacebook)

	f.jobs.On("FindDueRecurring", mock.Anything, mock.AnythingOfType("string")).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(true, nil).Once()
	f.social.On("FindByProvider", mock.Anything, "page-1", model.PlatformFacebook).
		Return(connectedAccount(job), nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.PublishResult{RemoteID: "post-9", RemoteURL: "https://example.com/post-9"}, nil).Once()
	f.jobs.On("FinalizeSuccess", mock.Anything, job.ID.Hex(), model.JobStatusScheduled, mock.Anything, mock.Anything).
		Return(nil).Once()
	f.events.On("PublishOutcome", mock.Anything, mock.Anything).Return(nil).Once()
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	f.scheduler.Tick(context.Background())

	f.jobs.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	f.events.AssertExpectations(t)
	f.history.AssertExpectations(t)
}

func TestSchedulerTick_LostClaimSkipsPublish(t *testing.T) {
	f := newSchedulerFixture(model.PlatformFacebook)
	job := recurringJob(model.PlatformFacebook)

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(false, nil).Once()

	f.scheduler.Tick(context.Background())

	f.jobs.AssertExpectations(t)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.jobs.AssertNotCalled(t, "FinalizeSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.jobs.AssertNotCalled(t, "FinalizeFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSchedulerTick_OutsideDateRangeSkipsWithoutFailure(t *testing.T) {
	f := newSchedulerFixture(model.PlatformFacebook)
	job := recurringJob(model.PlatformFacebook)
	start := time.Now().UTC().AddDate(0, 0, 3)
	end := time.Now().UTC().AddDate(0, 0, 10)
	job.StartDate = &start
	job.EndDate = &end

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()

	f.scheduler.Tick(context.Background())

	f.jobs.AssertExpectations(t)
	f.jobs.AssertNotCalled(t, "ClaimOccurrence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.jobs.AssertNotCalled(t, "FinalizeFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSchedulerTick_MissingCredentialFailsJob(t *testing.T) {
	f := newSchedulerFixture(model.PlatformFacebook)
	job := recurringJob(model.PlatformFacebook)

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(true, nil).Once()
	f.social.On("FindByProvider", mock.Anything, "page-1", model.PlatformFacebook).
		Return(nil, nil).Once()
	f.oauth.On("Get", mock.Anything, "user-1", model.PlatformFacebook).
		Return(nil, nil).Once()
	f.jobs.On("FinalizeFailure", mock.Anything, job.ID.Hex(),
		mock.MatchedBy(func(msg string) bool { return strings.Contains(msg, string(model.ErrKindAccountNotConnected)) }),
		mock.Anything).
		Return(nil).Once()
	f.events.On("PublishOutcome", mock.Anything, mock.Anything).Return(nil).Once()
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	f.scheduler.Tick(context.Background())

	f.jobs.AssertExpectations(t)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSchedulerTick_WrongOwnerIsNotConnected(t *testing.T) {
	f := newSchedulerFixture(model.PlatformFacebook)
	job := recurringJob(model.PlatformFacebook)
	other := connectedAccount(job)
	other.User = "someone-else"

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(true, nil).Once()
	f.social.On("FindByProvider", mock.Anything, "page-1", model.PlatformFacebook).
		Return(other, nil).Once()
	f.jobs.On("FinalizeFailure", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(nil).Once()
	f.events.On("PublishOutcome", mock.Anything, mock.Anything).Return(nil).Once()
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	f.scheduler.Tick(context.Background())

	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.jobs.AssertExpectations(t)
}

func TestSchedulerTick_EndDateReachedCompletesJob(t *testing.T) {
	f := newSchedulerFixture(model.PlatformFacebook)
	job := recurringJob(model.PlatformFacebook)
	end := time.Now().UTC()
	job.EndDate = &end

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(true, nil).Once()
	f.social.On("FindByProvider", mock.Anything, "page-1", model.PlatformFacebook).
		Return(connectedAccount(job), nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.PublishResult{RemoteID: "post-1"}, nil).Once()
	f.jobs.On("FinalizeSuccess", mock.Anything, job.ID.Hex(), model.JobStatusCompleted, mock.Anything, mock.Anything).
		Return(nil).Once()
	f.events.On("PublishOutcome", mock.Anything, mock.Anything).Return(nil).Once()
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	f.scheduler.Tick(context.Background())

	f.jobs.AssertExpectations(t)
}

func TestSchedulerTick_OneShotPosted(t *testing.T) {
	f := newSchedulerFixture(model.PlatformTwitter)
	when := time.Now().UTC().Add(-time.Minute)
	job := &model.PublishJob{
		ID:            bson.NewObjectID(),
		User:          "user-1",
		Platform:      model.PlatformTwitter,
		PageID:        "tw-user-1",
		Message:       "one shot",
		Status:        model.JobStatusScheduled,
		ScheduledTime: &when,
	}

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(true, nil).Once()
	f.social.On("FindByProvider", mock.Anything, "tw-user-1", model.PlatformTwitter).
		Return(nil, nil).Once()
	f.oauth.On("Get", mock.Anything, "user-1", model.PlatformTwitter).
		Return(&model.OAuthAccount{User: "user-1", Platform: model.PlatformTwitter, ProviderID: "tw-user-1", AccessToken: "tok"}, nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.PublishResult{RemoteID: "tweet-1"}, nil).Once()
	f.jobs.On("FinalizeSuccess", mock.Anything, job.ID.Hex(), model.JobStatusPosted, mock.Anything, mock.Anything).
		Return(nil).Once()
	f.events.On("PublishOutcome", mock.Anything, mock.Anything).Return(nil).Once()
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	f.scheduler.Tick(context.Background())

	f.jobs.AssertExpectations(t)
	f.oauth.AssertExpectations(t)
}

func TestSchedulerTick_GeneratorFailureDoesNotPublish(t *testing.T) {
	f := newSchedulerFixture(model.PlatformInstagram)
	job := recurringJob(model.PlatformInstagram)
	job.Message = ""
	job.Prompt = "daily coffee facts"

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{job}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, job.ID.Hex(), mock.Anything, mock.Anything).
		Return(true, nil).Once()
	f.generator.On("Generate", mock.Anything, "daily coffee facts", mock.AnythingOfType("int")).
		Return("", "", model.NewGeneratorError(assert.AnError)).Once()
	f.jobs.On("FinalizeFailure", mock.Anything, job.ID.Hex(),
		mock.MatchedBy(func(msg string) bool { return strings.Contains(msg, string(model.ErrKindGenerator)) }),
		mock.Anything).
		Return(nil).Once()
	f.events.On("PublishOutcome", mock.Anything, mock.Anything).Return(nil).Once()
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	f.scheduler.Tick(context.Background())

	f.generator.AssertExpectations(t)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.jobs.AssertExpectations(t)
}

func TestSchedulerTick_FailureIsIsolatedPerJob(t *testing.T) {
	f := newSchedulerFixture(model.PlatformFacebook)
	bad := recurringJob(model.PlatformFacebook)
	good := recurringJob(model.PlatformFacebook)
	good.PageID = "page-2"

	f.jobs.On("FindDueRecurring", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{bad, good}, nil).Once()
	f.jobs.On("FindDueOneShot", mock.Anything, mock.Anything).
		Return([]*model.PublishJob{}, nil).Once()
	f.jobs.On("ClaimOccurrence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(true, nil).Twice()
	f.social.On("FindByProvider", mock.Anything, "page-1", model.PlatformFacebook).
		Return(connectedAccount(bad), nil).Once()
	f.social.On("FindByProvider", mock.Anything, "page-2", model.PlatformFacebook).
		Return(connectedAccount(good), nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(c *model.Credential) bool { return c.ProviderID == "page-1" }), mock.Anything).
		Return(nil, model.NewRemoteAPIError(model.PlatformFacebook, "boom")).Once()
	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(c *model.Credential) bool { return c.ProviderID == "page-2" }), mock.Anything).
		Return(&model.PublishResult{RemoteID: "ok-post"}, nil).Once()
	f.jobs.On("FinalizeFailure", mock.Anything, bad.ID.Hex(), mock.Anything, mock.Anything).
		Return(nil).Once()
	f.jobs.On("FinalizeSuccess", mock.Anything, good.ID.Hex(), model.JobStatusScheduled, mock.Anything, mock.Anything).
		Return(nil).Once()
	f.events.On("PublishOutcome", mock.Anything, mock.Anything).Return(nil).Twice()
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Twice()

	f.scheduler.Tick(context.Background())

	f.jobs.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

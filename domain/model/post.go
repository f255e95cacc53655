package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Platform identifiers supported by the publish pipeline
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformTwitter   = "twitter"
)

// PublishJob statuses
const (
	JobStatusScheduled = "scheduled"
	JobStatusPosted    = "posted"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Media types accepted in publish content
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// PublishJob is one scheduled or recurring publish intent. Manual jobs carry
// literal content (Message/MediaURL); automation jobs carry a Prompt and the
// content is generated at fire time. The two are mutually exclusive.
type PublishJob struct {
	ID       bson.ObjectID `bson:"_id,omitempty" json:"id"`
	User     string        `bson:"user" json:"user"`
	Platform string        `bson:"platform" json:"platform"`
	PageID   string        `bson:"pageId" json:"page_id"`

	Message   string `bson:"message,omitempty" json:"message,omitempty"`
	MediaURL  string `bson:"mediaUrl,omitempty" json:"media_url,omitempty"`
	MediaType string `bson:"mediaType,omitempty" json:"media_type,omitempty"`
	Prompt    string `bson:"prompt,omitempty" json:"prompt,omitempty"`

	// One-shot schedule; nil for recurring jobs
	ScheduledTime *time.Time `bson:"scheduledTime,omitempty" json:"scheduled_time,omitempty"`
	// Recurring window: fires once per listed HH:mm per day, startDate..endDate inclusive
	StartDate *time.Time `bson:"startDate,omitempty" json:"start_date,omitempty"`
	EndDate   *time.Time `bson:"endDate,omitempty" json:"end_date,omitempty"`
	Times     []string   `bson:"times,omitempty" json:"times,omitempty"`

	Status       string     `bson:"status" json:"status"`
	LastRunAt    *time.Time `bson:"lastRunAt,omitempty" json:"last_run_at,omitempty"`
	RemoteID     string     `bson:"remoteId,omitempty" json:"remote_id,omitempty"`
	RemoteURL    string     `bson:"remoteUrl,omitempty" json:"remote_url,omitempty"`
	ErrorMessage string     `bson:"errorMessage,omitempty" json:"error_message,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// IsRecurring reports whether the job uses the times[]+date-range schedule.
func (j *PublishJob) IsRecurring() bool { return len(j.Times) > 0 }

// IsAutomation reports whether content is AI-generated at fire time.
func (j *PublishJob) IsAutomation() bool { return j.Prompt != "" }

// PublishContent is the generic payload handed to a platform adapter.
type PublishContent struct {
	Message   string `json:"message"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// PublishResult is the normalized adapter success response.
type PublishResult struct {
	RemoteID  string `json:"remote_id"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// PublishOutcome is the event emitted after every non-skip occurrence.
type PublishOutcome struct {
	JobID     string    `json:"job_id"`
	User      string    `json:"user"`
	Platform  string    `json:"platform"`
	PageID    string    `json:"page_id"`
	Status    string    `json:"status"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PostHistory is the append-only relational log of published occurrences.
type PostHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	User         string    `gorm:"size:64;index" json:"user"`
	JobID        string    `gorm:"size:32;index" json:"job_id"`
	Platform     string    `gorm:"size:16" json:"platform"`
	PageID       string    `gorm:"size:64" json:"page_id"`
	Caption      string    `gorm:"type:text" json:"caption"`
	MediaURL     string    `gorm:"size:512" json:"media_url"`
	RemoteID     string    `gorm:"size:128" json:"remote_id"`
	RemoteURL    string    `gorm:"size:512" json:"remote_url"`
	Status       string    `gorm:"size:16" json:"status"`
	ErrorMessage string    `gorm:"type:text" json:"error_message"`
	PostedAt     time.Time `json:"posted_at"`
}

func (PostHistory) TableName() string { return "post_history" }

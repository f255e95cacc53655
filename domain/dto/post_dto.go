package dto

// CreatePostRequest creates a manual post. Without any schedule the post is
// dispatched immediately; with scheduledTime it becomes a one-shot job; with
// startDate/endDate/times it becomes a daily-recurring job. One job is
// created per page id.
type CreatePostRequest struct {
	Platform  string   `json:"platform" binding:"required"`
	PageIDs   []string `json:"page_ids" binding:"required,min=1"`
	Message   string   `json:"message"`
	MediaURL  string   `json:"media_url"`
	MediaType string   `json:"media_type"` // image | video

	ScheduledTime string   `json:"scheduled_time"` // RFC3339, one-shot
	StartDate     string   `json:"start_date"`     // YYYY-MM-DD
	EndDate       string   `json:"end_date"`       // YYYY-MM-DD
	Times         []string `json:"times"`          // HH:mm entries
}

// CreateAutomationRequest creates an AI-recurring job: content is generated
// from the prompt at each occurrence.
type CreateAutomationRequest struct {
	Platform  string   `json:"platform" binding:"required"`
	PageIDs   []string `json:"page_ids" binding:"required,min=1"`
	Prompt    string   `json:"prompt" binding:"required"`
	StartDate string   `json:"start_date" binding:"required"`
	EndDate   string   `json:"end_date" binding:"required"`
	Times     []string `json:"times" binding:"required,min=1"`
}

// PostResult reports the outcome of one immediate dispatch.
type PostResult struct {
	PageID    string `json:"page_id"`
	Status    string `json:"status"`
	RemoteID  string `json:"remote_id,omitempty"`
	RemoteURL string `json:"remote_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DisconnectRequest removes a stored credential.
type DisconnectRequest struct {
	Platform string `json:"platform" binding:"required"`
}

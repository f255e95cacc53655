package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"
)

const defaultGraphURL = "https://graph.facebook.com/v21.0"

// Client publishes to Instagram Business accounts. Publishing is two-phase:
// create a media container, wait for Instagram to process it, then publish
// the container. Videos are processed asynchronously, so readiness is polled
// a bounded number of times before giving up.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollAttempts int
	pollInterval time.Duration
}

func NewClient() *Client {
	return &Client{
		baseURL:      defaultGraphURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollAttempts: 10,
		pollInterval: 3 * time.Second,
	}
}

// NewClientWithBase is used by tests to shorten polling and redirect traffic.
func NewClientWithBase(baseURL string, httpClient *http.Client, pollAttempts int, pollInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, pollAttempts: pollAttempts, pollInterval: pollInterval}
}

type containerParams struct {
	ImageURL    string `url:"image_url,omitempty"`
	VideoURL    string `url:"video_url,omitempty"`
	MediaType   string `url:"media_type,omitempty"`
	Caption     string `url:"caption,omitempty"`
	AccessToken string `url:"access_token"`
}

type idResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	StatusCode string `json:"status_code"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) Publish(ctx context.Context, cred *model.Credential, content model.PublishContent) (*model.PublishResult, error) {
	if content.MediaURL == "" {
		return nil, model.NewValidationError("instagram posts require media")
	}

	containerID, err := c.createContainer(ctx, cred, content)
	if err != nil {
		return nil, err
	}

	// Image containers are usually ready immediately; videos take a while.
	if content.MediaType == model.MediaTypeVideo {
		if err := c.waitForContainer(ctx, cred, containerID); err != nil {
			return nil, err
		}
	}

	return c.publishContainer(ctx, cred, containerID)
}

func (c *Client) createContainer(ctx context.Context, cred *model.Credential, content model.PublishContent) (string, error) {
	p := containerParams{Caption: content.Message, AccessToken: cred.AccessToken}
	if content.MediaType == model.MediaTypeVideo {
		p.VideoURL = content.MediaURL
		p.MediaType = "REELS"
	} else {
		p.ImageURL = content.MediaURL
	}
	var out idResponse
	if err := c.postForm(ctx, fmt.Sprintf("%s/%s/media", c.baseURL, cred.ProviderID), p, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// waitForContainer polls the container status until FINISHED. ERROR fails the
// publish; exhausting the attempts is reported as a media processing timeout
// and the container is never published.
func (c *Client) waitForContainer(ctx context.Context, cred *model.Credential, containerID string) error {
	err := utils.Poll(ctx, c.pollAttempts, c.pollInterval, func(ctx context.Context) (bool, error) {
		vals, err := query.Values(struct {
			Fields      string `url:"fields"`
			AccessToken string `url:"access_token"`
		}{Fields: "status_code", AccessToken: cred.AccessToken})
		if err != nil {
			return false, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/%s?%s", c.baseURL, containerID, vals.Encode()), nil)
		if err != nil {
			return false, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return false, model.NewRemoteAPIError(model.PlatformInstagram, err.Error())
		}
		defer resp.Body.Close()
		var st statusResponse
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return false, model.NewRemoteAPIError(model.PlatformInstagram, "malformed status response")
		}
		logger.GetLogger().
			WithField("containerId", containerID).
			WithField("status", st.StatusCode).
			Info("Instagram container status")
		switch st.StatusCode {
		case "FINISHED":
			return true, nil
		case "ERROR":
			return false, model.NewRemoteAPIError(model.PlatformInstagram, "media container processing failed")
		default:
			return false, nil
		}
	})
	if errors.Is(err, utils.ErrPollTimeout) {
		return model.NewMediaTimeoutError(model.PlatformInstagram)
	}
	return err
}

func (c *Client) publishContainer(ctx context.Context, cred *model.Credential, containerID string) (*model.PublishResult, error) {
	p := struct {
		CreationID  string `url:"creation_id"`
		AccessToken string `url:"access_token"`
	}{CreationID: containerID, AccessToken: cred.AccessToken}
	var out idResponse
	if err := c.postForm(ctx, fmt.Sprintf("%s/%s/media_publish", c.baseURL, cred.ProviderID), p, &out); err != nil {
		return nil, err
	}
	return &model.PublishResult{
		RemoteID:  out.ID,
		RemoteURL: "https://www.instagram.com/p/" + out.ID,
	}, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, params interface{}, out interface{}) error {
	vals, err := query.Values(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(vals.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewRemoteAPIError(model.PlatformInstagram, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		msg := ge.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		if ge.Error.Code == 190 {
			return &model.PublishError{Kind: model.ErrKindTokenExpired, Message: msg}
		}
		return model.NewRemoteAPIError(model.PlatformInstagram, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

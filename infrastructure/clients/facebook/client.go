package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/logger"
)

const defaultGraphURL = "https://graph.facebook.com/v21.0"

// Client publishes to Facebook Pages through the Graph API using a page
// access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageCache  cache.IPageCache
}

func NewClient(pageCache cache.IPageCache) *Client {
	return &Client{
		baseURL:    defaultGraphURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageCache:  pageCache,
	}
}

// NewClientWithBase is used by tests to point the client at a local server.
func NewClientWithBase(baseURL string, httpClient *http.Client, pageCache cache.IPageCache) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, pageCache: pageCache}
}

type feedParams struct {
	Message     string `url:"message,omitempty"`
	URL         string `url:"url,omitempty"`
	FileURL     string `url:"file_url,omitempty"`
	Caption     string `url:"caption,omitempty"`
	Description string `url:"description,omitempty"`
	AccessToken string `url:"access_token"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type publishResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// Publish posts content to the page identified by cred.ProviderID. Images go
// through /photos, videos through /videos, text through /feed.
func (c *Client) Publish(ctx context.Context, cred *model.Credential, content model.PublishContent) (*model.PublishResult, error) {
	if content.Message == "" && content.MediaURL == "" {
		return nil, model.NewValidationError("post requires a message or media url")
	}

	edge := "feed"
	p := feedParams{AccessToken: cred.AccessToken}
	switch {
	case content.MediaURL != "" && content.MediaType == model.MediaTypeVideo:
		edge = "videos"
		p.FileURL = content.MediaURL
		p.Description = content.Message
	case content.MediaURL != "":
		edge = "photos"
		p.URL = content.MediaURL
		p.Caption = content.Message
	default:
		p.Message = content.Message
	}

	vals, err := query.Values(p)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, cred.ProviderID, edge)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(vals.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewRemoteAPIError(model.PlatformFacebook, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		msg := ge.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		// Code 190 is an invalid or expired token.
		if ge.Error.Code == 190 {
			return nil, &model.PublishError{Kind: model.ErrKindTokenExpired, Message: msg}
		}
		return nil, model.NewRemoteAPIError(model.PlatformFacebook, msg)
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, model.NewRemoteAPIError(model.PlatformFacebook, "malformed publish response")
	}
	postID := out.PostID
	if postID == "" {
		postID = out.ID
	}
	return &model.PublishResult{
		RemoteID:  postID,
		RemoteURL: "https://www.facebook.com/" + postID,
	}, nil
}

type pageDetailsParams struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

type pageDetailsResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// PageDetails fetches page metadata, served from Redis when warm.
func (c *Client) PageDetails(ctx context.Context, cred *model.Credential) (*cache.PageMeta, error) {
	if c.pageCache != nil {
		if meta, err := c.pageCache.Get(ctx, model.PlatformFacebook, cred.ProviderID); err == nil && meta != nil {
			return meta, nil
		}
	}

	vals, err := query.Values(pageDetailsParams{Fields: "id,name,category", AccessToken: cred.AccessToken})
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(cred.ProviderID), vals.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewRemoteAPIError(model.PlatformFacebook, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		return nil, model.NewRemoteAPIError(model.PlatformFacebook, ge.Error.Message)
	}
	var out pageDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	meta := &cache.PageMeta{PageID: out.ID, Name: out.Name, Category: out.Category}
	if c.pageCache != nil {
		if err := c.pageCache.Set(ctx, model.PlatformFacebook, meta, time.Hour); err != nil {
			logger.GetLogger().WithField("error", err).Warn("page metadata cache write failed")
		}
	}
	return meta, nil
}

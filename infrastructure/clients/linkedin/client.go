package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

const defaultAPIURL = "https://api.linkedin.com"

// Client publishes UGC posts on behalf of a member. Image posts are
// three-phase: register an upload slot, PUT the binary, then create the post
// referencing the uploaded asset.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{baseURL: defaultAPIURL, httpClient: &http.Client{Timeout: 60 * time.Second}}
}

func NewClientWithBase(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type registerUploadRequest struct {
	RegisterUploadRequest struct {
		Recipes    []string `json:"recipes"`
		Owner      string   `json:"owner"`
		ServiceRelationships []struct {
			RelationshipType string `json:"relationshipType"`
			Identifier       string `json:"identifier"`
		} `json:"serviceRelationships"`
	} `json:"registerUploadRequest"`
}

type registerUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism struct {
			Request struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

func (c *Client) Publish(ctx context.Context, cred *model.Credential, content model.PublishContent) (*model.PublishResult, error) {
	if content.Message == "" && content.MediaURL == "" {
		return nil, model.NewValidationError("post requires a message or media url")
	}

	author := "urn:li:person:" + cred.ProviderID

	var asset string
	if content.MediaURL != "" {
		var err error
		asset, err = c.uploadMedia(ctx, cred, author, content.MediaURL)
		if err != nil {
			return nil, err
		}
	}

	body := map[string]interface{}{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent(content, asset),
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, c.baseURL+"/v2/ugcPosts", cred.AccessToken, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewRemoteAPIError(model.PlatformLinkedIn, err.Error())
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusCreated); err != nil {
		return nil, err
	}

	postID := resp.Header.Get("X-RestLi-Id")
	if postID == "" {
		var out struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		postID = out.ID
	}
	return &model.PublishResult{
		RemoteID:  postID,
		RemoteURL: "https://www.linkedin.com/feed/update/" + postID,
	}, nil
}

func shareContent(content model.PublishContent, asset string) map[string]interface{} {
	sc := map[string]interface{}{
		"shareCommentary":    map[string]string{"text": content.Message},
		"shareMediaCategory": "NONE",
	}
	if asset != "" {
		category := "IMAGE"
		if content.MediaType == model.MediaTypeVideo {
			category = "VIDEO"
		}
		sc["shareMediaCategory"] = category
		sc["media"] = []map[string]interface{}{
			{"status": "READY", "media": asset},
		}
	}
	return sc
}

// uploadMedia registers an upload slot, downloads the media from its source
// url and streams it to LinkedIn. Returns the asset URN.
func (c *Client) uploadMedia(ctx context.Context, cred *model.Credential, author, mediaURL string) (string, error) {
	reg := registerUploadRequest{}
	reg.RegisterUploadRequest.Recipes = []string{"urn:li:digitalmediaRecipe:feedshare-image"}
	reg.RegisterUploadRequest.Owner = author
	reg.RegisterUploadRequest.ServiceRelationships = []struct {
		RelationshipType string `json:"relationshipType"`
		Identifier       string `json:"identifier"`
	}{{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"}}

	req, err := c.newJSONRequest(ctx, http.MethodPost,
		c.baseURL+"/v2/assets?action=registerUpload", cred.AccessToken, reg)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", model.NewRemoteAPIError(model.PlatformLinkedIn, err.Error())
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return "", err
	}
	var out registerUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", model.NewRemoteAPIError(model.PlatformLinkedIn, "malformed registerUpload response")
	}

	media, err := c.fetchMedia(ctx, mediaURL)
	if err != nil {
		return "", err
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut,
		out.Value.UploadMechanism.Request.UploadURL, bytes.NewReader(media))
	if err != nil {
		return "", err
	}
	putReq.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		return "", model.NewRemoteAPIError(model.PlatformLinkedIn, err.Error())
	}
	defer putResp.Body.Close()
	if putResp.StatusCode >= 300 {
		return "", model.NewRemoteAPIError(model.PlatformLinkedIn,
			fmt.Sprintf("media upload returned %s", putResp.Status))
	}
	logger.GetLogger().WithField("asset", out.Value.Asset).Info("LinkedIn media uploaded")
	return out.Value.Asset, nil
}

func (c *Client) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewRemoteAPIError(model.PlatformLinkedIn, "media source unreachable: "+err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewRemoteAPIError(model.PlatformLinkedIn,
			fmt.Sprintf("media source returned %s", resp.Status))
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint, token string, body interface{}) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	return req, nil
}

func (c *Client) checkStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return &model.PublishError{Kind: model.ErrKindTokenExpired, Message: "linkedin token rejected"}
	}
	var apiErr struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = resp.Status
	}
	return model.NewRemoteAPIError(model.PlatformLinkedIn, msg)
}

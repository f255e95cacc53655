package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

const defaultAPIURL = "https://api.twitter.com"

// TwitterEndpoint is the OAuth2 endpoint pair for the X API.
var TwitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// TokenSaver persists a refreshed token pair before any retried request uses
// it, so a crash between refresh and retry cannot orphan the new pair.
type TokenSaver func(ctx context.Context, user, platform, accessToken, refreshToken string, expiresAt *time.Time) error

// Client posts tweets through the v2 API. On a 401 it refreshes the token
// pair once via OAuth2, persists the new pair, and retries the request once.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	oauthConfig *oauth2.Config
	saveTokens  TokenSaver
}

func NewClient(clientID, clientSecret string, saveTokens TokenSaver) *Client {
	return &Client{
		baseURL:    defaultAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     TwitterEndpoint,
		},
		saveTokens: saveTokens,
	}
}

// NewClientWithBase is used by tests; tokenURL overrides the refresh endpoint.
func NewClientWithBase(baseURL, tokenURL string, httpClient *http.Client, saveTokens TokenSaver) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		oauthConfig: &oauth2.Config{
			Endpoint: oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInHeader},
		},
		saveTokens: saveTokens,
	}
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func (c *Client) Publish(ctx context.Context, cred *model.Credential, content model.PublishContent) (*model.PublishResult, error) {
	text := content.Message
	if content.MediaURL != "" {
		// Media uploads need the v1.1 chunked endpoint; link the asset instead.
		if text != "" {
			text += " "
		}
		text += content.MediaURL
	}
	if text == "" {
		return nil, model.NewValidationError("tweet requires text or media url")
	}

	status, result, err := c.postTweet(ctx, cred.AccessToken, text)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && cred.RefreshToken != "" {
		token, rerr := c.refresh(ctx, cred)
		if rerr != nil {
			return nil, rerr
		}
		status, result, err = c.postTweet(ctx, token.AccessToken, text)
		if err != nil {
			return nil, err
		}
	}
	if status == http.StatusUnauthorized {
		return nil, &model.PublishError{Kind: model.ErrKindAccountNotConnected, Message: "twitter token rejected, please reconnect"}
	}
	if result == nil {
		return nil, model.NewRemoteAPIError(model.PlatformTwitter, "tweet was not created")
	}
	return result, nil
}

func (c *Client) postTweet(ctx context.Context, accessToken, text string) (int, *model.PublishResult, error) {
	payload, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, model.NewRemoteAPIError(model.PlatformTwitter, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil, nil
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Detail
		if msg == "" {
			msg = apiErr.Title
		}
		if msg == "" {
			msg = resp.Status
		}
		return resp.StatusCode, nil, model.NewRemoteAPIError(model.PlatformTwitter, msg)
	}

	var out tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return resp.StatusCode, nil, model.NewRemoteAPIError(model.PlatformTwitter, "malformed tweet response")
	}
	return resp.StatusCode, &model.PublishResult{
		RemoteID:  out.Data.ID,
		RemoteURL: "https://twitter.com/i/web/status/" + out.Data.ID,
	}, nil
}

// refresh exchanges the stored refresh token for a new pair, at most once per
// publish, and persists the pair before returning it.
func (c *Client) refresh(ctx context.Context, cred *model.Credential) (*oauth2.Token, error) {
	logger.GetLogger().WithField("user", cred.User).Info("Refreshing Twitter token")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := c.oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	})
	token, err := src.Token()
	if err != nil {
		return nil, &model.PublishError{
			Kind:    model.ErrKindAccountNotConnected,
			Message: "twitter token refresh failed, please reconnect",
			Err:     err,
		}
	}

	if c.saveTokens != nil {
		var exp *time.Time
		if !token.Expiry.IsZero() {
			e := token.Expiry
			exp = &e
		}
		if err := c.saveTokens(ctx, cred.User, model.PlatformTwitter, token.AccessToken, token.RefreshToken, exp); err != nil {
			return nil, err
		}
	}
	cred.AccessToken = token.AccessToken
	cred.RefreshToken = token.RefreshToken
	return token, nil
}

package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
)

// LinkedInEndpoint is the OAuth2 endpoint pair for LinkedIn.
var LinkedInEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
}

var linkedinScopes = []string{"openid", "profile", "w_member_social"}

type ILinkedInOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

type linkedinOAuthHandler struct {
	accounts repository.IOAuthAccount
	states   repository.IOAuthState
	apiURL   string
}

func NewLinkedInOAuthHandler(accounts repository.IOAuthAccount, states repository.IOAuthState) ILinkedInOAuthHandler {
	return &linkedinOAuthHandler{accounts: accounts, states: states, apiURL: "https://api.linkedin.com"}
}

func (h *linkedinOAuthHandler) oauthConfig() *oauth2.Config {
	conf := configuration.C.OAuth.LinkedIn
	return &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  conf.RedirectURI,
		Scopes:       linkedinScopes,
		Endpoint:     LinkedInEndpoint,
	}
}

func (h *linkedinOAuthHandler) GetAuthURL(c *gin.Context) {
	conf := configuration.C.OAuth.LinkedIn
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "linkedin oauth not configured"})
		return
	}
	state := randomState()
	err := h.states.Create(c.Request.Context(), &model.OAuthState{
		State:     state,
		User:      c.GetString("user_id"),
		Platform:  model.PlatformLinkedIn,
		ExpiresAt: time.Now().Add(10 * time.Minute).UTC(),
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while storing oauth state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state_store_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": h.oauthConfig().AuthCodeURL(state), "state": state})
}

func (h *linkedinOAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	st, err := h.states.Consume(c.Request.Context(), c.Query("state"))
	if err != nil {
		lg.WithField("error", err).Error("Error while consuming oauth state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state_lookup_failed"})
		return
	}
	if st == nil || st.Platform != model.PlatformLinkedIn {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	token, err := h.oauthConfig().Exchange(c.Request.Context(), code)
	if err != nil {
		lg.WithField("error", err).Error("linkedin code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}

	profile, err := h.fetchUserinfo(c, token.AccessToken)
	if err != nil {
		lg.WithField("error", err).Error("linkedin userinfo failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "profile_fetch_failed"})
		return
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiresAt = &e
	}
	name := profile.Name
	acc := &model.OAuthAccount{
		User:         st.User,
		Platform:     model.PlatformLinkedIn,
		ProviderID:   profile.Sub,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		Scopes:       "openid profile w_member_social",
		PageName:     &name,
	}
	if err := h.accounts.Upsert(c.Request.Context(), acc); err != nil {
		lg.WithField("error", err).Error("failed to store linkedin account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_account_failed"})
		return
	}
	if frontend := configuration.C.App.FrontendURL; frontend != "" && c.Query("frontend") == "1" {
		c.Redirect(http.StatusFound, frontend+"/accounts?connected=linkedin&name="+url.QueryEscape(profile.Name))
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "member": profile.Name})
}

func (h *linkedinOAuthHandler) Status(c *gin.Context) {
	acc, err := h.accounts.Get(c.Request.Context(), c.GetString("user_id"), model.PlatformLinkedIn)
	if err != nil || acc == nil || acc.AccessToken == "" {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	resp := gin.H{"connected": true}
	if acc.PageName != nil {
		resp["member"] = *acc.PageName
	}
	c.JSON(http.StatusOK, resp)
}

type linkedinProfile struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

func (h *linkedinOAuthHandler) fetchUserinfo(c *gin.Context, accessToken string) (*linkedinProfile, error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, h.apiURL+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out linkedinProfile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

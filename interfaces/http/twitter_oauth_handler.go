package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/twitter"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"
)

var twitterScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

type ITwitterOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	VerifySession(ctx *gin.Context)
	Status(ctx *gin.Context)
}

// Twitter connect uses OAuth2 with PKCE. The code verifier travels with the
// durable state record, so the callback can land on any instance. Mobile
// clients get a one-time session id instead of tokens in the redirect URL and
// trade it in via VerifySession.
type twitterOAuthHandler struct {
	accounts repository.IOAuthAccount
	states   repository.IOAuthState
	apiURL   string
}

func NewTwitterOAuthHandler(accounts repository.IOAuthAccount, states repository.IOAuthState) ITwitterOAuthHandler {
	return &twitterOAuthHandler{accounts: accounts, states: states, apiURL: "https://api.twitter.com"}
}

func (h *twitterOAuthHandler) oauthConfig() *oauth2.Config {
	conf := configuration.C.OAuth.Twitter
	return &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  conf.RedirectURI,
		Scopes:       twitterScopes,
		Endpoint:     twitter.TwitterEndpoint,
	}
}

func (h *twitterOAuthHandler) GetAuthURL(c *gin.Context) {
	conf := configuration.C.OAuth.Twitter
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "twitter oauth not configured"})
		return
	}
	state := randomState()
	verifier := oauth2.GenerateVerifier()
	err := h.states.Create(c.Request.Context(), &model.OAuthState{
		State:        state,
		User:         c.GetString("user_id"),
		Platform:     model.PlatformTwitter,
		CodeVerifier: verifier,
		ExpiresAt:    time.Now().Add(10 * time.Minute).UTC(),
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while storing oauth state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state_store_failed"})
		return
	}
	authURL := h.oauthConfig().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL, "state": state})
}

func (h *twitterOAuthHandler) Callback(c *gin.Context) {
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
	if st == nil || st.Platform != model.PlatformTwitter {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	token, err := h.oauthConfig().Exchange(c.Request.Context(), code, oauth2.VerifierOption(st.CodeVerifier))
	if err != nil {
		lg.WithField("error", err).Error("twitter code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}

	userInfo, err := h.fetchMe(c, token.AccessToken)
	if err != nil {
		lg.WithField("error", err).Error("twitter users/me failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "profile_fetch_failed"})
		return
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiresAt = &e
	}
	username := userInfo.Username
	acc := &model.OAuthAccount{
		User:         st.User,
		Platform:     model.PlatformTwitter,
		ProviderID:   userInfo.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		Scopes:       "tweet.read tweet.write users.read offline.access",
		PageName:     &username,
	}
	if err := h.accounts.Upsert(c.Request.Context(), acc); err != nil {
		lg.WithField("error", err).Error("failed to store twitter account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_account_failed"})
		return
	}

	// Android flow: hand back a one-time session id in the deep link instead
	// of tokens.
	if c.Query("client") == "android" {
		sessionID := uuid.NewString()
		if err := h.accounts.SetSessionID(c.Request.Context(), st.User, model.PlatformTwitter, sessionID); err != nil {
			lg.WithField("error", err).Error("failed to store session id")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session_store_failed"})
			return
		}
		c.Redirect(http.StatusFound, configuration.C.App.FrontendURL+"/auth/twitter/done?session_id="+sessionID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "username": userInfo.Username})
}

// VerifySession trades a one-time android session id for an API token and the
// connected account details. The session id is cleared on first use.
func (h *twitterOAuthHandler) VerifySession(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session_id"})
		return
	}
	acc, err := h.accounts.ConsumeSessionID(c.Request.Context(), sessionID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while consuming session id")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_lookup_failed"})
		return
	}
	if acc == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_session"})
		return
	}
	apiToken, err := utils.GenerateToken(map[string]interface{}{
		"iss": acc.User,
		"exp": time.Now().Add(30 * 24 * time.Hour).Unix(),
	}, configuration.C.App.SecretKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	username := ""
	if acc.PageName != nil {
		username = *acc.PageName
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "token": apiToken, "username": username})
}

func (h *twitterOAuthHandler) Status(c *gin.Context) {
	acc, err := h.accounts.Get(c.Request.Context(), c.GetString("user_id"), model.PlatformTwitter)
	if err != nil || acc == nil || acc.AccessToken == "" {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	resp := gin.H{"connected": true}
	if acc.PageName != nil {
		resp["username"] = *acc.PageName
	}
	c.JSON(http.StatusOK, resp)
}

type twitterUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (h *twitterOAuthHandler) fetchMe(c *gin.Context, accessToken string) (*twitterUser, error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, h.apiURL+"/2/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out struct {
		Data twitterUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

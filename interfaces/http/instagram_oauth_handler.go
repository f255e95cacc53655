package http

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
)

const instagramScopes = "instagram_basic,instagram_content_publish,pages_show_list"

type IInstagramOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

// Instagram Business publishing rides on Facebook Login: the callback walks
// user token -> pages -> instagram_business_account and stores the IG user id
// as the posting credential.
type instagramOAuthHandler struct {
	accounts repository.ISocialAccount
	states   repository.IOAuthState
	graphURL string
}

func NewInstagramOAuthHandler(accounts repository.ISocialAccount, states repository.IOAuthState) IInstagramOAuthHandler {
	return &instagramOAuthHandler{
		accounts: accounts,
		states:   states,
		graphURL: "https://graph.facebook.com/v21.0",
	}
}

func (h *instagramOAuthHandler) GetAuthURL(c *gin.Context) {
	conf := configuration.C.OAuth.Facebook
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instagram oauth not configured"})
		return
	}
	state := randomState()
	err := h.states.Create(c.Request.Context(), &model.OAuthState{
		State:     state,
		User:      c.GetString("user_id"),
		Platform:  model.PlatformInstagram,
		ExpiresAt: time.Now().Add(10 * time.Minute).UTC(),
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while storing oauth state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state_store_failed"})
		return
	}
	u := url.URL{Scheme: "https", Host: "www.facebook.com", Path: "/v21.0/dialog/oauth"}
	q := u.Query()
	q.Set("client_id", conf.ClientID)
	q.Set("redirect_uri", instagramRedirectURI(conf.RedirectURI))
	q.Set("state", state)
	q.Set("scope", instagramScopes)
	u.RawQuery = q.Encode()
	c.JSON(http.StatusOK, gin.H{"auth_url": u.String(), "state": state})
}

func (h *instagramOAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	conf := configuration.C.OAuth.Facebook
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
	if st == nil || st.Platform != model.PlatformInstagram {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	var tokenData struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	tokenURL := fmt.Sprintf("%s/oauth/access_token?client_id=%s&redirect_uri=%s&client_secret=%s&code=%s",
		h.graphURL, url.QueryEscape(conf.ClientID), url.QueryEscape(instagramRedirectURI(conf.RedirectURI)),
		url.QueryEscape(conf.ClientSecret), url.QueryEscape(code))
	if err := getJSON(tokenURL, &tokenData); err != nil {
		lg.WithField("error", err).Error("instagram token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}
	expiresAt := time.Now().Add(time.Duration(tokenData.ExpiresIn) * time.Second).UTC()

	// Walk pages looking for a linked Instagram Business account.
	var pages struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
			Instagram   *struct {
				ID string `json:"id"`
			} `json:"instagram_business_account"`
		} `json:"data"`
	}
	pagesURL := fmt.Sprintf("%s/me/accounts?fields=id,name,access_token,instagram_business_account&access_token=%s",
		h.graphURL, url.QueryEscape(tokenData.AccessToken))
	if err := getJSON(pagesURL, &pages); err != nil {
		lg.WithField("error", err).Error("instagram pages fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "pages_fetch_failed"})
		return
	}

	for _, page := range pages.Data {
		if page.Instagram == nil {
			continue
		}
		acc := &model.SocialAccount{
			User:           st.User,
			Platform:       model.PlatformInstagram,
			ProviderID:     page.Instagram.ID,
			AccessToken:    page.AccessToken,
			TokenExpiresAt: &expiresAt,
			Scopes:         splitCSV(instagramScopes),
			Meta: map[string]string{
				"pageId":   page.ID,
				"pageName": page.Name,
			},
		}
		if err := h.accounts.Upsert(c.Request.Context(), acc); err != nil {
			lg.WithField("error", err).Error("failed to store instagram account")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store_account_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": true, "ig_user_id": page.Instagram.ID, "page_name": page.Name})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "no_instagram_business_account"})
}

func (h *instagramOAuthHandler) Status(c *gin.Context) {
	acc, err := h.accounts.FindByUser(c.Request.Context(), c.GetString("user_id"), model.PlatformInstagram)
	if err != nil || acc == nil || acc.AccessToken == "" {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "ig_user_id": acc.ProviderID})
}

// instagramRedirectURI derives the Instagram callback from the configured
// Facebook redirect so the two flows stay distinguishable at the provider.
func instagramRedirectURI(fbRedirect string) string {
	u, err := url.Parse(fbRedirect)
	if err != nil {
		return fbRedirect
	}
	u.Path = "/auth/instagram/callback"
	return u.String()
}

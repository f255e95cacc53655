package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
)

const facebookScopes = "pages_show_list,pages_read_engagement,pages_manage_posts,public_profile"

type IFacebookOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

type facebookOAuthHandler struct {
	accounts repository.ISocialAccount
	states   repository.IOAuthState
	graphURL string
}

func NewFacebookOAuthHandler(accounts repository.ISocialAccount, states repository.IOAuthState) IFacebookOAuthHandler {
	return &facebookOAuthHandler{
		accounts: accounts,
		states:   states,
		graphURL: "https://graph.facebook.com/v21.0",
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GetAuthURL builds the Facebook OAuth URL (user must approve in browser).
// The state nonce is stored durably so any instance can handle the callback.
func (h *facebookOAuthHandler) GetAuthURL(c *gin.Context) {
	conf := configuration.C.OAuth.Facebook
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "facebook oauth not configured"})
		return
	}
	state := randomState()
	err := h.states.Create(c.Request.Context(), &model.OAuthState{
		State:     state,
		User:      c.GetString("user_id"),
		Platform:  model.PlatformFacebook,
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
	q.Set("redirect_uri", conf.RedirectURI)
	q.Set("state", state)
	q.Set("scope", facebookScopes)
	u.RawQuery = q.Encode()
	c.JSON(http.StatusOK, gin.H{"auth_url": u.String(), "state": state})
}

// Callback exchanges the code for a long-lived token, fetches the user's
// pages and stores the first page's token as the posting credential.
func (h *facebookOAuthHandler) Callback(c *gin.Context) {
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
	if st == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}
	userID := st.User
	if userID == "" {
		userID = c.GetString("user_id")
	}

	// 1. Exchange code for short-lived user access token
	var shortData struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	tokenURL := fmt.Sprintf("%s/oauth/access_token?client_id=%s&redirect_uri=%s&client_secret=%s&code=%s",
		h.graphURL, url.QueryEscape(conf.ClientID), url.QueryEscape(conf.RedirectURI), url.QueryEscape(conf.ClientSecret), url.QueryEscape(code))
	if err := getJSON(tokenURL, &shortData); err != nil {
		lg.WithField("error", err).Error("facebook token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}

	// 2. Exchange short-lived for long-lived token
	var llData struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	llURL := fmt.Sprintf("%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		h.graphURL, url.QueryEscape(conf.ClientID), url.QueryEscape(conf.ClientSecret), url.QueryEscape(shortData.AccessToken))
	if err := getJSON(llURL, &llData); err != nil {
		lg.WithField("error", err).Error("facebook long-lived exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "long_lived_token_failed"})
		return
	}
	expiresAt := time.Now().Add(time.Duration(llData.ExpiresIn) * time.Second).UTC()

	// 3. List pages with the long-lived user token
	var pages struct {
		Data []struct {
			Name        string `json:"name"`
			ID          string `json:"id"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	pagesURL := fmt.Sprintf("%s/me/accounts?access_token=%s", h.graphURL, url.QueryEscape(llData.AccessToken))
	if err := getJSON(pagesURL, &pages); err != nil {
		lg.WithField("error", err).Error("facebook pages fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "pages_fetch_failed"})
		return
	}
	if len(pages.Data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_pages_available"})
		return
	}
	// Auto-select first page; page selection UI comes later
	selected := pages.Data[0]

	acc := &model.SocialAccount{
		User:           userID,
		Platform:       model.PlatformFacebook,
		ProviderID:     selected.ID,
		AccessToken:    selected.AccessToken, // page token used for posting
		TokenExpiresAt: &expiresAt,
		Scopes:         splitCSV(facebookScopes),
		Meta: map[string]string{
			"pageName":  selected.Name,
			"userToken": llData.AccessToken,
		},
	}
	if err := h.accounts.Upsert(c.Request.Context(), acc); err != nil {
		lg.WithField("error", err).Error("failed to store facebook account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_account_failed"})
		return
	}
	if c.Query("frontend") == "1" {
		c.Header("Content-Type", "text/html; charset=utf-8")
		_, _ = c.Writer.Write([]byte(fmt.Sprintf(`<!DOCTYPE html><html><head><title>Facebook Connected</title></head><body><script>if (window.opener){window.opener.postMessage({source:'facebook-oauth',connected:true,page_id:'%s',page_name:%q},'*');window.close();}else{document.write('Facebook connected: %s');}</script></body></html>`, selected.ID, selected.Name, selected.Name)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "page_id": selected.ID, "page_name": selected.Name})
}

// Status reports whether a page credential is stored for the caller.
func (h *facebookOAuthHandler) Status(c *gin.Context) {
	acc, err := h.accounts.FindByUser(c.Request.Context(), c.GetString("user_id"), model.PlatformFacebook)
	if err != nil || acc == nil || acc.AccessToken == "" {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	resp := gin.H{"connected": true, "page_id": acc.ProviderID}
	if name, ok := acc.Meta["pageName"]; ok {
		resp["page_name"] = name
	}
	c.JSON(http.StatusOK, resp)
}

func getJSON(rawURL string, out interface{}) error {
	resp, err := http.Get(rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

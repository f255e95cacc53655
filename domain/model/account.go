package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Credential is the unified view over both physical credential stores: the
// Mongo social_accounts collection (keyed by provider-issued page/account id)
// and the SQL oauth_accounts table (keyed by user+platform). Platform-specific
// fields live in Meta as opaque values.
type Credential struct {
	User           string            `json:"user"`
	Platform       string            `json:"platform"`
	ProviderID     string            `json:"provider_id"`
	AccessToken    string            `json:"-"`
	RefreshToken   string            `json:"-"`
	TokenExpiresAt *time.Time        `json:"token_expires_at,omitempty"`
	Scopes         []string          `json:"scopes,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// SocialAccount is the Mongo-backed credential record.
type SocialAccount struct {
	ID             bson.ObjectID     `bson:"_id,omitempty" json:"id"`
	User           string            `bson:"user" json:"user"`
	Platform       string            `bson:"platform" json:"platform"`
	ProviderID     string            `bson:"providerId" json:"provider_id"`
	AccessToken    string            `bson:"accessToken" json:"-"`
	RefreshToken   string            `bson:"refreshToken,omitempty" json:"-"`
	Scopes         []string          `bson:"scopes,omitempty" json:"scopes,omitempty"`
	TokenExpiresAt *time.Time        `bson:"tokenExpiresAt,omitempty" json:"token_expires_at,omitempty"`
	Meta           map[string]string `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt" json:"created_at"`
	UpdatedAt      time.Time         `bson:"updatedAt" json:"updated_at"`
}

// Credential flattens the account into the unified credential view.
func (a *SocialAccount) Credential() *Credential {
	return &Credential{
		User:           a.User,
		Platform:       a.Platform,
		ProviderID:     a.ProviderID,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenExpiresAt: a.TokenExpiresAt,
		Scopes:         a.Scopes,
		Meta:           a.Meta,
	}
}

// OAuthAccount is the SQL-backed credential record, one row per user+platform.
type OAuthAccount struct {
	ID           int64      `json:"id"`
	User         string     `json:"user"`
	Platform     string     `json:"platform"`
	ProviderID   string     `json:"provider_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       string     `json:"scopes"`
	PageName     *string    `json:"page_name,omitempty"`
	SessionID    *string    `json:"-"` // android deep-link handshake token, cleared on verify
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Credential flattens the account into the unified credential view.
func (a *OAuthAccount) Credential() *Credential {
	meta := map[string]string{}
	if a.PageName != nil {
		meta["pageName"] = *a.PageName
	}
	return &Credential{
		User:           a.User,
		Platform:       a.Platform,
		ProviderID:     a.ProviderID,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenExpiresAt: a.ExpiresAt,
		Scopes:         splitScopes(a.Scopes),
		Meta:           meta,
	}
}

func splitScopes(s string) []string {
	out := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(out) == 0 {
		return nil
	}
	return out
}

// OAuthState is a pending OAuth handshake keyed by a random nonce. Records are
// written with an expiry and reaped by a Mongo TTL index, so a restarted or
// scaled-out process can still complete the callback.
type OAuthState struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	State        string        `bson:"state" json:"state"`
	User         string        `bson:"user" json:"user"`
	Platform     string        `bson:"platform" json:"platform"`
	CodeVerifier string        `bson:"codeVerifier,omitempty" json:"-"`
	CreatedAt    time.Time     `bson:"createdAt" json:"created_at"`
	ExpiresAt    time.Time     `bson:"expiresAt" json:"expires_at"`
}

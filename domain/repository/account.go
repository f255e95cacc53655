package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// ISocialAccount is the Mongo-backed credential store keyed by the
// provider-issued page/account id. Lookups that find nothing return
// (nil, nil).
type ISocialAccount interface {
	FindByProvider(ctx context.Context, providerID, platform string) (*model.SocialAccount, error)
	FindByUser(ctx context.Context, user, platform string) (*model.SocialAccount, error)
	ListByUser(ctx context.Context, user string) ([]*model.SocialAccount, error)
	Upsert(ctx context.Context, acc *model.SocialAccount) error
	Delete(ctx context.Context, user, platform string) error
}

// IOAuthAccount is the SQL-backed credential store keyed by user+platform.
// Lookups that find nothing return (nil, nil).
type IOAuthAccount interface {
	Get(ctx context.Context, user, platform string) (*model.OAuthAccount, error)
	FindByProvider(ctx context.Context, providerID, platform string) (*model.OAuthAccount, error)
	Upsert(ctx context.Context, acc *model.OAuthAccount) error
	// UpdateTokens persists a refreshed token pair before any retried call.
	UpdateTokens(ctx context.Context, user, platform, accessToken, refreshToken string, expiresAt *time.Time) error
	SetSessionID(ctx context.Context, user, platform, sessionID string) error
	// ConsumeSessionID resolves an android deep-link session and clears it.
	ConsumeSessionID(ctx context.Context, sessionID string) (*model.OAuthAccount, error)
	Delete(ctx context.Context, user, platform string) error
}

// IOAuthState stores pending OAuth handshakes durably with a TTL.
type IOAuthState interface {
	Create(ctx context.Context, st *model.OAuthState) error
	// Consume returns and deletes the record for state; (nil, nil) when the
	// nonce is unknown or expired.
	Consume(ctx context.Context, state string) (*model.OAuthState, error)
}

// IPostHistory is the append-only relational log of publish occurrences.
type IPostHistory interface {
	Append(ctx context.Context, h *model.PostHistory) error
	ListByUser(ctx context.Context, user string, limit int) ([]*model.PostHistory, error)
}

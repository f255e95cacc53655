package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
)

// OAuthAccountRepository is the SQL credential store keyed by user+platform.
// Twitter and LinkedIn user-token connections live here; page-scoped accounts
// live in the Mongo social-account store.
type OAuthAccountRepository struct{ db *sql.DB }

func NewOAuthAccountRepository(db *sql.DB) *OAuthAccountRepository {
	return &OAuthAccountRepository{db: db}
}

// EnsureOAuthAccountSchema creates the oauth_accounts table if missing.
// Safe to call at startup.
func EnsureOAuthAccountSchema(db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS oauth_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		provider_id TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NULL,
		scopes TEXT NOT NULL DEFAULT '',
		page_name TEXT NULL,
		session_id TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, platform)
	)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create oauth_accounts: %w", err)
	}
	return nil
}

const oauthAccountColumns = `id, user_id, platform, provider_id, access_token, refresh_token, expires_at, scopes, page_name, session_id, created_at, updated_at`

func (r *OAuthAccountRepository) Upsert(ctx context.Context, a *model.OAuthAccount) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	q := `INSERT INTO oauth_accounts (user_id, platform, provider_id, access_token, refresh_token, expires_at, scopes, page_name, session_id, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		  ON CONFLICT (user_id, platform) DO UPDATE SET
			provider_id=EXCLUDED.provider_id,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			page_name=EXCLUDED.page_name,
			session_id=EXCLUDED.session_id,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, a.User, a.Platform, a.ProviderID, a.AccessToken, a.RefreshToken, a.ExpiresAt, a.Scopes, a.PageName, a.SessionID, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *OAuthAccountRepository) Get(ctx context.Context, user, platform string) (*model.OAuthAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+oauthAccountColumns+` FROM oauth_accounts WHERE user_id=$1 AND platform=$2`, user, platform)
	return scanOAuthAccount(row)
}

func (r *OAuthAccountRepository) FindByProvider(ctx context.Context, providerID, platform string) (*model.OAuthAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+oauthAccountColumns+` FROM oauth_accounts WHERE provider_id=$1 AND platform=$2`, providerID, platform)
	return scanOAuthAccount(row)
}

// UpdateTokens persists a refreshed token pair. Called by the Twitter adapter
// before any retried publish so a crash between refresh and retry cannot lose
// the new pair.
func (r *OAuthAccountRepository) UpdateTokens(ctx context.Context, user, platform, accessToken, refreshToken string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_accounts SET access_token=$1, refresh_token=$2, expires_at=$3, updated_at=$4 WHERE user_id=$5 AND platform=$6`,
		accessToken, refreshToken, expiresAt, time.Now().UTC(), user, platform)
	return err
}

func (r *OAuthAccountRepository) SetSessionID(ctx context.Context, user, platform, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_accounts SET session_id=$1, updated_at=$2 WHERE user_id=$3 AND platform=$4`,
		sessionID, time.Now().UTC(), user, platform)
	return err
}

// ConsumeSessionID resolves an android deep-link session and clears it so the
// handshake token is single-use.
func (r *OAuthAccountRepository) ConsumeSessionID(ctx context.Context, sessionID string) (*model.OAuthAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE oauth_accounts SET session_id=NULL, updated_at=$1 WHERE session_id=$2 RETURNING `+oauthAccountColumns,
		time.Now().UTC(), sessionID)
	return scanOAuthAccount(row)
}

func (r *OAuthAccountRepository) Delete(ctx context.Context, user, platform string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM oauth_accounts WHERE user_id=$1 AND platform=$2`, user, platform)
	return err
}

func scanOAuthAccount(row *sql.Row) (*model.OAuthAccount, error) {
	a := &model.OAuthAccount{}
	var exp sql.NullTime
	var pageName, sessionID sql.NullString
	err := row.Scan(&a.ID, &a.User, &a.Platform, &a.ProviderID, &a.AccessToken, &a.RefreshToken, &exp, &a.Scopes, &pageName, &sessionID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if exp.Valid {
		a.ExpiresAt = &exp.Time
	}
	if pageName.Valid {
		v := pageName.String
		a.PageName = &v
	}
	if sessionID.Valid {
		v := sessionID.String
		a.SessionID = &v
	}
	return a, nil
}

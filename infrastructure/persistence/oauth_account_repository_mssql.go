package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
)

// OAuthAccountRepositoryMSSQL is the Azure SQL variant of the oauth-account
// store, used where the Postgres store is not deployed.
type OAuthAccountRepositoryMSSQL struct{ db *sql.DB }

func NewOAuthAccountRepositoryMSSQL(db *sql.DB) *OAuthAccountRepositoryMSSQL {
	return &OAuthAccountRepositoryMSSQL{db: db}
}

func EnsureOAuthAccountSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = 'oauth_accounts')
	CREATE TABLE oauth_accounts (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		user_id NVARCHAR(128) NOT NULL,
		platform NVARCHAR(32) NOT NULL,
		provider_id NVARCHAR(256) NOT NULL DEFAULT '',
		access_token NVARCHAR(MAX) NOT NULL,
		refresh_token NVARCHAR(MAX) NOT NULL DEFAULT '',
		expires_at DATETIMEOFFSET NULL,
		scopes NVARCHAR(1024) NOT NULL DEFAULT '',
		page_name NVARCHAR(256) NULL,
		session_id NVARCHAR(128) NULL,
		created_at DATETIMEOFFSET NOT NULL,
		updated_at DATETIMEOFFSET NOT NULL,
		CONSTRAINT uq_oauth_accounts_user_platform UNIQUE (user_id, platform)
	)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create oauth_accounts: %w", err)
	}
	return nil
}

func (r *OAuthAccountRepositoryMSSQL) Upsert(ctx context.Context, a *model.OAuthAccount) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	q := `MERGE oauth_accounts AS target
	USING (SELECT @p1 AS user_id, @p2 AS platform) AS src
	ON target.user_id = src.user_id AND target.platform = src.platform
	WHEN MATCHED THEN UPDATE SET
		provider_id = @p3, access_token = @p4, refresh_token = @p5,
		expires_at = @p6, scopes = @p7, page_name = @p8, session_id = @p9,
		updated_at = @p11
	WHEN NOT MATCHED THEN INSERT
		(user_id, platform, provider_id, access_token, refresh_token, expires_at, scopes, page_name, session_id, created_at, updated_at)
		VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11);`
	_, err := r.db.ExecContext(ctx, q, a.User, a.Platform, a.ProviderID, a.AccessToken, a.RefreshToken, a.ExpiresAt, a.Scopes, a.PageName, a.SessionID, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *OAuthAccountRepositoryMSSQL) Get(ctx context.Context, user, platform string) (*model.OAuthAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oauthAccountColumns+` FROM oauth_accounts WHERE user_id = @p1 AND platform = @p2`, user, platform)
	return scanOAuthAccount(row)
}

func (r *OAuthAccountRepositoryMSSQL) FindByProvider(ctx context.Context, providerID, platform string) (*model.OAuthAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oauthAccountColumns+` FROM oauth_accounts WHERE provider_id = @p1 AND platform = @p2`, providerID, platform)
	return scanOAuthAccount(row)
}

func (r *OAuthAccountRepositoryMSSQL) UpdateTokens(ctx context.Context, user, platform, accessToken, refreshToken string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_accounts SET access_token = @p1, refresh_token = @p2, expires_at = @p3, updated_at = @p4 WHERE user_id = @p5 AND platform = @p6`,
		accessToken, refreshToken, expiresAt, time.Now().UTC(), user, platform)
	return err
}

func (r *OAuthAccountRepositoryMSSQL) SetSessionID(ctx context.Context, user, platform, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_accounts SET session_id = @p1, updated_at = @p2 WHERE user_id = @p3 AND platform = @p4`,
		sessionID, time.Now().UTC(), user, platform)
	return err
}

// ConsumeSessionID is two statements here; MSSQL has no UPDATE ... RETURNING
// of the full row without OUTPUT plumbing, and the session nonce is already
// random enough that the small window is acceptable.
func (r *OAuthAccountRepositoryMSSQL) ConsumeSessionID(ctx context.Context, sessionID string) (*model.OAuthAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oauthAccountColumns+` FROM oauth_accounts WHERE session_id = @p1`, sessionID)
	acc, err := scanOAuthAccount(row)
	if err != nil || acc == nil {
		return acc, err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE oauth_accounts SET session_id = NULL, updated_at = @p1 WHERE session_id = @p2`,
		time.Now().UTC(), sessionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return acc, nil
}

func (r *OAuthAccountRepositoryMSSQL) Delete(ctx context.Context, user, platform string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM oauth_accounts WHERE user_id = @p1 AND platform = @p2`, user, platform)
	return err
}

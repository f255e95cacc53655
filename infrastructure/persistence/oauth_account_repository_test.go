package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

func oauthAccountRows(createdAt, updatedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "platform", "provider_id", "access_token", "refresh_token",
		"expires_at", "scopes", "page_name", "session_id", "created_at", "updated_at",
	}).AddRow(
		int64(1), "user-1", model.PlatformTwitter, "tw-42", "access", "refresh",
		nil, "tweet.read tweet.write", "handle", nil, createdAt, updatedAt,
	)
}

func TestOAuthAccountRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewOAuthAccountRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + oauthAccountColumns + ` FROM oauth_accounts WHERE user_id=$1 AND platform=$2`)).
		WithArgs("user-1", model.PlatformTwitter).
		WillReturnRows(oauthAccountRows(now, now))

	acc, err := repository.Get(context.Background(), "user-1", model.PlatformTwitter)

	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, "user-1", acc.User)
	require.Equal(t, "tw-42", acc.ProviderID)
	require.Equal(t, "access", acc.AccessToken)
	require.Nil(t, acc.ExpiresAt)
	require.NotNil(t, acc.PageName)
	require.Equal(t, "handle", *acc.PageName)
	require.Nil(t, acc.SessionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthAccountRepository_GetMissingReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewOAuthAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + oauthAccountColumns + ` FROM oauth_accounts WHERE user_id=$1 AND platform=$2`)).
		WithArgs("user-1", model.PlatformLinkedIn).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "platform", "provider_id", "access_token", "refresh_token",
			"expires_at", "scopes", "page_name", "session_id", "created_at", "updated_at",
		}))

	acc, err := repository.Get(context.Background(), "user-1", model.PlatformLinkedIn)

	require.NoError(t, err)
	require.Nil(t, acc)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthAccountRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewOAuthAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO oauth_accounts`)).
		WithArgs("user-1", model.PlatformTwitter, "tw-42", "access", "refresh",
			nil, "tweet.read", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	acc := &model.OAuthAccount{
		User:         "user-1",
		Platform:     model.PlatformTwitter,
		ProviderID:   "tw-42",
		AccessToken:  "access",
		RefreshToken: "refresh",
		Scopes:       "tweet.read",
	}
	err = repository.Upsert(context.Background(), acc)

	require.NoError(t, err)
	require.False(t, acc.CreatedAt.IsZero())
	require.False(t, acc.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthAccountRepository_UpdateTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewOAuthAccountRepository(db)
	exp := time.Now().Add(2 * time.Hour).UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE oauth_accounts SET access_token=$1, refresh_token=$2, expires_at=$3, updated_at=$4 WHERE user_id=$5 AND platform=$6`)).
		WithArgs("new-access", "new-refresh", &exp, sqlmock.AnyArg(), "user-1", model.PlatformTwitter).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repository.UpdateTokens(context.Background(), "user-1", model.PlatformTwitter, "new-access", "new-refresh", &exp)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthAccountRepository_ConsumeSessionID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewOAuthAccountRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE oauth_accounts SET session_id=NULL, updated_at=$1 WHERE session_id=$2 RETURNING ` + oauthAccountColumns)).
		WithArgs(sqlmock.AnyArg(), "session-xyz").
		WillReturnRows(oauthAccountRows(now, now))

	acc, err := repository.ConsumeSessionID(context.Background(), "session-xyz")

	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, "user-1", acc.User)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthAccountRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewOAuthAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM oauth_accounts WHERE user_id=$1 AND platform=$2`)).
		WithArgs("user-1", model.PlatformLinkedIn).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repository.Delete(context.Background(), "user-1", model.PlatformLinkedIn)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthAccountRepository_GetQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewOAuthAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + oauthAccountColumns + ` FROM oauth_accounts`)).
		WillReturnError(fmt.Errorf("connection reset"))

	acc, err := repository.Get(context.Background(), "user-1", model.PlatformTwitter)

	require.Error(t, err)
	require.Nil(t, acc)
	require.NoError(t, mock.ExpectationsWereMet())
}

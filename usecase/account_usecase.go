package usecase

import (
	"context"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// IAccountUsecase lists and disconnects a user's connected platform accounts
// across both credential stores.
type IAccountUsecase interface {
	List(ctx context.Context, user string) ([]*model.Credential, error)
	Disconnect(ctx context.Context, user, platform string) error
}

type accountUsecase struct {
	social repository.ISocialAccount
	oauth  repository.IOAuthAccount
}

func NewAccountUsecase(social repository.ISocialAccount, oauth repository.IOAuthAccount) IAccountUsecase {
	return &accountUsecase{social: social, oauth: oauth}
}

func (u *accountUsecase) List(ctx context.Context, user string) ([]*model.Credential, error) {
	var out []*model.Credential

	accounts, err := u.social.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, acc := range accounts {
		out = append(out, acc.Credential())
		seen[acc.Platform] = struct{}{}
	}

	for platform := range supportedPlatforms {
		if _, ok := seen[platform]; ok {
			continue
		}
		oa, err := u.oauth.Get(ctx, user, platform)
		if err != nil {
			return nil, err
		}
		if oa != nil {
			out = append(out, oa.Credential())
		}
	}
	return out, nil
}

// Disconnect removes the credential from both stores. Jobs referencing the
// account stay and will fail with account_not_connected until reconnected.
func (u *accountUsecase) Disconnect(ctx context.Context, user, platform string) error {
	if _, ok := supportedPlatforms[platform]; !ok {
		return model.NewValidationError("unsupported platform: %s", platform)
	}
	if err := u.social.Delete(ctx, user, platform); err != nil {
		return err
	}
	return u.oauth.Delete(ctx, user, platform)
}

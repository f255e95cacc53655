package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"social-publisher/domain/model"
)

// SocialAccountRepository stores connected platform accounts in Mongo, one
// document per user+platform, looked up by the provider-issued page/account
// id at dispatch time.
type SocialAccountRepository struct {
	col *mongo.Collection
}

func NewSocialAccountRepository(db *mongo.Database) *SocialAccountRepository {
	return &SocialAccountRepository{col: db.Collection("social_accounts")}
}

func (r *SocialAccountRepository) EnsureAccountIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "platform", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "providerId", Value: 1}, {Key: "platform", Value: 1}}},
	})
	return err
}

func (r *SocialAccountRepository) FindByProvider(ctx context.Context, providerID, platform string) (*model.SocialAccount, error) {
	var acc model.SocialAccount
	err := r.col.FindOne(ctx, bson.M{"providerId": providerID, "platform": platform}).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *SocialAccountRepository) FindByUser(ctx context.Context, user, platform string) (*model.SocialAccount, error) {
	var acc model.SocialAccount
	err := r.col.FindOne(ctx, bson.M{"user": user, "platform": platform}).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *SocialAccountRepository) ListByUser(ctx context.Context, user string) ([]*model.SocialAccount, error) {
	cur, err := r.col.Find(ctx, bson.M{"user": user})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var accounts []*model.SocialAccount
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *SocialAccountRepository) Upsert(ctx context.Context, acc *model.SocialAccount) error {
	now := time.Now().UTC()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now
	filter := bson.M{"user": acc.User, "platform": acc.Platform}
	update := bson.M{"$set": bson.M{
		"providerId":     acc.ProviderID,
		"accessToken":    acc.AccessToken,
		"refreshToken":   acc.RefreshToken,
		"scopes":         acc.Scopes,
		"tokenExpiresAt": acc.TokenExpiresAt,
		"meta":           acc.Meta,
		"updatedAt":      acc.UpdatedAt,
	}, "$setOnInsert": bson.M{
		"user":      acc.User,
		"platform":  acc.Platform,
		"createdAt": acc.CreatedAt,
	}}
	_, err := r.col.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (r *SocialAccountRepository) Delete(ctx context.Context, user, platform string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"user": user, "platform": platform})
	return err
}

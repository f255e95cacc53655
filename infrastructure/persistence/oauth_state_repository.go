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

// OAuthStateRepository persists pending OAuth handshakes. Records live in the
// same durable store as credentials and expire via a Mongo TTL index, so a
// restarted process or another instance can complete any callback.
type OAuthStateRepository struct {
	col *mongo.Collection
}

func NewOAuthStateRepository(db *mongo.Database) *OAuthStateRepository {
	return &OAuthStateRepository{col: db.Collection("oauth_states")}
}

func (r *OAuthStateRepository) EnsureStateIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	return err
}

func (r *OAuthStateRepository) Create(ctx context.Context, st *model.OAuthState) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, st)
	return err
}

// Consume fetches and deletes the handshake in one operation; each nonce is
// single-use. Expired-but-unreaped records are treated as absent.
func (r *OAuthStateRepository) Consume(ctx context.Context, state string) (*model.OAuthState, error) {
	filter := bson.M{"state": state, "expiresAt": bson.M{"$gt": time.Now().UTC()}}
	var st model.OAuthState
	err := r.col.FindOneAndDelete(ctx, filter).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

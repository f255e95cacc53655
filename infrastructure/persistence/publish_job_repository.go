package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"social-publisher/domain/model"
)

// PublishJobRepository implements job persistence on MongoDB. The scheduler's
// idempotency rests on the conditional updates here, not on in-memory locks,
// so overlapping ticks and multiple scheduler instances stay safe.
type PublishJobRepository struct {
	col *mongo.Collection
}

func NewPublishJobRepository(db *mongo.Database) *PublishJobRepository {
	return &PublishJobRepository{col: db.Collection("publish_jobs")}
}

// EnsureJobIndexes creates the indexes the due-job queries rely on.
func (r *PublishJobRepository) EnsureJobIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "times", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledTime", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	})
	return err
}

func (r *PublishJobRepository) Create(ctx context.Context, job *model.PublishJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobStatusScheduled
	}
	res, err := r.col.InsertOne(ctx, job)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		job.ID = oid
	}
	return nil
}

func (r *PublishJobRepository) GetByID(ctx context.Context, id string) (*model.PublishJob, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var job model.PublishJob
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *PublishJobRepository) ListByUser(ctx context.Context, user string) ([]*model.PublishJob, error) {
	cur, err := r.col.Find(ctx, bson.M{"user": user})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var jobs []*model.PublishJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindDueRecurring matches jobs listing timeOfDay. Failed recurring jobs are
// included so a failed occurrence does not block the next day's occurrence.
func (r *PublishJobRepository) FindDueRecurring(ctx context.Context, timeOfDay string) ([]*model.PublishJob, error) {
	filter := bson.M{
		"times":  timeOfDay,
		"status": bson.M{"$in": []string{model.JobStatusScheduled, model.JobStatusFailed}},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var jobs []*model.PublishJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *PublishJobRepository) FindDueOneShot(ctx context.Context, now time.Time) ([]*model.PublishJob, error) {
	filter := bson.M{
		"status":        model.JobStatusScheduled,
		"scheduledTime": bson.M{"$lte": now},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var jobs []*model.PublishJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimOccurrence is the dedup guard: a single conditional update that only
// matches while lastRunAt predates the occurrence minute. Whichever tick
// modifies the document owns the occurrence; everyone else sees
// ModifiedCount 0 and skips.
func (r *PublishJobRepository) ClaimOccurrence(ctx context.Context, id string, occurrenceStart, runAt time.Time) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}
	filter := bson.M{
		"_id":    oid,
		"status": bson.M{"$in": []string{model.JobStatusScheduled, model.JobStatusFailed}},
		"$or": bson.A{
			bson.M{"lastRunAt": bson.M{"$exists": false}},
			bson.M{"lastRunAt": bson.M{"$lt": occurrenceStart}},
		},
	}
	update := bson.M{"$set": bson.M{
		"status":    model.JobStatusScheduled,
		"lastRunAt": runAt,
		"updatedAt": runAt,
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// FinalizeSuccess writes status, remote ids and lastRunAt together so no
// reader ever observes a half-updated outcome.
func (r *PublishJobRepository) FinalizeSuccess(ctx context.Context, id, status string, result *model.PublishResult, runAt time.Time) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"remoteId":  result.RemoteID,
			"remoteUrl": result.RemoteURL,
			"lastRunAt": runAt,
			"updatedAt": runAt,
		},
		"$unset": bson.M{"errorMessage": ""},
	}
	_, err = r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *PublishJobRepository) FinalizeFailure(ctx context.Context, id, message string, runAt time.Time) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"status":       model.JobStatusFailed,
		"errorMessage": message,
		"lastRunAt":    runAt,
		"updatedAt":    runAt,
	}}
	_, err = r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

// DeleteScheduled removes the job only while it is still scheduled and owned
// by user, so an in-flight occurrence cannot race a delete.
func (r *PublishJobRepository) DeleteScheduled(ctx context.Context, id, user string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid, "user": user, "status": model.JobStatusScheduled})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

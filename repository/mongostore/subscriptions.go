package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/repository"
)

type SubscriptionRepo struct {
	col *mongo.Collection
}

func (r *SubscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID.IsZero() {
		sub.ID = bson.NewObjectID()
	}
	sub.CreatedAt = time.Now().UTC()

	if _, err := r.col.InsertOne(ctx, sub); err != nil {
		if isDuplicateKey(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, subscriber, channel bson.ObjectID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"subscriber": subscriber, "channel": channel})
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *SubscriptionRepo) CountSubscribers(ctx context.Context, channel bson.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"channel": channel})
}

func (r *SubscriptionRepo) CountSubscriptions(ctx context.Context, subscriber bson.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"subscriber": subscriber})
}

func (r *SubscriptionRepo) IsSubscribed(ctx context.Context, subscriber, channel bson.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"subscriber": subscriber, "channel": channel})
	return n > 0, err
}

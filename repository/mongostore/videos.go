package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/princinho/tubebackend/models"
)

type VideoRepo struct {
	col *mongo.Collection
}

func (r *VideoRepo) Create(ctx context.Context, video *models.Video) error {
	now := time.Now().UTC()
	if video.ID.IsZero() {
		video.ID = bson.NewObjectID()
	}
	video.CreatedAt = now
	video.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, video); err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *VideoRepo) FindByID(ctx context.Context, id bson.ObjectID) (models.Video, error) {
	var video models.Video
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		return models.Video{}, notFoundOr(err)
	}
	return video, nil
}

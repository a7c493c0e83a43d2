package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/repository"
	"github.com/princinho/tubebackend/utils"
)

type UserRepo struct {
	col *mongo.Collection
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.Username = utils.NormalizeUsername(user.Username)
	user.Email = utils.NormalizeEmail(user.Email)
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if user.WatchHistory == nil {
		user.WatchHistory = []bson.ObjectID{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id bson.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, bson.M{"username": utils.NormalizeUsername(username)})
}

func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": utils.NormalizeUsername(username)})
	}
	if email != "" {
		or = append(or, bson.M{"email": utils.NormalizeEmail(email)})
	}
	if len(or) == 0 {
		return models.User{}, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		return models.User{}, notFoundOr(err)
	}
	return user, nil
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()},
	})
}

func (r *UserRepo) SwapRefreshToken(ctx context.Context, id bson.ObjectID, current, next string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "refreshToken": current},
		bson.M{"$set": bson.M{"refreshToken": next, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrTokenMismatch
	}
	return nil
}

func (r *UserRepo) UnsetRefreshToken(ctx context.Context, id bson.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"refreshToken": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"password": hash, "updatedAt": time.Now().UTC()},
	})
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id bson.ObjectID, update models.ProfileUpdate) (models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Fullname != nil {
		set["fullname"] = *update.Fullname
	}
	if update.Email != nil {
		set["email"] = utils.NormalizeEmail(*update.Email)
	}
	if update.AvatarURL != nil {
		set["avatar"] = *update.AvatarURL
	}
	if update.CoverURL != nil {
		set["coverImage"] = *update.CoverURL
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if isDuplicateKey(err) {
			return models.User{}, repository.ErrDuplicate
		}
		return models.User{}, notFoundOr(err)
	}
	return user, nil
}

// AppendWatchHistory removes any earlier occurrence of videoID and pushes it
// to the end in a single pipeline update.
func (r *UserRepo) AppendWatchHistory(ctx context.Context, id, videoID bson.ObjectID) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "watchHistory", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$watchHistory", bson.A{}}}}},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", videoID}}}},
				}}},
				bson.A{videoID},
			}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
	return r.updateByID(ctx, id, update)
}

func (r *UserRepo) updateByID(ctx context.Context, id bson.ObjectID, update any) error {
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

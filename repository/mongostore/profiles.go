package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/princinho/tubebackend/database"
	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/repository"
	"github.com/princinho/tubebackend/utils"
)

// ProfileRepo runs the channel and watch history aggregations over the
// users collection. Each stage is built by its own function below so the
// pipelines can be inspected in tests.
type ProfileRepo struct {
	users *mongo.Collection
}

func (r *ProfileRepo) ChannelProfile(ctx context.Context, username string, viewer *bson.ObjectID) (models.ChannelView, error) {
	cursor, err := r.users.Aggregate(ctx, channelProfilePipeline(username, viewer))
	if err != nil {
		return models.ChannelView{}, fmt.Errorf("aggregate channel profile: %w", err)
	}

	var channels []models.ChannelView
	if err := cursor.All(ctx, &channels); err != nil {
		return models.ChannelView{}, fmt.Errorf("decode channel profile: %w", err)
	}
	if len(channels) == 0 {
		return models.ChannelView{}, repository.ErrNotFound
	}
	return channels[0], nil
}

func (r *ProfileRepo) WatchHistory(ctx context.Context, userID bson.ObjectID) ([]models.VideoView, error) {
	cursor, err := r.users.Aggregate(ctx, watchHistoryPipeline(userID))
	if err != nil {
		return nil, fmt.Errorf("aggregate watch history: %w", err)
	}

	var rows []struct {
		WatchHistory []models.VideoView `bson:"watchHistory"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode watch history: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	if rows[0].WatchHistory == nil {
		return []models.VideoView{}, nil
	}
	return rows[0].WatchHistory, nil
}

func channelProfilePipeline(username string, viewer *bson.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		matchUsernameStage(username),
		lookupSubscriptionsStage("channel", "subscribers"),
		lookupSubscriptionsStage("subscriber", "subscribedTo"),
		channelCountsStage(viewer),
		projectChannelStage(),
		{{Key: "$limit", Value: 1}},
	}
}

func watchHistoryPipeline(userID bson.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		matchUserStage(userID),
		lookupWatchHistoryStage(),
		orderWatchHistoryStage(),
	}
}

// Usernames are stored normalised, so an equality match on the normalised
// input is a case-insensitive match.
func matchUsernameStage(username string) bson.D {
	return bson.D{{Key: "$match", Value: bson.D{
		{Key: "username", Value: utils.NormalizeUsername(username)},
	}}}
}

func lookupSubscriptionsStage(foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: database.SubscriptionsCollection},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: foreignField},
		{Key: "as", Value: as},
	}}}
}

// channelCountsStage tests the viewer against the subscriber side of edges
// whose channel is the matched user.
func channelCountsStage(viewer *bson.ObjectID) bson.D {
	var isSubscribed any = bson.D{{Key: "$literal", Value: false}}
	if viewer != nil {
		isSubscribed = bson.D{{Key: "$in", Value: bson.A{*viewer, "$subscribers.subscriber"}}}
	}

	return bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "subscribersCount", Value: bson.D{{Key: "$size", Value: "$subscribers"}}},
		{Key: "channelsSubscribedToCount", Value: bson.D{{Key: "$size", Value: "$subscribedTo"}}},
		{Key: "isSubscribed", Value: isSubscribed},
	}}}
}

func projectChannelStage() bson.D {
	return bson.D{{Key: "$project", Value: bson.D{
		{Key: "fullname", Value: 1},
		{Key: "username", Value: 1},
		{Key: "email", Value: 1},
		{Key: "avatar", Value: 1},
		{Key: "coverImage", Value: 1},
		{Key: "subscribersCount", Value: 1},
		{Key: "channelsSubscribedToCount", Value: 1},
		{Key: "isSubscribed", Value: 1},
	}}}
}

func matchUserStage(userID bson.ObjectID) bson.D {
	return bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}}
}

func lookupWatchHistoryStage() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: database.VideosCollection},
		{Key: "localField", Value: "watchHistory"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "watchedVideos"},
		{Key: "pipeline", Value: joinOwnerStages()},
	}}}
}

// joinOwnerStages replaces a video's owner id with the reduced owner view.
func joinOwnerStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.UsersCollection},
			{Key: "localField", Value: "owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
			{Key: "pipeline", Value: mongo.Pipeline{
				{{Key: "$project", Value: bson.D{
					{Key: "fullname", Value: 1},
					{Key: "username", Value: 1},
					{Key: "avatar", Value: 1},
				}}},
			}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "owner", Value: bson.D{{Key: "$first", Value: "$owner"}}},
		}}},
	}
}

// $lookup does not keep the order of localField, so the joined videos are
// mapped back onto the stored id list. Ids with no video left are dropped.
func orderWatchHistoryStage() bson.D {
	pick := bson.D{{Key: "$first", Value: bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: "$watchedVideos"},
		{Key: "as", Value: "video"},
		{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$video._id", "$$videoId"}}}},
	}}}}}

	ordered := bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$watchHistory", bson.A{}}}}},
		{Key: "as", Value: "videoId"},
		{Key: "in", Value: pick},
	}}}

	return bson.D{{Key: "$project", Value: bson.D{
		{Key: "_id", Value: 0},
		{Key: "watchHistory", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: ordered},
			{Key: "as", Value: "entry"},
			{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$$entry", nil}}}, nil,
			}}}},
		}}}},
	}}}
}

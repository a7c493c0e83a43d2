package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/princinho/tubebackend/database"
)

func stageValue(t *testing.T, stage bson.D, op string) bson.D {
	t.Helper()
	require.Len(t, stage, 1)
	require.Equal(t, op, stage[0].Key)
	v, ok := stage[0].Value.(bson.D)
	require.True(t, ok, "stage %s has no document body", op)
	return v
}

func field(d bson.D, key string) any {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func TestChannelProfilePipeline_Shape(t *testing.T) {
	pipeline := channelProfilePipeline("  Alice ", nil)

	ops := make([]string, 0, len(pipeline))
	for _, stage := range pipeline {
		ops = append(ops, stage[0].Key)
	}
	assert.Equal(t, []string{"$match", "$lookup", "$lookup", "$addFields", "$project", "$limit"}, ops)

	match := stageValue(t, pipeline[0], "$match")
	assert.Equal(t, "alice", field(match, "username"))
}

func TestLookupSubscriptionsStage(t *testing.T) {
	lookup := stageValue(t, lookupSubscriptionsStage("channel", "subscribers"), "$lookup")

	assert.Equal(t, database.SubscriptionsCollection, field(lookup, "from"))
	assert.Equal(t, "_id", field(lookup, "localField"))
	assert.Equal(t, "channel", field(lookup, "foreignField"))
	assert.Equal(t, "subscribers", field(lookup, "as"))
}

func TestChannelCountsStage_IsSubscribed(t *testing.T) {
	t.Run("anonymous viewer", func(t *testing.T) {
		fields := stageValue(t, channelCountsStage(nil), "$addFields")

		assert.Equal(t, bson.D{{Key: "$literal", Value: false}}, field(fields, "isSubscribed"))
	})

	t.Run("viewer tested against channel subscribers", func(t *testing.T) {
		viewer := bson.NewObjectID()
		fields := stageValue(t, channelCountsStage(&viewer), "$addFields")

		assert.Equal(t,
			bson.D{{Key: "$in", Value: bson.A{viewer, "$subscribers.subscriber"}}},
			field(fields, "isSubscribed"),
		)
		assert.Equal(t, bson.D{{Key: "$size", Value: "$subscribers"}}, field(fields, "subscribersCount"))
		assert.Equal(t, bson.D{{Key: "$size", Value: "$subscribedTo"}}, field(fields, "channelsSubscribedToCount"))
	})
}

func TestProjectChannelStage_OmitsSecrets(t *testing.T) {
	project := stageValue(t, projectChannelStage(), "$project")

	assert.Nil(t, field(project, "password"))
	assert.Nil(t, field(project, "refreshToken"))
	assert.Equal(t, 1, field(project, "isSubscribed"))
}

func TestWatchHistoryPipeline_Shape(t *testing.T) {
	id := bson.NewObjectID()
	pipeline := watchHistoryPipeline(id)
	require.Len(t, pipeline, 3)

	match := stageValue(t, pipeline[0], "$match")
	assert.Equal(t, id, field(match, "_id"))

	lookup := stageValue(t, pipeline[1], "$lookup")
	assert.Equal(t, database.VideosCollection, field(lookup, "from"))
	assert.Equal(t, "watchHistory", field(lookup, "localField"))

	ownerLookup := stageValue(t, joinOwnerStages()[0], "$lookup")
	assert.Equal(t, database.UsersCollection, field(ownerLookup, "from"))
	assert.Equal(t, "owner", field(ownerLookup, "localField"))

	project := stageValue(t, pipeline[2], "$project")
	assert.Equal(t, 0, field(project, "_id"))
	assert.NotNil(t, field(project, "watchHistory"))
}

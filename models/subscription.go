package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Subscription is a directed edge: Subscriber follows Channel.
type Subscription struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Subscriber bson.ObjectID `bson:"subscriber" json:"subscriber"`
	Channel    bson.ObjectID `bson:"channel" json:"channel"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
}

// ChannelView is a user seen as a publisher, with subscription counts
// computed at read time.
type ChannelView struct {
	ID                bson.ObjectID `bson:"_id" json:"_id"`
	Fullname          string        `bson:"fullname" json:"fullname"`
	Username          string        `bson:"username" json:"username"`
	Email             string        `bson:"email" json:"email"`
	AvatarURL         string        `bson:"avatar" json:"avatar"`
	CoverURL          string        `bson:"coverImage,omitempty" json:"coverImage"`
	SubscriberCount   int64         `bson:"subscribersCount" json:"subscribersCount"`
	SubscribedToCount int64         `bson:"channelsSubscribedToCount" json:"channelsSubscribedToCount"`
	IsSubscribed      bool          `bson:"isSubscribed" json:"isSubscribed"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Video struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	VideoFileURL string        `bson:"videoFile" json:"videoFile"`
	ThumbnailURL string        `bson:"thumbnail" json:"thumbnail"`
	Title        string        `bson:"title" json:"title"`
	Description  string        `bson:"description" json:"description"`
	Duration     float64       `bson:"duration" json:"duration"`
	Views        int64         `bson:"views" json:"views"`
	IsPublished  bool          `bson:"isPublished" json:"isPublished"`
	Owner        bson.ObjectID `bson:"owner" json:"owner"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// OwnerView is the reduced user shape inlined into watch history entries.
type OwnerView struct {
	ID        bson.ObjectID `bson:"_id" json:"_id"`
	Fullname  string        `bson:"fullname" json:"fullname"`
	Username  string        `bson:"username" json:"username"`
	AvatarURL string        `bson:"avatar" json:"avatar"`
}

// VideoView is a Video with its owner reference resolved.
type VideoView struct {
	ID           bson.ObjectID `bson:"_id" json:"_id"`
	VideoFileURL string        `bson:"videoFile" json:"videoFile"`
	ThumbnailURL string        `bson:"thumbnail" json:"thumbnail"`
	Title        string        `bson:"title" json:"title"`
	Description  string        `bson:"description" json:"description"`
	Duration     float64       `bson:"duration" json:"duration"`
	Views        int64         `bson:"views" json:"views"`
	IsPublished  bool          `bson:"isPublished" json:"isPublished"`
	Owner        *OwnerView    `bson:"owner,omitempty" json:"owner"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
}

func NewVideoView(v Video, owner *OwnerView) VideoView {
	return VideoView{
		ID:           v.ID,
		VideoFileURL: v.VideoFileURL,
		ThumbnailURL: v.ThumbnailURL,
		Title:        v.Title,
		Description:  v.Description,
		Duration:     v.Duration,
		Views:        v.Views,
		IsPublished:  v.IsPublished,
		Owner:        owner,
		CreatedAt:    v.CreatedAt,
	}
}

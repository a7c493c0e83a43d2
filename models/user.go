package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is the stored account record. Password and RefreshToken never leave
// the service layer; use Public for anything handed to a client.
type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty"`
	Username     string          `bson:"username"`
	Email        string          `bson:"email"`
	Fullname     string          `bson:"fullname"`
	AvatarURL    string          `bson:"avatar"`
	CoverURL     string          `bson:"coverImage,omitempty"`
	Password     string          `bson:"password"`
	RefreshToken string          `bson:"refreshToken,omitempty"`
	WatchHistory []bson.ObjectID `bson:"watchHistory"`
	CreatedAt    time.Time       `bson:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt"`
}

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID           bson.ObjectID   `bson:"_id" json:"_id"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	Fullname     string          `bson:"fullname" json:"fullname"`
	AvatarURL    string          `bson:"avatar" json:"avatar"`
	CoverURL     string          `bson:"coverImage,omitempty" json:"coverImage"`
	WatchHistory []bson.ObjectID `bson:"watchHistory" json:"watchHistory"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (u User) Public() PublicUser {
	history := u.WatchHistory
	if history == nil {
		history = []bson.ObjectID{}
	}
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Fullname:     u.Fullname,
		AvatarURL:    u.AvatarURL,
		CoverURL:     u.CoverURL,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ProfileUpdate lists the fields a user may change on their own account.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Fullname  *string
	Email     *string
	AvatarURL *string
	CoverURL  *string
}

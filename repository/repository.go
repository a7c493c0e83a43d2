package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/princinho/tubebackend/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrTokenMismatch is returned when a refresh token swap finds a
	// different value stored than the one presented.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (models.User, error)
	// FindByUsername matches case-insensitively.
	FindByUsername(ctx context.Context, username string) (models.User, error)
	// FindByUsernameOrEmail returns the first user matching either value.
	// Empty values are ignored.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)

	SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error
	// SwapRefreshToken replaces current with next only if current is what is stored.
	SwapRefreshToken(ctx context.Context, id bson.ObjectID, current, next string) error
	UnsetRefreshToken(ctx context.Context, id bson.ObjectID) error

	UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error
	UpdateProfile(ctx context.Context, id bson.ObjectID, update models.ProfileUpdate) (models.User, error)
	// AppendWatchHistory moves videoID to the end of the user's history.
	AppendWatchHistory(ctx context.Context, id, videoID bson.ObjectID) error
}

type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	FindByID(ctx context.Context, id bson.ObjectID) (models.Video, error)
}

type SubscriptionRepository interface {
	// Create fails with ErrDuplicate if the edge already exists.
	Create(ctx context.Context, sub *models.Subscription) error
	Delete(ctx context.Context, subscriber, channel bson.ObjectID) (bool, error)
	CountSubscribers(ctx context.Context, channel bson.ObjectID) (int64, error)
	CountSubscriptions(ctx context.Context, subscriber bson.ObjectID) (int64, error)
	IsSubscribed(ctx context.Context, subscriber, channel bson.ObjectID) (bool, error)
}

// ProfileQueries computes the joined read views.
type ProfileQueries interface {
	// ChannelProfile returns ErrNotFound when no user has that username.
	// viewer may be nil for anonymous requests.
	ChannelProfile(ctx context.Context, username string, viewer *bson.ObjectID) (models.ChannelView, error)
	// WatchHistory returns ErrNotFound for an unknown user.
	WatchHistory(ctx context.Context, userID bson.ObjectID) ([]models.VideoView, error)
}

// Store bundles every repository a backend provides.
type Store interface {
	Users() UserRepository
	Videos() VideoRepository
	Subscriptions() SubscriptionRepository
	Profiles() ProfileQueries
}

package services

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/princinho/tubebackend/apperrors"
	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/repository"
)

// ProfileService serves the derived channel and watch history views and
// the writes that feed them.
type ProfileService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewProfileService(store repository.Store, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{store: store, logger: logger}
}

// GetChannelProfile looks the channel up case-insensitively. viewer is nil
// for anonymous requests, which always see isSubscribed=false.
func (s *ProfileService) GetChannelProfile(ctx context.Context, username string, viewer *bson.ObjectID) (models.ChannelView, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.ChannelView{}, apperrors.Validation("username is missing")
	}

	view, err := s.store.Profiles().ChannelProfile(ctx, username, viewer)
	if errors.Is(err, repository.ErrNotFound) {
		return models.ChannelView{}, apperrors.NotFound("channel does not exist")
	}
	if err != nil {
		return models.ChannelView{}, apperrors.Internal(err, "failed to load channel")
	}
	return view, nil
}

func (s *ProfileService) GetWatchHistory(ctx context.Context, userID bson.ObjectID) ([]models.VideoView, error) {
	history, err := s.store.Profiles().WatchHistory(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load watch history")
	}
	return history, nil
}

// ToggleSubscription subscribes when no edge exists and unsubscribes
// otherwise. It reports the state after the call.
func (s *ProfileService) ToggleSubscription(ctx context.Context, subscriber, channel bson.ObjectID) (bool, error) {
	if subscriber == channel {
		return false, apperrors.Validation("cannot subscribe to your own channel")
	}
	if _, err := s.store.Users().FindByID(ctx, channel); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperrors.NotFound("channel does not exist")
		}
		return false, apperrors.Internal(err, "failed to load channel")
	}

	removed, err := s.store.Subscriptions().Delete(ctx, subscriber, channel)
	if err != nil {
		return false, apperrors.Internal(err, "failed to update subscription")
	}
	if removed {
		return false, nil
	}

	err = s.store.Subscriptions().Create(ctx, &models.Subscription{Subscriber: subscriber, Channel: channel})
	// a concurrent toggle already created the edge
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return false, apperrors.Internal(err, "failed to update subscription")
	}
	return true, nil
}

// RecordWatch appends videoID to the user's history, moving it to the end
// if it was already there.
func (s *ProfileService) RecordWatch(ctx context.Context, userID, videoID bson.ObjectID) error {
	if _, err := s.store.Videos().FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("video does not exist")
		}
		return apperrors.Internal(err, "failed to load video")
	}

	err := s.store.Users().AppendWatchHistory(ctx, userID, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("User not found")
	}
	if err != nil {
		return apperrors.Internal(err, "failed to record watch history")
	}
	return nil
}

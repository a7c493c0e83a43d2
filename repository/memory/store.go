// Package memory is an in-process repository.Store. It backs STORE_DRIVER=memory
// and the service tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/repository"
	"github.com/princinho/tubebackend/utils"
)

type Store struct {
	mu            sync.RWMutex
	users         map[bson.ObjectID]models.User
	videos        map[bson.ObjectID]models.Video
	subscriptions []models.Subscription
}

func New() *Store {
	return &Store{
		users:  make(map[bson.ObjectID]models.User),
		videos: make(map[bson.ObjectID]models.Video),
	}
}

func (s *Store) Users() repository.UserRepository                 { return (*userRepo)(s) }
func (s *Store) Videos() repository.VideoRepository               { return (*videoRepo)(s) }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return (*subscriptionRepo)(s) }
func (s *Store) Profiles() repository.ProfileQueries              { return (*profileRepo)(s) }

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Username = utils.NormalizeUsername(user.Username)
	user.Email = utils.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if user.WatchHistory == nil {
		user.WatchHistory = []bson.ObjectID{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id bson.ObjectID) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (models.User, error) {
	username = utils.NormalizeUsername(username)
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r *userRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (models.User, error) {
	if username == "" && email == "" {
		return models.User{}, repository.ErrNotFound
	}
	username = utils.NormalizeUsername(username)
	email = utils.NormalizeEmail(email)
	return r.find(func(u models.User) bool {
		return (username != "" && u.Username == username) || (email != "" && u.Email == email)
	})
}

func (r *userRepo) find(match func(models.User) bool) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (r *userRepo) SetRefreshToken(_ context.Context, id bson.ObjectID, token string) error {
	return r.update(id, func(u *models.User) error {
		u.RefreshToken = token
		return nil
	})
}

func (r *userRepo) SwapRefreshToken(_ context.Context, id bson.ObjectID, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.RefreshToken == "" || u.RefreshToken != current {
		return repository.ErrTokenMismatch
	}
	u.RefreshToken = next
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *userRepo) UnsetRefreshToken(_ context.Context, id bson.ObjectID) error {
	return r.update(id, func(u *models.User) error {
		u.RefreshToken = ""
		return nil
	})
}

func (r *userRepo) UpdatePassword(_ context.Context, id bson.ObjectID, hash string) error {
	return r.update(id, func(u *models.User) error {
		u.Password = hash
		return nil
	})
}

func (r *userRepo) UpdateProfile(_ context.Context, id bson.ObjectID, update models.ProfileUpdate) (models.User, error) {
	var out models.User
	err := r.update(id, func(u *models.User) error {
		if update.Email != nil {
			email := utils.NormalizeEmail(*update.Email)
			for otherID, other := range r.users {
				if otherID != id && other.Email == email {
					return repository.ErrDuplicate
				}
			}
			u.Email = email
		}
		if update.Fullname != nil {
			u.Fullname = *update.Fullname
		}
		if update.AvatarURL != nil {
			u.AvatarURL = *update.AvatarURL
		}
		if update.CoverURL != nil {
			u.CoverURL = *update.CoverURL
		}
		out = cloneUser(*u)
		return nil
	})
	return out, err
}

func (r *userRepo) AppendWatchHistory(_ context.Context, id, videoID bson.ObjectID) error {
	return r.update(id, func(u *models.User) error {
		history := slices.DeleteFunc(slices.Clone(u.WatchHistory), func(v bson.ObjectID) bool {
			return v == videoID
		})
		u.WatchHistory = append(history, videoID)
		return nil
	})
}

// update applies fn to a copy of the user under the write lock and stores
// it only if fn succeeds.
func (r *userRepo) update(id bson.ObjectID, fn func(u *models.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u = cloneUser(u)
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func cloneUser(u models.User) models.User {
	u.WatchHistory = slices.Clone(u.WatchHistory)
	if u.WatchHistory == nil {
		u.WatchHistory = []bson.ObjectID{}
	}
	return u
}

type videoRepo Store

func (r *videoRepo) Create(_ context.Context, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if video.ID.IsZero() {
		video.ID = bson.NewObjectID()
	}
	video.CreatedAt = now
	video.UpdatedAt = now
	r.videos[video.ID] = *video
	return nil
}

func (r *videoRepo) FindByID(_ context.Context, id bson.ObjectID) (models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.videos[id]
	if !ok {
		return models.Video{}, repository.ErrNotFound
	}
	return v, nil
}

type subscriptionRepo Store

func (r *subscriptionRepo) Create(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.subscriptions {
		if s.Subscriber == sub.Subscriber && s.Channel == sub.Channel {
			return repository.ErrDuplicate
		}
	}
	if sub.ID.IsZero() {
		sub.ID = bson.NewObjectID()
	}
	sub.CreatedAt = time.Now().UTC()
	r.subscriptions = append(r.subscriptions, *sub)
	return nil
}

func (r *subscriptionRepo) Delete(_ context.Context, subscriber, channel bson.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.subscriptions)
	r.subscriptions = slices.DeleteFunc(r.subscriptions, func(s models.Subscription) bool {
		return s.Subscriber == subscriber && s.Channel == channel
	})
	return len(r.subscriptions) < before, nil
}

func (r *subscriptionRepo) CountSubscribers(_ context.Context, channel bson.ObjectID) (int64, error) {
	return r.count(func(s models.Subscription) bool { return s.Channel == channel }), nil
}

func (r *subscriptionRepo) CountSubscriptions(_ context.Context, subscriber bson.ObjectID) (int64, error) {
	return r.count(func(s models.Subscription) bool { return s.Subscriber == subscriber }), nil
}

func (r *subscriptionRepo) IsSubscribed(_ context.Context, subscriber, channel bson.ObjectID) (bool, error) {
	n := r.count(func(s models.Subscription) bool {
		return s.Subscriber == subscriber && s.Channel == channel
	})
	return n > 0, nil
}

func (r *subscriptionRepo) count(match func(models.Subscription) bool) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, s := range r.subscriptions {
		if match(s) {
			n++
		}
	}
	return n
}

type profileRepo Store

func (r *profileRepo) ChannelProfile(_ context.Context, username string, viewer *bson.ObjectID) (models.ChannelView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	username = utils.NormalizeUsername(username)
	var (
		channel models.User
		found   bool
	)
	for _, u := range r.users {
		if u.Username == username {
			channel, found = u, true
			break
		}
	}
	if !found {
		return models.ChannelView{}, repository.ErrNotFound
	}

	view := models.ChannelView{
		ID:        channel.ID,
		Fullname:  channel.Fullname,
		Username:  channel.Username,
		Email:     channel.Email,
		AvatarURL: channel.AvatarURL,
		CoverURL:  channel.CoverURL,
	}
	for _, s := range r.subscriptions {
		if s.Channel == channel.ID {
			view.SubscriberCount++
			if viewer != nil && s.Subscriber == *viewer {
				view.IsSubscribed = true
			}
		}
		if s.Subscriber == channel.ID {
			view.SubscribedToCount++
		}
	}
	return view, nil
}

func (r *profileRepo) WatchHistory(_ context.Context, userID bson.ObjectID) ([]models.VideoView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	history := make([]models.VideoView, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		v, ok := r.videos[id]
		if !ok {
			continue
		}
		var owner *models.OwnerView
		if o, ok := r.users[v.Owner]; ok {
			owner = &models.OwnerView{
				ID:        o.ID,
				Fullname:  o.Fullname,
				Username:  o.Username,
				AvatarURL: o.AvatarURL,
			}
		}
		history = append(history, models.NewVideoView(v, owner))
	}
	return history, nil
}

package mongostore

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/princinho/tubebackend/database"
	"github.com/princinho/tubebackend/repository"
)

// Store is the MongoDB backed repository.Store.
type Store struct {
	users         *UserRepo
	videos        *VideoRepo
	subscriptions *SubscriptionRepo
	profiles      *ProfileRepo
}

func New(db *mongo.Database) *Store {
	users := db.Collection(database.UsersCollection)
	videos := db.Collection(database.VideosCollection)
	subs := db.Collection(database.SubscriptionsCollection)

	return &Store{
		users:         &UserRepo{col: users},
		videos:        &VideoRepo{col: videos},
		subscriptions: &SubscriptionRepo{col: subs},
		profiles:      &ProfileRepo{users: users},
	}
}

func (s *Store) Users() repository.UserRepository                 { return s.users }
func (s *Store) Videos() repository.VideoRepository               { return s.videos }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return s.subscriptions }
func (s *Store) Profiles() repository.ProfileQueries              { return s.profiles }

func isDuplicateKey(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), "E11000 duplicate key error")
}

func notFoundOr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

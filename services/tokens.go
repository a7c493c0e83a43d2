package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/princinho/tubebackend/apperrors"
	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/repository"
	"github.com/princinho/tubebackend/utils"
)

const (
	msgUnauthorizedRequest = "Unauthorized request"
	msgInvalidAccessToken  = "Invalid access token"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgTokenGeneration     = "Something went wrong while generating refresh and access token"
)

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService signs and verifies the access/refresh pair. At most one
// refresh token is live per user: the one stored on the user record.
type TokenService struct {
	users         repository.UserRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	logger        *zap.Logger
}

func NewTokenService(users repository.UserRepository, cfg TokenConfig, logger *zap.Logger) *TokenService {
	if users == nil {
		panic("services: user repository must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		users:         users,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		logger:        logger,
	}
}

// IssueTokenPair mints a fresh pair for userID and stores the refresh half,
// replacing whatever was stored before.
func (s *TokenService) IssueTokenPair(ctx context.Context, userID bson.ObjectID) (models.TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.TokenPair{}, apperrors.Internal(err, msgTokenGeneration)
	}

	pair, err := s.sign(user)
	if err != nil {
		return models.TokenPair{}, apperrors.Internal(err, msgTokenGeneration)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return models.TokenPair{}, apperrors.Internal(err, msgTokenGeneration)
	}
	return pair, nil
}

// VerifyAccessToken resolves a bearer token to its user. Every failure
// reads the same to the caller.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (models.PublicUser, error) {
	if token == "" {
		return models.PublicUser{}, apperrors.Unauthorized(msgUnauthorizedRequest)
	}

	claims, err := utils.ParseAccessToken(token, s.accessSecret)
	if err != nil {
		s.logger.Debug("access token rejected", zap.Error(err))
		return models.PublicUser{}, apperrors.Unauthorized(msgInvalidAccessToken)
	}

	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.PublicUser{}, apperrors.Unauthorized(msgInvalidAccessToken)
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.PublicUser{}, apperrors.Unauthorized(msgInvalidAccessToken)
	}
	if err != nil {
		return models.PublicUser{}, apperrors.Internal(err, "failed to load user")
	}
	return user.Public(), nil
}

// RotateRefreshToken exchanges the stored refresh token for a new pair.
// The swap only succeeds if presented is still the stored token, so of two
// concurrent rotations with the same token exactly one wins.
func (s *TokenService) RotateRefreshToken(ctx context.Context, presented string) (models.TokenPair, error) {
	if presented == "" {
		return models.TokenPair{}, apperrors.Unauthorized(msgUnauthorizedRequest)
	}

	claims, err := utils.ParseRefreshToken(presented, s.refreshSecret)
	if err != nil {
		s.logger.Debug("refresh token rejected", zap.Error(err))
		return models.TokenPair{}, apperrors.Unauthorized(msgInvalidRefreshToken)
	}

	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.TokenPair{}, apperrors.Unauthorized(msgInvalidRefreshToken)
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.TokenPair{}, apperrors.Unauthorized(msgInvalidRefreshToken)
	}
	if err != nil {
		return models.TokenPair{}, apperrors.Internal(err, "failed to load user")
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		return models.TokenPair{}, apperrors.Unauthorized(msgInvalidRefreshToken)
	}

	pair, err := s.sign(user)
	if err != nil {
		return models.TokenPair{}, apperrors.Internal(err, msgTokenGeneration)
	}

	err = s.users.SwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	switch {
	case errors.Is(err, repository.ErrTokenMismatch):
		s.logger.Info("refresh token lost rotation race", zap.String("user_id", user.ID.Hex()))
		return models.TokenPair{}, apperrors.Unauthorized(msgInvalidRefreshToken)
	case err != nil:
		return models.TokenPair{}, apperrors.Internal(err, msgTokenGeneration)
	}
	return pair, nil
}

// Revoke drops the stored refresh token; outstanding access tokens stay
// valid until they expire.
func (s *TokenService) Revoke(ctx context.Context, userID bson.ObjectID) error {
	if err := s.users.UnsetRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal(err, "failed to log out")
	}
	return nil
}

func (s *TokenService) sign(user models.User) (models.TokenPair, error) {
	access, err := utils.GenerateAccessToken(user, s.accessSecret, s.accessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := utils.GenerateRefreshToken(user.ID.Hex(), s.refreshSecret, s.refreshTTL)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

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
	"github.com/princinho/tubebackend/utils"
)

const msgUserExists = "User with email or username already exists"

type RegisterInput struct {
	Fullname  string
	Email     string
	Username  string
	Password  string
	AvatarURL string
	CoverURL  string
}

// AccountService owns user records and credentials.
type AccountService struct {
	users  repository.UserRepository
	tokens *TokenService
	logger *zap.Logger
}

func NewAccountService(users repository.UserRepository, tokens *TokenService, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{users: users, tokens: tokens, logger: logger}
}

// CheckRegistration trims and normalises the registration fields and rejects
// blank fields or an identity already taken. Callers run it before uploading
// media so a rejected registration leaves nothing at the provider.
func (s *AccountService) CheckRegistration(ctx context.Context, in RegisterInput) (RegisterInput, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = utils.NormalizeEmail(in.Email)
	in.Username = utils.NormalizeUsername(in.Username)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"fullname", in.Fullname},
		{"email", in.Email},
		{"username", in.Username},
		{"password", strings.TrimSpace(in.Password)},
	} {
		if f.value == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		return RegisterInput{}, apperrors.Validation("All fields are compulsory", missing...)
	}

	_, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return RegisterInput{}, apperrors.Conflict(msgUserExists)
	case !errors.Is(err, repository.ErrNotFound):
		return RegisterInput{}, apperrors.Internal(err, "Something went wrong while registering user")
	}
	return in, nil
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (models.PublicUser, error) {
	in, err := s.CheckRegistration(ctx, in)
	if err != nil {
		return models.PublicUser{}, err
	}
	if strings.TrimSpace(in.AvatarURL) == "" {
		return models.PublicUser{}, apperrors.Validation("Avatar file is required")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal(err, "failed to hash password")
	}

	user := models.User{
		Username:  in.Username,
		Email:     in.Email,
		Fullname:  in.Fullname,
		AvatarURL: strings.TrimSpace(in.AvatarURL),
		CoverURL:  strings.TrimSpace(in.CoverURL),
		Password:  hash,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.PublicUser{}, apperrors.Conflict(msgUserExists)
		}
		return models.PublicUser{}, apperrors.Internal(err, "Something went wrong while registering user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()), zap.String("username", user.Username))
	return user.Public(), nil
}

// Login accepts either identifier. The password is only checked once a
// user has been found.
func (s *AccountService) Login(ctx context.Context, username, email, password string) (models.PublicUser, models.TokenPair, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" && email == "" {
		return models.PublicUser{}, models.TokenPair{}, apperrors.Validation("username or email is required")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if errors.Is(err, repository.ErrNotFound) {
		return models.PublicUser{}, models.TokenPair{}, apperrors.NotFound("User does not exist")
	}
	if err != nil {
		return models.PublicUser{}, models.TokenPair{}, apperrors.Internal(err, "failed to load user")
	}

	if !s.VerifyPassword(user, password) {
		return models.PublicUser{}, models.TokenPair{}, apperrors.Unauthorized("Invalid user credentials")
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user.ID)
	if err != nil {
		return models.PublicUser{}, models.TokenPair{}, err
	}
	return user.Public(), pair, nil
}

func (s *AccountService) VerifyPassword(user models.User, candidate string) bool {
	if user.Password == "" {
		return false
	}
	return utils.CheckPassword(user.Password, candidate) == nil
}

func (s *AccountService) Logout(ctx context.Context, userID bson.ObjectID) error {
	return s.tokens.Revoke(ctx, userID)
}

// ChangePassword leaves the stored hash untouched unless oldPassword matches.
func (s *AccountService) ChangePassword(ctx context.Context, userID bson.ObjectID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperrors.Validation("new password is required")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(user, oldPassword) {
		return apperrors.Unauthorized("Invalid old password")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal(err, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.Internal(err, "failed to change password")
	}
	return nil
}

func (s *AccountService) CurrentUser(ctx context.Context, userID bson.ObjectID) (models.PublicUser, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return models.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID bson.ObjectID, fullname, email string) (models.PublicUser, error) {
	fullname = strings.TrimSpace(fullname)
	email = utils.NormalizeEmail(email)
	if fullname == "" || email == "" {
		return models.PublicUser{}, apperrors.Validation("All fields are required")
	}
	return s.update(ctx, userID, models.ProfileUpdate{Fullname: &fullname, Email: &email})
}

func (s *AccountService) UpdateAvatar(ctx context.Context, userID bson.ObjectID, url string) (models.PublicUser, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return models.PublicUser{}, apperrors.Validation("Avatar file is missing")
	}
	return s.update(ctx, userID, models.ProfileUpdate{AvatarURL: &url})
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, userID bson.ObjectID, url string) (models.PublicUser, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return models.PublicUser{}, apperrors.Validation("Cover image file is missing")
	}
	return s.update(ctx, userID, models.ProfileUpdate{CoverURL: &url})
}

func (s *AccountService) update(ctx context.Context, userID bson.ObjectID, upd models.ProfileUpdate) (models.PublicUser, error) {
	user, err := s.users.UpdateProfile(ctx, userID, upd)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return models.PublicUser{}, apperrors.Conflict("Email is already in use")
	case errors.Is(err, repository.ErrNotFound):
		return models.PublicUser{}, apperrors.NotFound("User not found")
	case err != nil:
		return models.PublicUser{}, apperrors.Internal(err, "failed to update account")
	}
	return user.Public(), nil
}

func (s *AccountService) load(ctx context.Context, userID bson.ObjectID) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, apperrors.NotFound("User not found")
	}
	if err != nil {
		return models.User{}, apperrors.Internal(err, "failed to load user")
	}
	return user, nil
}

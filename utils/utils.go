package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/princinho/tubebackend/models"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidToken = errors.New("invalid token")

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares in constant time; a nil error means the password matches.
func CheckPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// NormalizeUsername folds compatibility forms (full-width letters etc.)
// before lowercasing so visually identical names collide.
func NormalizeUsername(username string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(username)))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type AccessClaims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

func registeredClaims(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		// jti keeps two tokens minted within the same second distinct
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func GenerateAccessToken(user models.User, secret []byte, ttl time.Duration) (string, error) {
	claims := AccessClaims{
		UserID:           user.ID.Hex(),
		Username:         user.Username,
		Email:            user.Email,
		Fullname:         user.Fullname,
		RegisteredClaims: registeredClaims(ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func GenerateRefreshToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	claims := RefreshClaims{
		UserID:           userID,
		RegisteredClaims: registeredClaims(ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseAccessToken(tokenStr string, secret []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(tokenStr, claims, secret); err != nil {
		return nil, err
	}
	return claims, nil
}

func ParseRefreshToken(tokenStr string, secret []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenStr, claims, secret); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	if tokenStr == "" {
		return ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

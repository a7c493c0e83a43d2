package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/princinho/tubebackend/apperrors"
	"github.com/princinho/tubebackend/dto"
	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/utils"
)

const CurrentUserKey = "currentUser"

type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (models.PublicUser, error)
}

// VerifyJWT rejects requests without a valid access token, read from the
// accessToken cookie or an Authorization bearer header. A cookie token that
// fails verification does not hide a valid header token.
func VerifyJWT(tokens AccessTokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verify(c, tokens)
		if err != nil {
			appErr := apperrors.From(err)
			status := appErr.Kind.Status()
			if status == http.StatusInternalServerError {
				_ = c.Error(err)
			}
			c.AbortWithStatusJSON(status, dto.NewApiError(status, appErr.Message, appErr.Details...))
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// OptionalJWT attaches the user when a valid token is present and lets the
// request through either way.
func OptionalJWT(tokens AccessTokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := verify(c, tokens); err == nil {
			c.Set(CurrentUserKey, user)
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.PublicUser, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return models.PublicUser{}, false
	}
	user, ok := v.(models.PublicUser)
	return user, ok
}

// verify tries each presented token in turn and returns the first user that
// verifies, or the last failure.
func verify(c *gin.Context, tokens AccessTokenVerifier) (models.PublicUser, error) {
	candidates := accessTokens(c)
	if len(candidates) == 0 {
		return tokens.VerifyAccessToken(c.Request.Context(), "")
	}

	var err error
	for _, token := range candidates {
		var user models.PublicUser
		if user, err = tokens.VerifyAccessToken(c.Request.Context(), token); err == nil {
			return user, nil
		}
	}
	return models.PublicUser{}, err
}

func accessTokens(c *gin.Context) []string {
	var out []string
	if token, err := c.Cookie(utils.AccessTokenCookie); err == nil && token != "" {
		out = append(out, token)
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			out = append(out, token)
		}
	}
	return out
}

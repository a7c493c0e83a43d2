package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/tubebackend/models"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type CookieOptions struct {
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetAuthCookies writes both tokens as HTTP-only, secure cookies.
func SetAuthCookies(c *gin.Context, opts CookieOptions, pair models.TokenPair) {
	setCookie(c, opts.Domain, AccessTokenCookie, pair.AccessToken, int(opts.AccessTTL.Seconds()))
	setCookie(c, opts.Domain, RefreshTokenCookie, pair.RefreshToken, int(opts.RefreshTTL.Seconds()))
}

func ClearAuthCookies(c *gin.Context, opts CookieOptions) {
	setCookie(c, opts.Domain, AccessTokenCookie, "", -1)
	setCookie(c, opts.Domain, RefreshTokenCookie, "", -1)
}

func setCookie(c *gin.Context, domain, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode, // for cross-site
	})
}

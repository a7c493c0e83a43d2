package controllers

import (
	"github.com/gin-gonic/gin"
)

// Router groups what RegisterRoutes needs beyond the controllers.
type Router struct {
	Users         *UserController
	Subscriptions *SubscriptionController
	RequireAuth   gin.HandlerFunc
	OptionalAuth  gin.HandlerFunc
	// AuthLimiter guards the credential endpoints; nil disables it.
	AuthLimiter gin.HandlerFunc
}

func (rt Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", Health())
	r.NoRoute(NotFound())

	limit := rt.AuthLimiter
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	v1 := r.Group("/api/v1")

	users := v1.Group("/users")
	{
		users.POST("/register", limit, rt.Users.Register())
		users.POST("/login", limit, rt.Users.Login())
		users.POST("/refresh-token", limit, rt.Users.RefreshAccessToken())
		users.GET("/channel/:username", rt.OptionalAuth, rt.Users.ChannelProfile())
	}

	secured := users.Group("")
	secured.Use(rt.RequireAuth)
	{
		secured.POST("/logout", rt.Users.Logout())
		secured.POST("/change-password", rt.Users.ChangePassword())
		secured.GET("/current", rt.Users.CurrentUser())
		secured.PATCH("/update-account", rt.Users.UpdateAccount())
		secured.PATCH("/avatar", rt.Users.UpdateAvatar())
		secured.PATCH("/cover-image", rt.Users.UpdateCoverImage())
		secured.GET("/history", rt.Users.WatchHistory())
		secured.POST("/history/:videoId", rt.Users.RecordWatch())
	}

	subs := v1.Group("/subscriptions")
	subs.Use(rt.RequireAuth)
	{
		subs.POST("/c/:channelId", rt.Subscriptions.Toggle())
	}
}

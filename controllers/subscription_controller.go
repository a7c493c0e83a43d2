package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/princinho/tubebackend/apperrors"
	"github.com/princinho/tubebackend/services"
)

type SubscriptionController struct {
	profiles *services.ProfileService
	logger   *zap.Logger
}

func NewSubscriptionController(profiles *services.ProfileService, logger *zap.Logger) *SubscriptionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionController{profiles: profiles, logger: logger}
}

// POST /subscriptions/c/:channelId
func (sc *SubscriptionController) Toggle() gin.HandlerFunc {
	return handle(sc.logger, func(c *gin.Context) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}
		channelID, err := bson.ObjectIDFromHex(c.Param("channelId"))
		if err != nil {
			return apperrors.Validation("invalid channel id")
		}

		subscribed, err := sc.profiles.ToggleSubscription(c.Request.Context(), userID, channelID)
		if err != nil {
			return err
		}

		msg := "Unsubscribed successfully"
		if subscribed {
			msg = "Subscribed successfully"
		}
		respond(c, http.StatusOK, gin.H{"subscribed": subscribed}, msg)
		return nil
	})
}

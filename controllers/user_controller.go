package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/princinho/tubebackend/apperrors"
	"github.com/princinho/tubebackend/dto"
	"github.com/princinho/tubebackend/middleware"
	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/services"
	"github.com/princinho/tubebackend/storage"
	"github.com/princinho/tubebackend/utils"
)

// Uploader moves a local temp file to the media provider. A nil result
// means the upload failed.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*storage.UploadResult, error)
}

type UserController struct {
	accounts  *services.AccountService
	tokens    *services.TokenService
	profiles  *services.ProfileService
	uploader  Uploader
	validator *utils.FileValidator
	tempDir   string
	cookies   utils.CookieOptions
	logger    *zap.Logger
}

type UserControllerDeps struct {
	Accounts  *services.AccountService
	Tokens    *services.TokenService
	Profiles  *services.ProfileService
	Uploader  Uploader
	Validator *utils.FileValidator
	TempDir   string
	Cookies   utils.CookieOptions
	Logger    *zap.Logger
}

func NewUserController(d UserControllerDeps) *UserController {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserController{
		accounts:  d.Accounts,
		tokens:    d.Tokens,
		profiles:  d.Profiles,
		uploader:  d.Uploader,
		validator: d.Validator,
		tempDir:   d.TempDir,
		cookies:   d.Cookies,
		logger:    logger,
	}
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

// POST /users/register
func (uc *UserController) Register() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		var body dto.RegisterDTO
		if err := c.ShouldBind(&body); err != nil {
			return bindError(err)
		}

		input, err := uc.accounts.CheckRegistration(c.Request.Context(), services.RegisterInput{
			Fullname: body.Fullname,
			Email:    body.Email,
			Username: body.Username,
			Password: body.Password,
		})
		if err != nil {
			return err
		}

		input.AvatarURL, err = uc.uploadFormFile(c, "avatar")
		if err != nil {
			return err
		}
		if input.AvatarURL == "" {
			return apperrors.Validation("Avatar file is required")
		}

		input.CoverURL, err = uc.uploadFormFile(c, "coverImage")
		if err != nil {
			uc.logger.Warn("cover image skipped", zap.Error(err))
			input.CoverURL = ""
		}

		user, err := uc.accounts.Register(c.Request.Context(), input)
		if err != nil {
			return err
		}

		respond(c, http.StatusCreated, user, "User registered Successfully")
		return nil
	})
}

// POST /users/login
func (uc *UserController) Login() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			return bindError(err)
		}

		user, pair, err := uc.accounts.Login(c.Request.Context(), body.Username, body.Email, body.Password)
		if err != nil {
			return err
		}

		utils.SetAuthCookies(c, uc.cookies, pair)
		respond(c, http.StatusOK, loginResponse{
			User:         user,
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}, "User logged In Successfully")
		return nil
	})
}

// POST /users/logout
func (uc *UserController) Logout() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}
		if err := uc.accounts.Logout(c.Request.Context(), userID); err != nil {
			return err
		}

		utils.ClearAuthCookies(c, uc.cookies)
		respond(c, http.StatusOK, gin.H{}, "User logged Out")
		return nil
	})
}

// POST /users/refresh-token
func (uc *UserController) RefreshAccessToken() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		presented, _ := c.Cookie(utils.RefreshTokenCookie)
		if presented == "" {
			var body dto.RefreshTokenDTO
			// an empty body is fine, the token is then simply missing
			_ = c.ShouldBindJSON(&body)
			presented = body.RefreshToken
		}

		pair, err := uc.tokens.RotateRefreshToken(c.Request.Context(), presented)
		if err != nil {
			return err
		}

		utils.SetAuthCookies(c, uc.cookies, pair)
		respond(c, http.StatusOK, pair, "Access token refreshed")
		return nil
	})
}

// POST /users/change-password
func (uc *UserController) ChangePassword() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		var body dto.ChangePasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			return bindError(err)
		}
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}

		if err := uc.accounts.ChangePassword(c.Request.Context(), userID, body.OldPassword, body.NewPassword); err != nil {
			return err
		}

		respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
		return nil
	})
}

// GET /users/current
func (uc *UserController) CurrentUser() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}
		user, err := uc.accounts.CurrentUser(c.Request.Context(), userID)
		if err != nil {
			return err
		}

		respond(c, http.StatusOK, user, "Current user fetched successfully")
		return nil
	})
}

// PATCH /users/update-account
func (uc *UserController) UpdateAccount() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		var body dto.UpdateAccountDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			return bindError(err)
		}
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}

		user, err := uc.accounts.UpdateProfile(c.Request.Context(), userID, body.Fullname, body.Email)
		if err != nil {
			return err
		}

		respond(c, http.StatusOK, user, "Account details updated successfully")
		return nil
	})
}

// PATCH /users/avatar
func (uc *UserController) UpdateAvatar() gin.HandlerFunc {
	return uc.updateImage("avatar", "Avatar file is missing", "Error while uploading avatar",
		"Avatar image updated successfully", func(ctx context.Context, id bson.ObjectID, url string) (models.PublicUser, error) {
			return uc.accounts.UpdateAvatar(ctx, id, url)
		})
}

// PATCH /users/cover-image
func (uc *UserController) UpdateCoverImage() gin.HandlerFunc {
	return uc.updateImage("coverImage", "Cover image file is missing", "Error while uploading cover image",
		"Cover image updated successfully", func(ctx context.Context, id bson.ObjectID, url string) (models.PublicUser, error) {
			return uc.accounts.UpdateCoverImage(ctx, id, url)
		})
}

func (uc *UserController) updateImage(
	field, missingMsg, failedMsg, okMsg string,
	apply func(ctx context.Context, id bson.ObjectID, url string) (models.PublicUser, error),
) gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}
		if _, err := c.FormFile(field); err != nil {
			return apperrors.Validation(missingMsg)
		}

		url, err := uc.uploadFormFile(c, field)
		if err != nil {
			return err
		}
		if url == "" {
			return apperrors.Validation(failedMsg)
		}

		user, err := apply(c.Request.Context(), userID, url)
		if err != nil {
			return err
		}

		respond(c, http.StatusOK, user, okMsg)
		return nil
	})
}

// GET /users/channel/:username
func (uc *UserController) ChannelProfile() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		var viewer *bson.ObjectID
		if user, ok := middleware.CurrentUser(c); ok {
			viewer = &user.ID
		}

		channel, err := uc.profiles.GetChannelProfile(c.Request.Context(), c.Param("username"), viewer)
		if err != nil {
			return err
		}

		respond(c, http.StatusOK, channel, "User channel fetched successfully")
		return nil
	})
}

// GET /users/history
func (uc *UserController) WatchHistory() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}
		history, err := uc.profiles.GetWatchHistory(c.Request.Context(), userID)
		if err != nil {
			return err
		}

		respond(c, http.StatusOK, history, "Watch history fetched successfully")
		return nil
	})
}

// POST /users/history/:videoId
func (uc *UserController) RecordWatch() gin.HandlerFunc {
	return handle(uc.logger, func(c *gin.Context) error {
		userID, err := currentUserID(c)
		if err != nil {
			return err
		}
		videoID, err := bson.ObjectIDFromHex(c.Param("videoId"))
		if err != nil {
			return apperrors.Validation("invalid video id")
		}

		if err := uc.profiles.RecordWatch(c.Request.Context(), userID, videoID); err != nil {
			return err
		}

		respond(c, http.StatusOK, gin.H{}, "Watch history updated")
		return nil
	})
}

// uploadFormFile validates the named multipart file, parks it in the temp
// dir and hands it to the uploader. It returns "" with a nil error when the
// field is absent or the provider rejected the file.
func (uc *UserController) uploadFormFile(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", apperrors.Validation("Invalid multipart form")
	}

	if _, err := uc.validator.ValidateFile(fh); err != nil {
		return "", apperrors.Validation(field+": "+err.Error())
	}

	localPath, err := utils.SaveTempFile(c, fh, uc.tempDir)
	if err != nil {
		return "", apperrors.Internal(err, "failed to store upload")
	}

	res, err := uc.uploader.Upload(c.Request.Context(), localPath)
	if res == nil {
		if err != nil {
			uc.logger.Warn("upload failed", zap.String("field", field), zap.Error(err))
		}
		return "", nil
	}
	return res.URL, nil
}

func currentUserID(c *gin.Context) (bson.ObjectID, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok || user.ID.IsZero() {
		return bson.ObjectID{}, apperrors.Unauthorized("Unauthorized request")
	}
	return user.ID, nil
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/princinho/tubebackend/middleware"
	"github.com/princinho/tubebackend/models"
	"github.com/princinho/tubebackend/repository/memory"
	"github.com/princinho/tubebackend/services"
	"github.com/princinho/tubebackend/storage"
	"github.com/princinho/tubebackend/utils"
)

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// fakeUploader removes the temp file like the real gateway does.
type fakeUploader struct {
	fail  bool
	paths []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (*storage.UploadResult, error) {
	if localPath == "" {
		return nil, nil
	}
	f.paths = append(f.paths, localPath)
	_ = os.Remove(localPath)
	if f.fail {
		return nil, errors.New("provider down")
	}
	return &storage.UploadResult{URL: "https://cdn.example.com/" + bson.NewObjectID().Hex() + ".png"}, nil
}

type testApp struct {
	router   *gin.Engine
	store    *memory.Store
	uploader *fakeUploader
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	tokens := services.NewTokenService(store.Users(), services.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, nil)
	accounts := services.NewAccountService(store.Users(), tokens, nil)
	profiles := services.NewProfileService(store, nil)
	uploader := &fakeUploader{}

	r := gin.New()
	Router{
		Users: NewUserController(UserControllerDeps{
			Accounts:  accounts,
			Tokens:    tokens,
			Profiles:  profiles,
			Uploader:  uploader,
			Validator: utils.NewImageValidator([]string{".png", ".jpg"}, 1),
			TempDir:   t.TempDir(),
			Cookies:   utils.CookieOptions{AccessTTL: time.Minute, RefreshTTL: time.Hour},
		}),
		Subscriptions: NewSubscriptionController(profiles, nil),
		RequireAuth:   middleware.VerifyJWT(tokens),
		OptionalAuth:  middleware.OptionalJWT(tokens),
	}.RegisterRoutes(r)

	return &testApp{router: r, store: store, uploader: uploader}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func (a *testApp) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.Equal(t, w.Code, env.StatusCode)
	return w, env
}

func registerRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func userFields(username string) map[string]string {
	return map[string]string{
		"fullname": "Name " + username,
		"email":    username + "@example.com",
		"username": username,
		"password": "password-" + username,
	}
}

func (a *testApp) register(t *testing.T, username string) models.PublicUser {
	t.Helper()
	w, env := a.do(t, registerRequest(t, userFields(username), map[string][]byte{"avatar": pngBytes}))
	require.Equal(t, http.StatusCreated, w.Code, env.Message)

	var u models.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u
}

type session struct {
	access  string
	refresh string
}

func (a *testApp) login(t *testing.T, username string) session {
	t.Helper()
	w, env := a.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": username,
		"password": "password-" + username,
	}))
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var s session
	for _, c := range w.Result().Cookies() {
		switch c.Name {
		case utils.AccessTokenCookie:
			s.access = c.Value
			assert.True(t, c.HttpOnly)
			assert.True(t, c.Secure)
		case utils.RefreshTokenCookie:
			s.refresh = c.Value
		}
	}
	require.NotEmpty(t, s.access)
	require.NotEmpty(t, s.refresh)
	return s
}

func withAuth(req *http.Request, s session) *http.Request {
	req.Header.Set("Authorization", "Bearer "+s.access)
	return req
}

func TestRegister(t *testing.T) {
	t.Run("created without secrets", func(t *testing.T) {
		app := newTestApp(t)

		w, env := app.do(t, registerRequest(t, userFields("Alice"), map[string][]byte{
			"avatar":     pngBytes,
			"coverImage": pngBytes,
		}))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		assert.NotContains(t, string(env.Data), "password")
		assert.NotContains(t, string(env.Data), "refreshToken")

		var u models.PublicUser
		require.NoError(t, json.Unmarshal(env.Data, &u))
		assert.Equal(t, "alice", u.Username)
		assert.NotEmpty(t, u.AvatarURL)
		assert.NotEmpty(t, u.CoverURL)

		require.Len(t, app.uploader.paths, 2)
		for _, p := range app.uploader.paths {
			_, err := os.Stat(p)
			assert.True(t, errors.Is(err, os.ErrNotExist))
		}
	})

	t.Run("missing avatar", func(t *testing.T) {
		app := newTestApp(t)

		w, env := app.do(t, registerRequest(t, userFields("bob"), nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "Avatar file is required", env.Message)
		assert.NotNil(t, env.Errors)
	})

	t.Run("upload failure is a client error", func(t *testing.T) {
		app := newTestApp(t)
		app.uploader.fail = true

		w, env := app.do(t, registerRequest(t, userFields("bob"), map[string][]byte{"avatar": pngBytes}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Avatar file is required", env.Message)
	})

	t.Run("not an image", func(t *testing.T) {
		app := newTestApp(t)

		w, _ := app.do(t, registerRequest(t, userFields("bob"), map[string][]byte{"avatar": []byte("just text")}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, app.uploader.paths)
	})

	t.Run("duplicate username", func(t *testing.T) {
		app := newTestApp(t)
		app.register(t, "carol")

		fields := userFields("CAROL")
		fields["email"] = "other@example.com"
		w, env := app.do(t, registerRequest(t, fields, map[string][]byte{"avatar": pngBytes}))

		require.Equal(t, http.StatusConflict, w.Code)
		assert.False(t, env.Success)
		assert.Len(t, app.uploader.paths, 1, "only the first registration reaches the provider")
	})

	t.Run("blank field is rejected before upload", func(t *testing.T) {
		app := newTestApp(t)

		fields := userFields("frank")
		fields["fullname"] = "   "
		w, env := app.do(t, registerRequest(t, fields, map[string][]byte{"avatar": pngBytes}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "All fields are compulsory", env.Message)
		assert.Empty(t, app.uploader.paths)
	})

	t.Run("field validation lists every field", func(t *testing.T) {
		app := newTestApp(t)

		w, env := app.do(t, registerRequest(t, map[string]string{"fullname": "X"}, map[string][]byte{"avatar": pngBytes}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Len(t, env.Errors, 3)
	})
}

func TestSessionFlow(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "dave")
	s := app.login(t, "dave")

	w, env := app.do(t, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil), s))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"dave"`)

	// rotate through the cookie
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: utils.RefreshTokenCookie, Value: s.refresh})
	w, env = app.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	var pair models.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	require.NotEqual(t, s.refresh, pair.RefreshToken)

	// the old token is now spent, even through the body
	w, env = app.do(t, jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": s.refresh}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	next := session{access: pair.AccessToken, refresh: pair.RefreshToken}
	w, _ = app.do(t, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), next))
	require.Equal(t, http.StatusOK, w.Code)
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.RefreshTokenCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)

	w, _ = app.do(t, jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": next.refresh}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_Failures(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "erin")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"no identifier", map[string]string{"password": "x"}, http.StatusBadRequest},
		{"unknown user", map[string]string{"username": "nobody", "password": "x"}, http.StatusNotFound},
		{"wrong password", map[string]string{"email": "erin@example.com", "password": "wrong"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := app.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", tt.body))

			require.Equal(t, tt.status, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestChangePasswordAndUpdateAccount(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "frank")
	app.register(t, "gina")
	s := app.login(t, "frank")

	w, _ := app.do(t, withAuth(jsonRequest(http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "not-the-password", "newPassword": "brand-new-pass",
	}), s))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = app.do(t, withAuth(jsonRequest(http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "password-frank", "newPassword": "brand-new-pass",
	}), s))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, withAuth(jsonRequest(http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"fullname": "Frank F", "email": "gina@example.com",
	}), s))
	require.Equal(t, http.StatusConflict, w.Code)

	w, env := app.do(t, withAuth(jsonRequest(http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"fullname": "Frank F", "email": "frank.f@example.com",
	}), s))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"fullname":"Frank F"`)

	w, _ = app.do(t, jsonRequest(http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"fullname": "Anon", "email": "anon@example.com",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateAvatar(t *testing.T) {
	app := newTestApp(t)
	before := app.register(t, "hank")
	s := app.login(t, "hank")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "new.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env := app.do(t, withAuth(req, s))

	require.Equal(t, http.StatusOK, w.Code)
	var after models.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &after))
	assert.NotEqual(t, before.AvatarURL, after.AvatarURL)

	emptyReq := httptest.NewRequest(http.MethodPatch, "/api/v1/users/cover-image", strings.NewReader(""))
	emptyReq.Header.Set("Content-Type", "multipart/form-data; boundary=none")
	w, env = app.do(t, withAuth(emptyReq, s))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cover image file is missing", env.Message)
}

func TestChannelAndSubscriptions(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")
	app.register(t, "bob")
	app.register(t, "erin")
	bob := app.login(t, "bob")
	erin := app.login(t, "erin")

	target := "/api/v1/subscriptions/c/" + alice.ID.Hex()
	w, env := app.do(t, withAuth(httptest.NewRequest(http.MethodPost, target, nil), bob))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed":true}`, string(env.Data))

	var view models.ChannelView
	w, env = app.do(t, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/users/channel/ALICE", nil), bob))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.EqualValues(t, 1, view.SubscriberCount)
	assert.True(t, view.IsSubscribed)

	w, env = app.do(t, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/users/channel/alice", nil), erin))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.False(t, view.IsSubscribed)

	w, env = app.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/channel/alice", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.False(t, view.IsSubscribed)
	assert.NotContains(t, string(env.Data), "password")

	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/channel/nobody", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(t, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/c/not-an-id", nil), bob))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatchHistory(t *testing.T) {
	app := newTestApp(t)
	owner := app.register(t, "owner")
	app.register(t, "viewer")
	s := app.login(t, "viewer")

	video := models.Video{Title: "clip", Owner: owner.ID, IsPublished: true}
	require.NoError(t, app.store.Videos().Create(context.Background(), &video))

	w, _ := app.do(t, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/users/history/"+video.ID.Hex(), nil), s))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/users/history/"+bson.NewObjectID().Hex(), nil), s))
	require.Equal(t, http.StatusNotFound, w.Code)

	w, env := app.do(t, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), s))
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.VideoView
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "clip", history[0].Title)
	require.NotNil(t, history[0].Owner)
	assert.Equal(t, "owner", history[0].Owner.Username)
}

func TestHealthAndNotFound(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = app.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

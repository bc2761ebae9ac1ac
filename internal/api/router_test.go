package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/auth"
	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/middleware"
	"github.com/devmatch/backend/internal/repository"
	"github.com/devmatch/backend/internal/storage"
)

type testServer struct {
	handler http.Handler
	repo    *repository.MemoryRepository
	jwt     *auth.JWTManager
	hub     *WebSocketManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewMemoryRepository()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	uploads := t.TempDir()
	files, err := storage.NewLocalFileStorage(uploads, "http://localhost/uploads")
	require.NoError(t, err)

	hub := NewWebSocketManager(logger)
	profileService := domain.NewProfileService(repo, files, logger)

	router := NewRouter(
		NewAuthHandler(domain.NewAuthService(repo, jwtManager), false, logger),
		NewProfileHandler(profileService, logger),
		NewFeedHandler(domain.NewFeedService(repo, repo), logger),
		NewConnectionHandler(domain.NewConnectionService(repo, repo, hub, logger), logger),
		NewNotificationHandler(profileService, hub, nil, logger),
		NewPaymentHandler(domain.NewPaymentService(), logger),
		NewHealthHandler(repo, "test", logger),
		jwtManager,
		middleware.NewRateLimiter(60000, 1000),
		RouterOptions{UploadsDir: uploads},
		logger,
	)

	return &testServer{handler: router.Setup(), repo: repo, jwt: jwtManager, hub: hub}
}

// user creates a user directly in the store and returns it with a token
func (s *testServer) user(t *testing.T, first string) (*domain.User, string) {
	t.Helper()
	u, err := s.repo.CreateUser(context.Background(), domain.CreateUserParams{
		Email:        first + "-" + uuid.NewString()[:8] + "@example.com",
		PasswordHash: "unused",
		FirstName:    first,
		LastName:     "Tester",
	})
	require.NoError(t, err)
	token, _, err := s.jwt.GenerateToken(u.ID, u.Email)
	require.NoError(t, err)
	return u, token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestConnectionLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "alice")
	bob, bobToken := s.user(t, "bob")

	rec, env := s.do(t, http.MethodPost, "/connection/request/interested/"+bob.ID.String(), aliceToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.ConnectionRequest
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, domain.StatusInterested, created.Status)
	assert.Equal(t, alice.ID, created.FromUserID)

	rec, env = s.do(t, http.MethodGet, "/user/request/received", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var received []domain.ReceivedRequest
	require.NoError(t, json.Unmarshal(env.Data, &received))
	require.Len(t, received, 1)
	assert.Equal(t, created.ID, received[0].ID)
	assert.Equal(t, "alice", received[0].From.FirstName)

	rec, env = s.do(t, http.MethodPost, "/connection/review/accepted/"+created.ID.String(), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reviewed domain.ConnectionRequest
	require.NoError(t, json.Unmarshal(env.Data, &reviewed))
	assert.Equal(t, domain.StatusAccepted, reviewed.Status)

	for _, tc := range []struct {
		token string
		want  uuid.UUID
	}{{aliceToken, bob.ID}, {bobToken, alice.ID}} {
		rec, env = s.do(t, http.MethodGet, "/user/connection/accepted", tc.token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var conns []domain.UserSummary
		require.NoError(t, json.Unmarshal(env.Data, &conns))
		require.Len(t, conns, 1)
		assert.Equal(t, tc.want, conns[0].ID)
	}

	// Nothing left to review.
	rec, env = s.do(t, http.MethodGet, "/user/request/received", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestConnectionErrors(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.user(t, "alice")
	bob, bobToken := s.user(t, "bob")
	carol, carolToken := s.user(t, "carol")

	rec, env := s.do(t, http.MethodPost, "/connection/request/interested/"+bob.ID.String(), aliceToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.ConnectionRequest
	require.NoError(t, json.Unmarshal(env.Data, &created))

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"duplicate same direction", http.MethodPost, "/connection/request/ignored/" + bob.ID.String(), aliceToken, http.StatusConflict, "DUPLICATE_REQUEST"},
		{"self request", http.MethodPost, "/connection/request/interested/" + carol.ID.String(), carolToken, http.StatusBadRequest, "INVALID_TARGET"},
		{"bad intent", http.MethodPost, "/connection/request/accepted/" + carol.ID.String(), aliceToken, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown target", http.MethodPost, "/connection/request/interested/" + uuid.NewString(), aliceToken, http.StatusBadRequest, "INVALID_TARGET"},
		{"malformed target", http.MethodPost, "/connection/request/interested/not-a-uuid", aliceToken, http.StatusBadRequest, "INVALID_INPUT"},
		{"review by non receiver", http.MethodPost, "/connection/review/accepted/" + created.ID.String(), carolToken, http.StatusForbidden, "UNAUTHORIZED"},
		{"review by sender", http.MethodPost, "/connection/review/accepted/" + created.ID.String(), aliceToken, http.StatusForbidden, "UNAUTHORIZED"},
		{"bad decision", http.MethodPost, "/connection/review/ignored/" + created.ID.String(), bobToken, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown request", http.MethodPost, "/connection/review/accepted/" + uuid.NewString(), bobToken, http.StatusNotFound, "NOT_FOUND"},
		{"no session", http.MethodGet, "/feed", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(env))
		})
	}

	t.Run("reverse pair is a duplicate", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/connection/request/interested/"+s.mustUserIDFromToken(t, aliceToken).String(), bobToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "DUPLICATE_REQUEST", errorCode(env))
	})

	t.Run("double review", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/connection/review/rejected/"+created.ID.String(), bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env := s.do(t, http.MethodPost, "/connection/review/accepted/"+created.ID.String(), bobToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "INVALID_STATE", errorCode(env))

		stored, err := s.repo.GetConnectionRequest(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, stored.Status)
	})
}

func (s *testServer) mustUserIDFromToken(t *testing.T, token string) uuid.UUID {
	t.Helper()
	claims, err := s.jwt.ValidateToken(token)
	require.NoError(t, err)
	return claims.UserID
}

func TestFeed(t *testing.T) {
	s := newTestServer(t)
	viewer, viewerToken := s.user(t, "viewer")
	others := make([]*domain.User, 0, 12)
	for i := 0; i < 12; i++ {
		u, _ := s.user(t, "candidate")
		others = append(others, u)
	}

	feed := func(query string) FeedResponse {
		rec, env := s.do(t, http.MethodGet, "/feed"+query, viewerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp FeedResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		return resp
	}

	first := feed("?page=1&limit=10")
	assert.Len(t, first.Users, 10)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, others[0].ID, first.Users[0].ID)
	for _, u := range first.Users {
		assert.NotEqual(t, viewer.ID, u.ID)
	}

	second := feed("?page=2&limit=10")
	assert.Len(t, second.Users, 2)

	clamped := feed("?page=-3&limit=500")
	assert.Equal(t, 1, clamped.Page)
	assert.Equal(t, domain.MaxFeedLimit, clamped.Limit)
	assert.Len(t, clamped.Users, 12)

	defaults := feed("?page=abc")
	assert.Equal(t, domain.DefaultFeedLimit, defaults.Limit)

	rec, _ := s.do(t, http.MethodPost, "/connection/request/ignored/"+others[0].ID.String(), viewerToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	after := feed("?limit=50")
	assert.Len(t, after.Users, 11)
	for _, u := range after.Users {
		assert.NotEqual(t, others[0].ID, u.ID)
	}
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	user, token := s.user(t, "ada")

	t.Run("underage is rejected without writing", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPatch, "/profile/edit", token, map[string]interface{}{"age": 15, "about": "hi"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(env))

		stored, err := s.repo.GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Age)
		assert.Empty(t, stored.About)
	})

	t.Run("email cannot be edited", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPatch, "/profile/edit", token, `{"emailId":"new@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(env))
	})

	t.Run("valid edit", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPatch, "/profile/edit", token, map[string]interface{}{
			"age":    30,
			"gender": "female",
			"skills": []string{"go", "mongodb"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated domain.User
		require.NoError(t, json.Unmarshal(env.Data, &updated))
		require.NotNil(t, updated.Age)
		assert.Equal(t, 30, *updated.Age)
		assert.Equal(t, []string{"go", "mongodb"}, updated.Skills)

		rec, env = s.do(t, http.MethodGet, "/profile/view", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, string(env.Data), "unused")
	})

	t.Run("photo upload", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("photo", "me.png")
		require.NoError(t, err)
		_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/profile/photo", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		stored, err := s.repo.GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Contains(t, stored.PhotoURL, "http://localhost/uploads/")
	})

	t.Run("device token", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPut, "/user/device-token", token, map[string]string{"token": "fcm-123"})
		require.Equal(t, http.StatusOK, rec.Code)
		stored, err := s.repo.GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"fcm-123"}, stored.DeviceTokens)
	})
}

func TestSignupLoginLogout(t *testing.T) {
	s := newTestServer(t)
	signup := map[string]string{
		"firstName": "Grace",
		"lastName":  "Hopper",
		"emailId":   "grace@example.com",
		"password":  "Str0ng!Pass",
	}

	rec, env := s.do(t, http.MethodPost, "/signup", "", signup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, string(env.Data), "passwordHash")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec, env = s.do(t, http.MethodGet, "/profile/view", cookie.Value, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "grace@example.com")

	rec, env = s.do(t, http.MethodPost, "/signup", "", signup)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", errorCode(env))

	rec, env = s.do(t, http.MethodPost, "/login", "", map[string]string{"emailId": "grace@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(env))

	rec, _ = s.do(t, http.MethodPost, "/login", "", map[string]string{"emailId": "GRACE@example.com", "password": "Str0ng!Pass"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
}

func TestPaymentAndHealth(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "payer")

	rec, env := s.do(t, http.MethodGet, "/payment/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "gold")

	rec, env = s.do(t, http.MethodPost, "/payment/create", token, map[string]string{"membershipType": "silver"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(env.Data), `"status":"created"`)

	rec, env = s.do(t, http.MethodPost, "/payment/create", token, map[string]string{"membershipType": "platinum"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(env))

	rec, _ = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return domain.ErrStoreUnavailable }

func TestHealthReady_StoreDown(t *testing.T) {
	h := NewHealthHandler(downStore{}, "test", zap.NewNop())
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWriteError_StoreUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zap.NewNop(), domain.ErrStoreUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "STORE_UNAVAILABLE")
}

func TestEventsSocket(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.hub.Run(ctx)

	srv := httptest.NewServer(s.handler)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	alice, aliceToken := s.user(t, "alice")
	bob, bobToken := s.user(t, "bob")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Cookie", middleware.TokenCookie+"="+bobToken)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.hub.ConnectedClients(bob.ID) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, s.hub.ConnectedClients(alice.ID))

	rec, _ := s.do(t, http.MethodPost, "/connection/request/interested/"+bob.ID.String(), aliceToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event WSEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, string(domain.EventRequestReceived), event.Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.hub.ConnectedClients(bob.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

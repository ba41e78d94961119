package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reliefapp/internal/models"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserService struct {
	services.UserServiceInterface
	authenticate func(ctx context.Context, username, password string) (*models.User, error)
	getByID      func(ctx context.Context, id int) (*models.User, error)
	lastActive   func(ctx context.Context, userID int) error
}

func (s *stubUserService) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	return s.authenticate(ctx, username, password)
}

func (s *stubUserService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.getByID(ctx, id)
}

func (s *stubUserService) UpdateLastActive(ctx context.Context, userID int) error {
	if s.lastActive != nil {
		return s.lastActive(ctx, userID)
	}
	return nil
}

func newAuthTestRouter(users services.UserServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))

	h := NewAuthHandler(users, handlerTestConfig(), handlerTestLogger())
	router.POST("/v1/auth/login", h.Login)
	router.POST("/v1/auth/logout", h.Logout)
	router.GET("/v1/auth/status", h.Status)
	return router
}

func TestLogin_SetsSessionAndReturnsUser(t *testing.T) {
	users := &stubUserService{
		authenticate: func(_ context.Context, username, password string) (*models.User, error) {
			assert.Equal(t, "amina", username)
			assert.Equal(t, "correcthorse", password)
			return &models.User{ID: 7, Username: "amina", OrganizationID: 1}, nil
		},
	}
	router := newAuthTestRouter(users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"amina","password":"correcthorse"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"amina"`)
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))
}

func TestLogin_BadCredentials(t *testing.T) {
	users := &stubUserService{
		authenticate: func(context.Context, string, string) (*models.User, error) {
			return nil, contextutils.ErrInvalidCredentials
		},
	}
	router := newAuthTestRouter(users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"amina","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	router := newAuthTestRouter(&stubUserService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"amina"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatus_Unauthenticated(t *testing.T) {
	router := newAuthTestRouter(&stubUserService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestStatus_AuthenticatedSession(t *testing.T) {
	users := &stubUserService{
		authenticate: func(context.Context, string, string) (*models.User, error) {
			return &models.User{ID: 7, Username: "amina", OrganizationID: 1}, nil
		},
		getByID: func(_ context.Context, id int) (*models.User, error) {
			assert.Equal(t, 7, id)
			return &models.User{ID: 7, Username: "amina", OrganizationID: 1}, nil
		},
	}
	router := newAuthTestRouter(users)

	// Login to get a session cookie
	loginRec := httptest.NewRecorder()
	loginReq := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"amina","password":"correcthorse"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(loginRec, loginReq)
	require.Equal(t, http.StatusOK, loginRec.Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/status", nil)
	for _, c := range loginRec.Result().Cookies() {
		req.AddCookie(c)
	}
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), `"username":"amina"`)
}

func TestStatus_StaleSessionCleared(t *testing.T) {
	users := &stubUserService{
		authenticate: func(context.Context, string, string) (*models.User, error) {
			return &models.User{ID: 7, Username: "amina", OrganizationID: 1}, nil
		},
		getByID: func(context.Context, int) (*models.User, error) {
			return nil, contextutils.ErrRecordNotFound
		},
	}
	router := newAuthTestRouter(users)

	loginRec := httptest.NewRecorder()
	loginReq := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"amina","password":"correcthorse"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(loginRec, loginReq)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/status", nil)
	for _, c := range loginRec.Result().Cookies() {
		req.AddCookie(c)
	}
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestLogout_ClearsSession(t *testing.T) {
	router := newAuthTestRouter(&stubUserService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Logout successful")
}

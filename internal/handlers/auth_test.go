package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamtask-api/internal/constants"
	"github.com/yukikurage/teamtask-api/internal/dto"
	"github.com/yukikurage/teamtask-api/internal/middleware"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
	"github.com/yukikurage/teamtask-api/internal/services"
	"github.com/yukikurage/teamtask-api/internal/testutil"
	"gorm.io/gorm"
)

const testAdminCode = "let-me-in"

type authTestEnv struct {
	db          *gorm.DB
	handler     *AuthHandler
	userHandler *UserHandler
	authService *services.AuthService
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, testAdminCode)
	handler := NewAuthHandler(authService, AdminBootstrap{
		Email:    "admin@taskmanager.com",
		Password: "bootstrap-secret",
		Name:     "Admin",
	})

	return authTestEnv{
		db:          db,
		handler:     handler,
		userHandler: NewUserHandler(services.NewUserService(userRepo)),
		authService: authService,
	}
}

// router wires the auth routes behind a cookie session store.
func (env authTestEnv) router() *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	r.POST("/api/auth/signup", env.handler.Signup)
	r.POST("/api/auth/login", env.handler.Login)
	r.POST("/api/auth/logout", env.handler.Logout)
	r.POST("/api/admin/init", env.handler.InitAdmin)
	r.GET("/api/users/me", middleware.RequireAuth(), env.handler.GetCurrentUser)
	r.GET("/api/users", middleware.RequireAuth(), middleware.RequireRole(models.RoleAdmin), env.userHandler.ListEmployees)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, url string, payload interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r *gin.Engine, url string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/signup", map[string]string{
		"email":    "NewUser@example.com",
		"password": "supersecret",
		"name":     "New User",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "newuser@example.com", response.Email)
	require.Equal(t, models.RoleEmployee, response.Role)
	require.NotContains(t, w.Body.String(), "password")

	w = postJSON(t, r, "/api/auth/signup", map[string]string{
		"email":    "newuser@example.com",
		"password": "supersecret",
		"name":     "Duplicate",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(t, r, "/api/auth/signup", map[string]string{
		"email":     "boss@example.com",
		"password":  "supersecret",
		"name":      "Boss",
		"adminCode": testAdminCode,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, models.RoleAdmin, response.Role)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	_, err := env.authService.Signup(services.SignupInput{
		Email:    "existing@example.com",
		Password: "supersecret",
		Name:     "Existing",
	})
	require.NoError(t, err)

	w := postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")

	w = get(r, "/api/users/me", cookies...)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "existing@example.com", response.Email)
	require.NotNil(t, response.LastLogin)

	// employees may not list users
	w = get(r, "/api/users", cookies...)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandler_GetCurrentUserRequiresSession(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := get(env.router(), "/api/users/me")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/auth/logout", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_InitAdminAndListEmployees(t *testing.T) {
	env := setupAuthTestEnv(t)
	r := env.router()

	w := postJSON(t, r, "/api/admin/init", map[string]string{})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/api/admin/init", map[string]string{})
	require.Equal(t, http.StatusConflict, w.Code)

	for _, name := range []string{"Zoe", "Adam"} {
		_, err := env.authService.Signup(services.SignupInput{
			Email:    name + "@example.com",
			Password: "supersecret",
			Name:     name,
		})
		require.NoError(t, err)
	}

	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"email":    "admin@taskmanager.com",
		"password": "bootstrap-secret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/api/users", w.Result().Cookies()...)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Users []dto.UserDTO `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Users, 2)
	require.Equal(t, "Adam", response.Users[0].Name)
	require.Equal(t, "Zoe", response.Users[1].Name)
}

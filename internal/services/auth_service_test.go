package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
	"github.com/yukikurage/teamtask-api/internal/testutil"
)

func newTestAuthService(t *testing.T, adminCode string) *AuthService {
	t.Helper()
	return NewAuthService(repository.NewUserRepository(testutil.NewTestDB(t)), adminCode)
}

func TestAuthService_Signup(t *testing.T) {
	svc := newTestAuthService(t, "letmein")

	employee, err := svc.Signup(SignupInput{Email: " Emp@Example.com ", Password: "secret1", Name: "Emp"})
	require.NoError(t, err)
	assert.Equal(t, "emp@example.com", employee.Email)
	assert.Equal(t, models.RoleEmployee, employee.Role)
	assert.NotEqual(t, "secret1", employee.PasswordHash)

	admin, err := svc.Signup(SignupInput{Email: "boss@example.com", Password: "secret1", Name: "Boss", AdminCode: "letmein"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = svc.Signup(SignupInput{Email: "emp@example.com", Password: "secret1", Name: "Again"})
	assert.True(t, errors.Is(err, ErrEmailTaken))

	_, err = svc.Signup(SignupInput{Email: "short@example.com", Password: "12345", Name: "Short"})
	assert.True(t, errors.Is(err, ErrPasswordTooShort))

	_, err = svc.Signup(SignupInput{Email: "", Password: "secret1", Name: "Nobody"})
	assert.True(t, errors.Is(err, ErrSignupFieldsRequired))
}

func TestAuthService_SignupIgnoresAdminCodeWhenUnset(t *testing.T) {
	svc := newTestAuthService(t, "")

	user, err := svc.Signup(SignupInput{Email: "a@example.com", Password: "secret1", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployee, user.Role)
}

func TestAuthService_Login(t *testing.T) {
	svc := newTestAuthService(t, "")

	_, err := svc.Signup(SignupInput{Email: "user@example.com", Password: "secret1", Name: "User"})
	require.NoError(t, err)

	user, err := svc.Login(LoginInput{Email: "USER@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotNil(t, user.LastLogin)

	_, err = svc.Login(LoginInput{Email: "user@example.com", Password: "wrong-password"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = svc.Login(LoginInput{Email: "ghost@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestAuthService_InitAdmin(t *testing.T) {
	svc := newTestAuthService(t, "")

	_, err := svc.InitAdmin("admin@taskmanager.com", "", "Admin")
	assert.True(t, errors.Is(err, ErrAdminNotConfigured))

	admin, err := svc.InitAdmin("admin@taskmanager.com", "bootstrap", "Admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = svc.InitAdmin("second@taskmanager.com", "bootstrap", "Admin")
	assert.True(t, errors.Is(err, ErrAdminExists))
}

package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/teamtask-api/internal/constants"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrSignupFieldsRequired = fmt.Errorf("%w: email, password and name are required", ErrValidation)
	ErrPasswordTooShort     = fmt.Errorf("%w: password must be at least %d characters", ErrValidation, constants.MinPasswordLength)
	ErrEmailTaken           = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrAdminExists          = fmt.Errorf("%w: admin already exists", ErrConflict)
	ErrAdminNotConfigured   = fmt.Errorf("%w: bootstrap admin password is not configured", ErrValidation)
	ErrFailedToHashPassword = fmt.Errorf("%w: failed to hash password", ErrDependency)
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo  repository.UserRepository
	adminCode string
}

// NewAuthService creates a new AuthService. A signup presenting adminCode is
// granted the admin role; an empty adminCode disables that path.
func NewAuthService(userRepo repository.UserRepository, adminCode string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		adminCode: adminCode,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email     string
	Password  string
	Name      string
	AdminCode string
}

// Signup creates a new user.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	role := models.RoleEmployee
	if s.adminCode != "" && input.AdminCode == s.adminCode {
		role = models.RoleAdmin
	}
	return s.createUser(input.Email, input.Password, input.Name, role)
}

// InitAdmin creates the bootstrap administrator when no admin exists yet.
func (s *AuthService) InitAdmin(email, password, name string) (*models.User, error) {
	if password == "" {
		return nil, ErrAdminNotConfigured
	}

	exists, err := s.userRepo.ExistsWithRole(models.RoleAdmin)
	if err != nil {
		return nil, dependencyError("check admin", err)
	}
	if exists {
		return nil, ErrAdminExists
	}

	return s.createUser(email, password, name, models.RoleAdmin)
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, dependencyError("find user", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.TouchLastLogin(user); err != nil {
		return nil, dependencyError("record login", err)
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, dependencyError("find user", err)
	}

	return user, nil
}

func (s *AuthService) createUser(email, password, name string, role models.Role) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, ErrSignupFieldsRequired
	}
	if len(password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dependencyError("check email", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         role,
		Avatar:       constants.DefaultAvatarURL,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, dependencyError("create user", err)
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

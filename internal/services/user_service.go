package services

import (
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
)

// UserService exposes user listings to admins.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ListEmployees returns active employees sorted by name, for assignment pickers.
func (s *UserService) ListEmployees(caller Caller) ([]models.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrAdminOnly
	}

	users, err := s.userRepo.ListActiveByRole(models.RoleEmployee)
	if err != nil {
		return nil, dependencyError("list employees", err)
	}
	return users, nil
}

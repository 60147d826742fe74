package repository

import (
	"time"

	"github.com/yukikurage/teamtask-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs loads the users with the given ids, ordered by id
func (r *GormUserRepository) FindByIDs(ids []uint64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CountByIDs counts how many of the given user IDs exist
func (r *GormUserRepository) CountByIDs(ids []uint64) (int64, error) {
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	err := r.db.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// ListActiveByRole lists active users with a role, sorted by name
func (r *GormUserRepository) ListActiveByRole(role models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("role = ? AND is_active = ?", role, true).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ExistsWithRole reports whether any user has the role
func (r *GormUserRepository) ExistsWithRole(role models.Role) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateCompletionRate stores a user's completion rate. It returns
// gorm.ErrRecordNotFound when the user no longer exists.
func (r *GormUserRepository) UpdateCompletionRate(id uint64, rate int) error {
	result := r.db.Model(&models.User{}).Where("id = ?", id).Update("completion_rate", rate)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Some drivers report zero affected rows for an unchanged value.
	_, err := r.FindByID(id)
	return err
}

// TouchLastLogin records a successful login
func (r *GormUserRepository) TouchLastLogin(user *models.User) error {
	now := time.Now()
	if err := r.db.Model(user).Update("last_login", now).Error; err != nil {
		return err
	}
	user.LastLogin = &now
	return nil
}

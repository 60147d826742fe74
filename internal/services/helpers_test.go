package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
	"github.com/yukikurage/teamtask-api/internal/testutil"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db          *gorm.DB
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	aggregator  *CompletionRateAggregator
	taskService *TaskService
}

func newServiceTestEnv(t *testing.T) serviceTestEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	aggregator := NewCompletionRateAggregator(taskRepo, userRepo)

	return serviceTestEnv{
		db:          db,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		aggregator:  aggregator,
		taskService: NewTaskService(taskRepo, userRepo, aggregator, nil),
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		Name:         email,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func completionRateOf(t *testing.T, db *gorm.DB, userID uint64) int {
	t.Helper()

	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	return user.CompletionRate
}

func ptr[T any](v T) *T {
	return &v
}

func dueIn(days int) *time.Time {
	return ptr(time.Now().AddDate(0, 0, days).Truncate(time.Second))
}

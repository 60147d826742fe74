package repository

import (
	"errors"

	"github.com/yukikurage/teamtask-api/internal/models"
)

// ErrStaleTask is returned by TaskRepository.Save when the stored version no
// longer matches the version the caller read.
var ErrStaleTask = errors.New("task repository: stale task version")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a task together with its checklist, attachments and assignees
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Save replaces a task and its children, guarded by the task's version
	Save(task *models.Task) error

	// Delete soft deletes a task and removes its assignments
	Delete(id uint64) error

	// AddComment appends a comment to a task
	AddComment(comment *models.TaskComment) error

	// CountAssigned counts live tasks assigned to a user, in total and completed
	CountAssigned(userID uint64) (total, completed int64, err error)

	// AssigneeStatusCounts aggregates, per assignee, the status of tasks created by creatorID
	AssigneeStatusCounts(creatorID uint64) ([]AssigneeStatusCount, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Status         *models.TaskStatus
	CreatorID      *uint64
	AssignedUserID *uint64
	SortByDueDate  bool
	Offset         int
	Limit          int
}

// AssigneeStatusCount is one row of the per-assignee status breakdown.
type AssigneeStatusCount struct {
	UserID uint64
	Status models.TaskStatus
	Count  int64
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByIDs loads the users with the given ids
	FindByIDs(ids []uint64) ([]models.User, error)

	// CountByIDs counts how many of the given user IDs exist
	CountByIDs(ids []uint64) (int64, error)

	// ListActiveByRole lists active users with a role, sorted by name
	ListActiveByRole(role models.Role) ([]models.User, error)

	// ExistsWithRole reports whether any user has the role
	ExistsWithRole(role models.Role) (bool, error)

	// UpdateCompletionRate stores a user's completion rate
	UpdateCompletionRate(id uint64, rate int) error

	// TouchLastLogin records a successful login
	TouchLastLogin(user *models.User) error
}

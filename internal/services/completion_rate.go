package services

import (
	"errors"
	"log"

	"github.com/yukikurage/teamtask-api/internal/repository"
	"gorm.io/gorm"
)

// CompletionRateAggregator keeps each user's stored completion rate in line
// with the tasks currently assigned to them.
type CompletionRateAggregator struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

// NewCompletionRateAggregator creates a new CompletionRateAggregator.
func NewCompletionRateAggregator(taskRepo repository.TaskRepository, userRepo repository.UserRepository) *CompletionRateAggregator {
	return &CompletionRateAggregator{
		taskRepo: taskRepo,
		userRepo: userRepo,
	}
}

// Recompute counts the tasks assigned to userID and stores the resulting rate.
// A user that no longer exists is skipped without error.
func (a *CompletionRateAggregator) Recompute(userID uint64) (int, error) {
	total, completed, err := a.taskRepo.CountAssigned(userID)
	if err != nil {
		return 0, dependencyError("count assigned tasks", err)
	}

	rate := percentOf(completed, total)

	if err := a.userRepo.UpdateCompletionRate(userID, rate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("completion rate: user %d not found, skipping", userID)
			return rate, nil
		}
		return 0, dependencyError("store completion rate", err)
	}

	return rate, nil
}

// RefreshUsers recomputes the rate of every listed user. Failures are logged
// and never returned: the task write that triggered the refresh has already
// been committed.
func (a *CompletionRateAggregator) RefreshUsers(userIDs []uint64) {
	for _, id := range uniqueUint64(userIDs) {
		if _, err := a.Recompute(id); err != nil {
			log.Printf("completion rate: refresh for user %d failed: %v", id, err)
		}
	}
}

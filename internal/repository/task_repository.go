package repository

import (
	"github.com/yukikurage/teamtask-api/internal/database"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// TaskRelations are the associations a fully loaded task carries.
var TaskRelations = []string{"CreatedBy", "Assignments", "Assignments.User", "TodoItems", "Attachments", "Comments", "Comments.User"}

// Create inserts a task together with its checklist, attachments and assignees
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		return replaceChildren(tx, task)
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	// Apply preloading if specified
	for _, p := range preload {
		query = preloadOrdered(query, p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.CreatorID != nil {
		query = query.Where("tasks.created_by_id = ?", *filter.CreatorID)
	}
	if filter.AssignedUserID != nil {
		assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", *filter.AssignedUserID)
		query = query.Where("EXISTS (?)", assignmentSubQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("tasks.due_date ASC").Order("tasks.id ASC")
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC").Order("tasks.id DESC")
	}

	listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
		Offset: filter.Offset,
		Limit:  filter.Limit,
	}))

	for _, p := range TaskRelations {
		listQuery = preloadOrdered(listQuery, p)
	}

	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Save replaces a task and its children. The row is only written when the
// stored version still equals task.Version; on success task.Version is bumped.
func (r *GormTaskRepository) Save(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Task{}).
			Where("id = ? AND version = ?", task.ID, task.Version).
			Select("Title", "Description", "Priority", "Status", "DueDate", "StartDate",
				"CompletionPercentage", "Tags", "EstimatedHours", "ActualHours", "Version").
			Updates(&models.Task{
				Title:                task.Title,
				Description:          task.Description,
				Priority:             task.Priority,
				Status:               task.Status,
				DueDate:              task.DueDate,
				StartDate:            task.StartDate,
				CompletionPercentage: task.CompletionPercentage,
				Tags:                 task.Tags,
				EstimatedHours:       task.EstimatedHours,
				ActualHours:          task.ActualHours,
				Version:              task.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleTask
		}
		task.Version++

		for _, child := range []interface{}{&models.TodoItem{}, &models.Attachment{}, &models.TaskAssignment{}} {
			if err := tx.Where("task_id = ?", task.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		return replaceChildren(tx, task)
	})
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// AddComment appends a comment to a task
func (r *GormTaskRepository) AddComment(comment *models.TaskComment) error {
	return r.db.Omit(clause.Associations).Create(comment).Error
}

// CountAssigned counts live tasks assigned to a user
func (r *GormTaskRepository) CountAssigned(userID uint64) (int64, int64, error) {
	var row struct {
		Total     int64
		Completed int64
	}

	err := r.db.Model(&models.Task{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN tasks.status = ? THEN 1 ELSE 0 END), 0) AS completed", models.TaskStatusCompleted).
		Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
		Where("task_assignments.user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}

	return row.Total, row.Completed, nil
}

// AssigneeStatusCounts aggregates, per assignee, the status of tasks created by creatorID
func (r *GormTaskRepository) AssigneeStatusCounts(creatorID uint64) ([]AssigneeStatusCount, error) {
	var rows []AssigneeStatusCount

	err := r.db.Model(&models.Task{}).
		Select("task_assignments.user_id AS user_id, tasks.status AS status, COUNT(*) AS count").
		Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
		Where("tasks.created_by_id = ?", creatorID).
		Group("task_assignments.user_id, tasks.status").
		Order("task_assignments.user_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// replaceChildren writes the task's checklist, attachments and assignments,
// numbering the ordered children by their slice index.
func replaceChildren(tx *gorm.DB, task *models.Task) error {
	for i := range task.TodoItems {
		task.TodoItems[i].ID = 0
		task.TodoItems[i].TaskID = task.ID
		task.TodoItems[i].Position = i
	}
	if len(task.TodoItems) > 0 {
		if err := tx.Create(&task.TodoItems).Error; err != nil {
			return err
		}
	}

	for i := range task.Attachments {
		task.Attachments[i].ID = 0
		task.Attachments[i].TaskID = task.ID
		task.Attachments[i].Position = i
	}
	if len(task.Attachments) > 0 {
		if err := tx.Create(&task.Attachments).Error; err != nil {
			return err
		}
	}

	for i := range task.Assignments {
		task.Assignments[i].TaskID = task.ID
	}
	if len(task.Assignments) > 0 {
		if err := tx.Omit(clause.Associations).Create(&task.Assignments).Error; err != nil {
			return err
		}
	}

	return nil
}

// preloadOrdered preloads a relation, keeping ordered children in position order.
func preloadOrdered(db *gorm.DB, relation string) *gorm.DB {
	switch relation {
	case "TodoItems", "Attachments":
		return db.Preload(relation, func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
	case "Assignments":
		return db.Preload(relation, func(db *gorm.DB) *gorm.DB {
			return db.Order("user_id ASC")
		})
	case "Comments":
		return db.Preload(relation, func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		})
	default:
		return db.Preload(relation)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/teamtask-api/internal/constants"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound            = fmt.Errorf("%w: task not found", ErrNotFound)
	ErrAdminOnly               = fmt.Errorf("%w: only administrators can perform this action", ErrUnauthorized)
	ErrEmployeeFieldRestricted = fmt.Errorf("%w: employees may only update checklist progress and status", ErrUnauthorized)
	ErrTaskVersionConflict     = fmt.Errorf("%w: task was modified by another request", ErrConflict)
	ErrTitleRequired           = fmt.Errorf("%w: title is required", ErrValidation)
	ErrDueDateRequired         = fmt.Errorf("%w: due date is required", ErrValidation)
	ErrInvalidPriority         = fmt.Errorf("%w: priority must be Low, Medium or High", ErrValidation)
	ErrInvalidStatus           = fmt.Errorf("%w: status must be Pending, In Progress or Completed", ErrValidation)
	ErrStatusDerived           = fmt.Errorf("%w: status is derived from the checklist", ErrValidation)
	ErrNegativeHours           = fmt.Errorf("%w: hours cannot be negative", ErrValidation)
	ErrInvalidTaskAssignee     = fmt.Errorf("%w: one or more assigned users do not exist", ErrValidation)
	ErrNoUserIDsProvided       = fmt.Errorf("%w: at least one user ID is required", ErrValidation)
	ErrTodoIndexOutOfRange     = fmt.Errorf("%w: checklist item does not exist", ErrValidation)
	ErrCommentEmpty            = fmt.Errorf("%w: comment text cannot be empty", ErrValidation)
	ErrAIServiceNotConfigured  = fmt.Errorf("%w: AI service is not configured", ErrDependency)
	ErrAINoTasksGenerated      = fmt.Errorf("%w: AI did not generate any tasks", ErrDependency)
	ErrAINoValidTasks          = fmt.Errorf("%w: no valid tasks could be created from AI output", ErrDependency)
)

// Caller is the resolved identity every task operation runs as.
type Caller struct {
	UserID uint64
	Role   models.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo   repository.TaskRepository
	userRepo   repository.UserRepository
	aggregator *CompletionRateAggregator
	aiService  *AIService
	now        func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, aggregator *CompletionRateAggregator, aiService *AIService) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		userRepo:   userRepo,
		aggregator: aggregator,
		aiService:  aiService,
		now:        time.Now,
	}
}

// TodoItemInput is a checklist line as submitted by a client. ID is optional
// and only used to carry completedAt over from the stored item.
type TodoItemInput struct {
	ID        uint64
	Text      string
	Completed bool
}

// AttachmentInput is an attachment as submitted by a client. Links carry their
// target in Value (URL is accepted as a fallback); files carry the resolved
// storage URL.
type AttachmentInput struct {
	Name     string
	Type     models.AttachmentKind
	Value    string
	URL      string
	FileSize *int64
	MimeType string
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title          string
	Description    string
	Priority       models.Priority
	DueDate        *time.Time
	StartDate      *time.Time
	AssignedTo     []uint64
	TodoItems      []TodoItemInput
	Attachments    []AttachmentInput
	Tags           []string
	EstimatedHours *float64
	ActualHours    *float64
}

// UpdateTaskInput represents a partial task update; nil fields are left alone
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Priority       *models.Priority
	Status         *models.TaskStatus
	DueDate        *time.Time
	StartDate      *time.Time
	AssignedTo     *[]uint64
	TodoItems      *[]TodoItemInput
	Attachments    *[]AttachmentInput
	Tags           *[]string
	EstimatedHours *float64
	ActualHours    *float64
	Version        *uint64
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status        *models.TaskStatus
	SortByDueDate bool
	Offset        int
	Limit         int
}

// EmployeeStats is the per-assignee breakdown shown to admins.
type EmployeeStats struct {
	User            models.User
	TotalTasks      int64
	PendingTasks    int64
	InProgressTasks int64
	CompletedTasks  int64
}

// TaskListResult is the role-scoped task listing. Employees is only filled
// for admins.
type TaskListResult struct {
	Tasks     []models.Task
	Total     int64
	Employees []EmployeeStats
}

// CreateTask creates a task owned by the calling admin
func (s *TaskService) CreateTask(caller Caller, input CreateTaskInput) (*models.Task, error) {
	if !caller.IsAdmin() {
		return nil, ErrAdminOnly
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.DueDate == nil || input.DueDate.IsZero() {
		return nil, ErrDueDateRequired
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityLow
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if err := validateHours(input.EstimatedHours, input.ActualHours); err != nil {
		return nil, err
	}

	now := s.now()
	task := models.Task{
		Title:          title,
		Description:    input.Description,
		Priority:       priority,
		Status:         models.TaskStatusPending,
		DueDate:        *input.DueDate,
		StartDate:      now,
		CreatedByID:    caller.UserID,
		Tags:           normalizeTags(input.Tags),
		EstimatedHours: input.EstimatedHours,
		ActualHours:    input.ActualHours,
		Version:        1,
	}
	if input.StartDate != nil && !input.StartDate.IsZero() {
		task.StartDate = *input.StartDate
	}

	assignments, err := s.resolveAssignees(input.AssignedTo)
	if err != nil {
		return nil, err
	}
	task.Assignments = assignments

	attachments, err := normalizeAttachments(input.Attachments)
	if err != nil {
		return nil, err
	}
	task.Attachments = attachments

	task, err = ApplyChecklistMutation(task, todoItemsFromInput(input.TodoItems), now)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(&task); err != nil {
		return nil, dependencyError("create task", err)
	}

	s.aggregator.RefreshUsers(task.AssigneeIDs())

	return s.loadTask(task.ID)
}

// GetTask returns a task the caller is allowed to see
func (s *TaskService) GetTask(caller Caller, taskID uint64) (*models.Task, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	if !canView(caller, task) {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

// ListTasks returns the tasks visible to the caller. Admins see the tasks they
// created along with a status breakdown per assignee; employees see the tasks
// assigned to them.
func (s *TaskService) ListTasks(caller Caller, input ListTasksInput) (*TaskListResult, error) {
	filter := repository.TaskFilter{
		Status:        input.Status,
		SortByDueDate: input.SortByDueDate,
		Offset:        input.Offset,
		Limit:         input.Limit,
	}

	userID := caller.UserID
	if caller.IsAdmin() {
		filter.CreatorID = &userID
	} else {
		filter.AssignedUserID = &userID
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, dependencyError("list tasks", err)
	}

	result := &TaskListResult{Tasks: tasks, Total: total}
	if !caller.IsAdmin() {
		return result, nil
	}

	result.Employees, err = s.employeeStats(caller.UserID)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateTask applies a partial update. Admins, the creator and assignees may
// update; employees are limited to checklist progress and status. Completion
// rates of every user whose assignment or task status changed are refreshed
// after the write.
func (s *TaskService) UpdateTask(caller Caller, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	if !canEdit(caller, task) {
		return nil, ErrTaskNotFound
	}
	if input.Version != nil && *input.Version != task.Version {
		return nil, ErrTaskVersionConflict
	}
	if !caller.IsAdmin() && task.CreatedByID != caller.UserID {
		if err := checkEmployeePatch(task, input); err != nil {
			return nil, err
		}
	}

	now := s.now()
	previousStatus := task.Status
	previousAssignees := task.AssigneeIDs()
	updated := *task

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		updated.Title = title
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		updated.Priority = *input.Priority
	}
	if input.DueDate != nil {
		if input.DueDate.IsZero() {
			return nil, ErrDueDateRequired
		}
		updated.DueDate = *input.DueDate
	}
	if input.StartDate != nil && !input.StartDate.IsZero() {
		updated.StartDate = *input.StartDate
	}
	if input.Tags != nil {
		updated.Tags = normalizeTags(*input.Tags)
	}
	if input.EstimatedHours != nil || input.ActualHours != nil {
		if err := validateHours(input.EstimatedHours, input.ActualHours); err != nil {
			return nil, err
		}
		if input.EstimatedHours != nil {
			updated.EstimatedHours = input.EstimatedHours
		}
		if input.ActualHours != nil {
			updated.ActualHours = input.ActualHours
		}
	}
	if input.AssignedTo != nil {
		updated.Assignments, err = s.resolveAssignees(*input.AssignedTo)
		if err != nil {
			return nil, err
		}
	}
	if input.Attachments != nil {
		updated.Attachments, err = normalizeAttachments(*input.Attachments)
		if err != nil {
			return nil, err
		}
	}

	// a manual status on a task without a checklist survives patches that
	// leave the checklist alone
	if input.TodoItems != nil || len(task.TodoItems) > 0 {
		items := task.TodoItems
		if input.TodoItems != nil {
			items = todoItemsFromInput(*input.TodoItems)
		}
		updated, err = ApplyChecklistMutation(updated, items, now)
		if err != nil {
			return nil, err
		}
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if len(updated.TodoItems) > 0 {
			if *input.Status != updated.Status {
				return nil, ErrStatusDerived
			}
		} else {
			updated.Status = *input.Status
		}
	}

	if err := s.taskRepo.Save(&updated); err != nil {
		if errors.Is(err, repository.ErrStaleTask) {
			return nil, ErrTaskVersionConflict
		}
		return nil, dependencyError("update task", err)
	}

	currentAssignees := updated.AssigneeIDs()
	if updated.Status != previousStatus || !sameIDSet(previousAssignees, currentAssignees) {
		s.aggregator.RefreshUsers(append(previousAssignees, currentAssignees...))
	}

	return s.loadTask(updated.ID)
}

// ToggleTodoItem flips the completion of the checklist item at index.
func (s *TaskService) ToggleTodoItem(caller Caller, taskID uint64, index int) (*models.Task, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}
	if !canEdit(caller, task) {
		return nil, ErrTaskNotFound
	}
	if index < 0 || index >= len(task.TodoItems) {
		return nil, ErrTodoIndexOutOfRange
	}

	items := todoItemsFromModels(task.TodoItems)
	items[index].Completed = !items[index].Completed
	version := task.Version

	return s.UpdateTask(caller, taskID, UpdateTaskInput{TodoItems: &items, Version: &version})
}

// AssignUsers adds users to a task's assignee set
func (s *TaskService) AssignUsers(caller Caller, taskID uint64, userIDs []uint64) (*models.Task, error) {
	return s.changeAssignees(caller, taskID, userIDs, func(current map[uint64]struct{}, id uint64) {
		current[id] = struct{}{}
	})
}

// UnassignUsers removes users from a task's assignee set
func (s *TaskService) UnassignUsers(caller Caller, taskID uint64, userIDs []uint64) (*models.Task, error) {
	return s.changeAssignees(caller, taskID, userIDs, func(current map[uint64]struct{}, id uint64) {
		delete(current, id)
	})
}

// DeleteTask deletes a task. Only the admin who created it may do so.
func (s *TaskService) DeleteTask(caller Caller, taskID uint64) error {
	if !caller.IsAdmin() {
		return ErrAdminOnly
	}

	task, err := s.findTask(taskID, "Assignments")
	if err != nil {
		return err
	}

	if task.CreatedByID != caller.UserID {
		return ErrTaskNotFound
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return dependencyError("delete task", err)
	}

	s.aggregator.RefreshUsers(task.AssigneeIDs())

	return nil
}

// AddComment appends a comment from the caller to a task
func (s *TaskService) AddComment(caller Caller, taskID uint64, text string) (*models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrCommentEmpty
	}

	task, err := s.findTask(taskID, "Assignments")
	if err != nil {
		return nil, err
	}
	if !canEdit(caller, task) {
		return nil, ErrTaskNotFound
	}

	comment := &models.TaskComment{
		TaskID: task.ID,
		UserID: caller.UserID,
		Text:   text,
	}
	if err := s.taskRepo.AddComment(comment); err != nil {
		return nil, dependencyError("add comment", err)
	}

	return s.loadTask(task.ID)
}

// GenerateTasks uses AI to draft tasks from free text
func (s *TaskService) GenerateTasks(ctx context.Context, caller Caller, text string) ([]GeneratedTask, error) {
	if !caller.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if strings.TrimSpace(text) == "" {
		return nil, validationError("text is required")
	}
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate tasks: %v", ErrDependency, err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("%w: AI generated too many tasks (max %d)", ErrDependency, constants.MaxAIGeneratedTasks)
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}

		todos := aiTask.TodoItems[:0]
		for _, todo := range aiTask.TodoItems {
			if strings.TrimSpace(todo) != "" {
				todos = append(todos, strings.TrimSpace(todo))
			}
		}
		aiTask.TodoItems = todos

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func (s *TaskService) changeAssignees(caller Caller, taskID uint64, userIDs []uint64, apply func(map[uint64]struct{}, uint64)) (*models.Task, error) {
	if !caller.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if len(userIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	task, err := s.findTask(taskID, "Assignments")
	if err != nil {
		return nil, err
	}

	current := make(map[uint64]struct{}, len(task.Assignments))
	for _, id := range task.AssigneeIDs() {
		current[id] = struct{}{}
	}
	for _, id := range uniqueUint64(userIDs) {
		apply(current, id)
	}

	next := make([]uint64, 0, len(current))
	for id := range current {
		next = append(next, id)
	}
	version := task.Version

	return s.UpdateTask(caller, taskID, UpdateTaskInput{AssignedTo: &next, Version: &version})
}

func (s *TaskService) employeeStats(creatorID uint64) ([]EmployeeStats, error) {
	rows, err := s.taskRepo.AssigneeStatusCounts(creatorID)
	if err != nil {
		return nil, dependencyError("aggregate assignee statuses", err)
	}

	byUser := make(map[uint64]*EmployeeStats)
	ids := make([]uint64, 0)
	for _, row := range rows {
		stats, ok := byUser[row.UserID]
		if !ok {
			stats = &EmployeeStats{}
			byUser[row.UserID] = stats
			ids = append(ids, row.UserID)
		}

		stats.TotalTasks += row.Count
		switch row.Status {
		case models.TaskStatusPending:
			stats.PendingTasks += row.Count
		case models.TaskStatusInProgress:
			stats.InProgressTasks += row.Count
		case models.TaskStatusCompleted:
			stats.CompletedTasks += row.Count
		}
	}

	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, dependencyError("load assignees", err)
	}

	result := make([]EmployeeStats, 0, len(users))
	for _, user := range users {
		stats := byUser[user.ID]
		stats.User = user
		result = append(result, *stats)
	}

	return result, nil
}

// resolveAssignees checks that every id names an existing user and returns
// the deduplicated assignment set.
func (s *TaskService) resolveAssignees(userIDs []uint64) ([]models.TaskAssignment, error) {
	ids := uniqueUint64(userIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	count, err := s.userRepo.CountByIDs(ids)
	if err != nil {
		return nil, dependencyError("verify assignees", err)
	}
	if int(count) != len(ids) {
		return nil, ErrInvalidTaskAssignee
	}

	assignments := make([]models.TaskAssignment, len(ids))
	for i, id := range ids {
		assignments[i] = models.TaskAssignment{UserID: id}
	}
	return assignments, nil
}

func (s *TaskService) loadTask(taskID uint64) (*models.Task, error) {
	return s.findTask(taskID, repository.TaskRelations...)
}

func (s *TaskService) findTask(taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, dependencyError("find task", err)
	}
	return task, nil
}

// canView reports whether the caller may read the task: admins see what they
// created, employees see what is assigned to them.
func canView(caller Caller, task *models.Task) bool {
	if caller.IsAdmin() {
		return task.CreatedByID == caller.UserID
	}
	return task.IsAssignedTo(caller.UserID)
}

// canEdit reports whether the caller may mutate the task.
func canEdit(caller Caller, task *models.Task) bool {
	return caller.IsAdmin() || task.CreatedByID == caller.UserID || task.IsAssignedTo(caller.UserID)
}

// checkEmployeePatch rejects any change beyond checklist completion and status.
func checkEmployeePatch(task *models.Task, input UpdateTaskInput) error {
	if input.Title != nil || input.Description != nil || input.Priority != nil ||
		input.DueDate != nil || input.StartDate != nil || input.AssignedTo != nil ||
		input.Attachments != nil || input.Tags != nil ||
		input.EstimatedHours != nil || input.ActualHours != nil {
		return ErrEmployeeFieldRestricted
	}

	if input.TodoItems == nil {
		return nil
	}

	items := *input.TodoItems
	if len(items) != len(task.TodoItems) {
		return ErrEmployeeFieldRestricted
	}
	for i, item := range items {
		if strings.TrimSpace(item.Text) != task.TodoItems[i].Text {
			return ErrEmployeeFieldRestricted
		}
	}
	return nil
}

func validateHours(values ...*float64) error {
	for _, v := range values {
		if v != nil && *v < 0 {
			return ErrNegativeHours
		}
	}
	return nil
}

func normalizeAttachments(inputs []AttachmentInput) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(inputs))
	for _, in := range inputs {
		url := in.URL
		if in.Type == models.AttachmentLink && strings.TrimSpace(in.Value) != "" {
			url = in.Value
		}

		attachment, err := NormalizeAttachment(models.Attachment{
			Name:     in.Name,
			Kind:     in.Type,
			URL:      url,
			FileSize: in.FileSize,
			MimeType: in.MimeType,
		})
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, nil
}

func todoItemsFromInput(inputs []TodoItemInput) []models.TodoItem {
	items := make([]models.TodoItem, len(inputs))
	for i, in := range inputs {
		items[i] = models.TodoItem{ID: in.ID, Text: in.Text, Completed: in.Completed}
	}
	return items
}

func todoItemsFromModels(items []models.TodoItem) []TodoItemInput {
	inputs := make([]TodoItemInput, len(items))
	for i, item := range items {
		inputs[i] = TodoItemInput{ID: item.ID, Text: item.Text, Completed: item.Completed}
	}
	return inputs
}

// normalizeTags trims tags and drops blanks and duplicates, keeping first-seen order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

func sameIDSet(a, b []uint64) bool {
	a, b = uniqueUint64(a), uniqueUint64(b)
	if len(a) != len(b) {
		return false
	}
	set := make(map[uint64]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}

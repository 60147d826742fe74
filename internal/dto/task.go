package dto

import (
	"time"

	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/services"
	"github.com/yukikurage/teamtask-api/internal/utils"
)

// TodoItemDTO represents a checklist item in API responses
type TodoItemDTO struct {
	ID          uint64     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

// AttachmentDTO represents an attachment in API responses
type AttachmentDTO struct {
	ID       uint64                `json:"id"`
	Name     string                `json:"name"`
	Type     models.AttachmentKind `json:"type"`
	URL      string                `json:"url"`
	FileSize *int64                `json:"fileSize,omitempty"`
	MimeType string                `json:"mimeType,omitempty"`
}

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        uint64         `json:"id"`
	User      UserSummaryDTO `json:"user"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                   uint64            `json:"id"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Priority             models.Priority   `json:"priority"`
	Status               models.TaskStatus `json:"status"`
	DueDate              time.Time         `json:"dueDate"`
	StartDate            time.Time         `json:"startDate"`
	AssignedTo           []UserSummaryDTO  `json:"assignedTo"`
	CreatedBy            UserSummaryDTO    `json:"createdBy"`
	TodoItems            []TodoItemDTO     `json:"todoItems"`
	Attachments          []AttachmentDTO   `json:"attachments"`
	CompletionPercentage int               `json:"completionPercentage"`
	Tags                 []string          `json:"tags"`
	EstimatedHours       *float64          `json:"estimatedHours"`
	ActualHours          *float64          `json:"actualHours"`
	Comments             []CommentDTO      `json:"comments"`
	Version              uint64            `json:"version"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// EmployeeStatsDTO is one row of the admin dashboard breakdown
type EmployeeStatsDTO struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar"`
	CompletionRate  int    `json:"completionRate"`
	TotalTasks      int64  `json:"totalTasks"`
	PendingTasks    int64  `json:"pendingTasks"`
	InProgressTasks int64  `json:"inProgressTasks"`
	CompletedTasks  int64  `json:"completedTasks"`
}

// TaskListResponse represents the role-scoped task listing
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Employees  []EmployeeStatsDTO       `json:"employees,omitempty"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// Conversion functions

// ToTaskDTO converts a Task model to TaskDTO. Relations that were not
// preloaded come out as empty lists.
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:                   task.ID,
		Title:                task.Title,
		Description:          task.Description,
		Priority:             task.Priority,
		Status:               task.Status,
		DueDate:              task.DueDate,
		StartDate:            task.StartDate,
		AssignedTo:           make([]UserSummaryDTO, 0, len(task.Assignments)),
		CreatedBy:            UserSummaryDTO{ID: task.CreatedByID},
		TodoItems:            make([]TodoItemDTO, len(task.TodoItems)),
		Attachments:          make([]AttachmentDTO, len(task.Attachments)),
		CompletionPercentage: task.CompletionPercentage,
		Tags:                 task.Tags,
		EstimatedHours:       task.EstimatedHours,
		ActualHours:          task.ActualHours,
		Comments:             make([]CommentDTO, len(task.Comments)),
		Version:              task.Version,
		CreatedAt:            task.CreatedAt,
		UpdatedAt:            task.UpdatedAt,
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}

	// Include creator if preloaded
	if task.CreatedBy.ID != 0 {
		dto.CreatedBy = ToUserSummaryDTO(task.CreatedBy)
	}

	for _, assignment := range task.Assignments {
		summary := UserSummaryDTO{ID: assignment.UserID}
		if assignment.User.ID != 0 {
			summary = ToUserSummaryDTO(assignment.User)
		}
		dto.AssignedTo = append(dto.AssignedTo, summary)
	}

	for i, item := range task.TodoItems {
		dto.TodoItems[i] = TodoItemDTO{
			ID:          item.ID,
			Text:        item.Text,
			Completed:   item.Completed,
			CompletedAt: item.CompletedAt,
		}
	}

	for i, a := range task.Attachments {
		dto.Attachments[i] = AttachmentDTO{
			ID:       a.ID,
			Name:     a.Name,
			Type:     a.Kind,
			URL:      a.URL,
			FileSize: a.FileSize,
			MimeType: a.MimeType,
		}
	}

	for i, comment := range task.Comments {
		user := UserSummaryDTO{ID: comment.UserID}
		if comment.User.ID != 0 {
			user = ToUserSummaryDTO(comment.User)
		}
		dto.Comments[i] = CommentDTO{
			ID:        comment.ID,
			User:      user,
			Text:      comment.Text,
			CreatedAt: comment.CreatedAt,
		}
	}

	return dto
}

// ToEmployeeStatsDTO converts a per-assignee breakdown row
func ToEmployeeStatsDTO(stats services.EmployeeStats) EmployeeStatsDTO {
	return EmployeeStatsDTO{
		ID:              stats.User.ID,
		Name:            stats.User.Name,
		Email:           stats.User.Email,
		Avatar:          stats.User.Avatar,
		CompletionRate:  stats.User.CompletionRate,
		TotalTasks:      stats.TotalTasks,
		PendingTasks:    stats.PendingTasks,
		InProgressTasks: stats.InProgressTasks,
		CompletedTasks:  stats.CompletedTasks,
	}
}

// ToTaskListResponse converts a task listing result
func ToTaskListResponse(result services.TaskListResult, params utils.PaginationParams, isAdmin bool) TaskListResponse {
	tasks := make([]TaskDTO, len(result.Tasks))
	for i, task := range result.Tasks {
		tasks[i] = ToTaskDTO(task)
	}

	response := TaskListResponse{
		Tasks: tasks,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: result.Total,
		},
	}

	if isAdmin {
		response.Employees = make([]EmployeeStatsDTO, len(result.Employees))
		for i, stats := range result.Employees {
			response.Employees[i] = ToEmployeeStatsDTO(stats)
		}
	}

	return response
}

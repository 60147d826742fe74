package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamtask-api/internal/dto"
	apierrors "github.com/yukikurage/teamtask-api/internal/errors"
	"github.com/yukikurage/teamtask-api/internal/middleware"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/services"
	"github.com/yukikurage/teamtask-api/internal/utils"
)

// TaskHandler serves the task endpoints
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

type todoItemRequest struct {
	ID        uint64 `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type attachmentRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Value    string `json:"value"`
	URL      string `json:"url"`
	FileSize *int64 `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

type createTaskRequest struct {
	Title          string              `json:"title" binding:"required"`
	Description    string              `json:"description"`
	Priority       string              `json:"priority"`
	DueDate        string              `json:"dueDate"`
	StartDate      string              `json:"startDate"`
	AssignedTo     []uint64            `json:"assignedTo"`
	TodoItems      []todoItemRequest   `json:"todoItems"`
	Attachments    []attachmentRequest `json:"attachments"`
	Tags           []string            `json:"tags"`
	EstimatedHours *float64            `json:"estimatedHours"`
	ActualHours    *float64            `json:"actualHours"`
}

type updateTaskRequest struct {
	Title          *string              `json:"title"`
	Description    *string              `json:"description"`
	Priority       *string              `json:"priority"`
	Status         *string              `json:"status"`
	DueDate        *string              `json:"dueDate"`
	StartDate      *string              `json:"startDate"`
	AssignedTo     *[]uint64            `json:"assignedTo"`
	TodoItems      *[]todoItemRequest   `json:"todoItems"`
	Attachments    *[]attachmentRequest `json:"attachments"`
	Tags           *[]string            `json:"tags"`
	EstimatedHours *float64             `json:"estimatedHours"`
	ActualHours    *float64             `json:"actualHours"`
	Version        *uint64              `json:"version"`
}

type userIDsRequest struct {
	UserIDs []uint64 `json:"userIds" binding:"required"`
}

// ListTasks returns the tasks visible to the current user. Admins also get a
// per-employee status breakdown.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	input := services.ListTasksInput{
		SortByDueDate: c.Query("sort") == "dueDate",
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.TaskStatus(statusStr)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status filter")
			return
		}
		input.Status = &status
	}

	params := utils.GetPaginationParams(c)
	input.Offset = params.Offset
	input.Limit = params.Limit

	result, err := h.taskService.ListTasks(caller, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(*result, params, caller.IsAdmin()))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	caller, taskID, ok := callerAndTask(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(caller, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       models.Priority(req.Priority),
		AssignedTo:     req.AssignedTo,
		TodoItems:      toTodoItemInputs(req.TodoItems),
		Attachments:    toAttachmentInputs(req.Attachments),
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	}

	var err error
	if input.DueDate, err = parseOptionalDate(req.DueDate); err != nil {
		apierrors.BadRequest(c, "Invalid dueDate")
		return
	}
	if input.StartDate, err = parseOptionalDate(req.StartDate); err != nil {
		apierrors.BadRequest(c, "Invalid startDate")
		return
	}

	task, err := h.taskService.CreateTask(caller, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update; only fields present in the body change
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	caller, taskID, ok := callerAndTask(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		AssignedTo:     req.AssignedTo,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Version:        req.Version,
	}
	if req.Priority != nil {
		priority := models.Priority(*req.Priority)
		input.Priority = &priority
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.TodoItems != nil {
		items := toTodoItemInputs(*req.TodoItems)
		input.TodoItems = &items
	}
	if req.Attachments != nil {
		attachments := toAttachmentInputs(*req.Attachments)
		input.Attachments = &attachments
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			apierrors.BadRequest(c, "Invalid dueDate")
			return
		}
		input.DueDate = &dueDate
	}
	if req.StartDate != nil {
		startDate, err := parseDate(*req.StartDate)
		if err != nil {
			apierrors.BadRequest(c, "Invalid startDate")
			return
		}
		input.StartDate = &startDate
	}

	task, err := h.taskService.UpdateTask(caller, taskID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	caller, taskID, ok := callerAndTask(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(caller, taskID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// ToggleTodoItem flips the completion flag of one checklist item
func (h *TaskHandler) ToggleTodoItem(c *gin.Context) {
	caller, taskID, ok := callerAndTask(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid checklist index")
		return
	}

	task, err := h.taskService.ToggleTodoItem(caller, taskID, index)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AssignTask assigns users to a task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	caller, taskID, ok := callerAndTask(c)
	if !ok {
		return
	}

	var req userIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AssignUsers(caller, taskID, req.UserIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UnassignTask removes user assignments from a task
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	caller, taskID, ok := callerAndTask(c)
	if !ok {
		return
	}

	var req userIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UnassignUsers(caller, taskID, req.UserIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AddComment posts a comment on a task
func (h *TaskHandler) AddComment(c *gin.Context) {
	caller, taskID, ok := callerAndTask(c)
	if !ok {
		return
	}

	type CommentRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AddComment(caller, taskID, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GenerateTasks generates task drafts from text using AI
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.taskService.GenerateTasks(c.Request.Context(), caller, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": drafts,
	})
}

// callerAndTask reads the caller and the :id parameter, responding on failure.
func callerAndTask(c *gin.Context) (services.Caller, uint64, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return services.Caller{}, 0, false
	}

	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return services.Caller{}, 0, false
	}

	return caller, taskID, true
}

func toTodoItemInputs(items []todoItemRequest) []services.TodoItemInput {
	inputs := make([]services.TodoItemInput, len(items))
	for i, item := range items {
		inputs[i] = services.TodoItemInput{
			ID:        item.ID,
			Text:      item.Text,
			Completed: item.Completed,
		}
	}
	return inputs
}

func toAttachmentInputs(attachments []attachmentRequest) []services.AttachmentInput {
	inputs := make([]services.AttachmentInput, len(attachments))
	for i, a := range attachments {
		inputs[i] = services.AttachmentInput{
			Name:     a.Name,
			Type:     models.AttachmentKind(a.Type),
			Value:    a.Value,
			URL:      a.URL,
			FileSize: a.FileSize,
			MimeType: a.MimeType,
		}
	}
	return inputs
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}

func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/teamtask-api/internal/constants"
	"github.com/yukikurage/teamtask-api/internal/dto"
	"github.com/yukikurage/teamtask-api/internal/middleware"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/repository"
	"github.com/yukikurage/teamtask-api/internal/services"
	"github.com/yukikurage/teamtask-api/internal/testutil"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	taskService *services.TaskService
	handler     *TaskHandler
	admin       *models.User
	employee    *models.User
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = testutil.NewTestDB(suite.T())
	taskRepo := repository.NewTaskRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	aggregator := services.NewCompletionRateAggregator(taskRepo, userRepo)

	// Create handler (without AI service for tests)
	suite.taskService = services.NewTaskService(taskRepo, userRepo, aggregator, nil)
	suite.handler = NewTaskHandler(suite.taskService)

	suite.admin = suite.createTestUser("admin@example.com", models.RoleAdmin)
	suite.employee = suite.createTestUser("emp@example.com", models.RoleEmployee)
}

// Helper function to create test data
func (suite *TaskHandlerTestSuite) createTestUser(email string, role models.Role) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		Name:         email,
		Role:         role,
		Avatar:       constants.DefaultAvatarURL,
		IsActive:     true,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *TaskHandlerTestSuite) createTestTask(title string, items ...services.TodoItemInput) *models.Task {
	dueDate := time.Now().Add(48 * time.Hour)
	task, err := suite.taskService.CreateTask(services.Caller{UserID: suite.admin.ID, Role: models.RoleAdmin}, services.CreateTaskInput{
		Title:      title,
		DueDate:    &dueDate,
		AssignedTo: []uint64{suite.employee.ID},
		TodoItems:  items,
	})
	suite.Require().NoError(err)
	return task
}

// router mirrors the production task routes, with the session replaced by a
// fixed identity.
func (suite *TaskHandlerTestSuite) router(user *models.User) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyRole, user.Role)
		c.Next()
	})

	tasks := r.Group("/api/tasks")
	tasks.GET("", suite.handler.ListTasks)
	tasks.POST("", middleware.RequireRole(models.RoleAdmin), suite.handler.CreateTask)
	tasks.POST("/generate", middleware.RequireRole(models.RoleAdmin), suite.handler.GenerateTasks)

	task := tasks.Group("/:id", middleware.RequireTaskID())
	task.GET("", suite.handler.GetTask)
	task.PATCH("", suite.handler.UpdateTask)
	task.DELETE("", suite.handler.DeleteTask)
	task.POST("/todos/:index/toggle", suite.handler.ToggleTodoItem)
	task.POST("/assign", suite.handler.AssignTask)
	task.POST("/comments", suite.handler.AddComment)
	return r
}

func (suite *TaskHandlerTestSuite) do(user *models.User, method, url string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		req = httptest.NewRequest(method, url, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	w := httptest.NewRecorder()
	suite.router(user).ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) decodeTask(w *httptest.ResponseRecorder) dto.TaskDTO {
	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// TestListTasks_Unauthorized tests listing without authentication
func (suite *TaskHandlerTestSuite) TestListTasks_Unauthorized() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks", nil)

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestListTasks_Admin tests the admin listing with employee breakdown
func (suite *TaskHandlerTestSuite) TestListTasks_Admin() {
	suite.createTestTask("Test Task", services.TodoItemInput{Text: "a", Completed: true})
	suite.createTestTask("Second Task")

	w := suite.do(suite.admin, "GET", "/api/tasks?page=1&limit=1", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response.Tasks, 1)
	assert.Equal(suite.T(), int64(2), response.Pagination.Total)
	assert.Equal(suite.T(), 1, response.Pagination.Limit)
	suite.Require().Len(response.Employees, 1)
	assert.Equal(suite.T(), int64(1), response.Employees[0].CompletedTasks)
	assert.Equal(suite.T(), 50, response.Employees[0].CompletionRate)
}

// TestListTasks_EmployeeHasNoBreakdown tests the employee listing shape
func (suite *TaskHandlerTestSuite) TestListTasks_EmployeeHasNoBreakdown() {
	suite.createTestTask("Test Task")

	w := suite.do(suite.employee, "GET", "/api/tasks", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotContains(suite.T(), response, "employees")
	assert.Len(suite.T(), response["tasks"], 1)
}

// TestListTasks_InvalidStatus tests the status filter validation
func (suite *TaskHandlerTestSuite) TestListTasks_InvalidStatus() {
	w := suite.do(suite.admin, "GET", "/api/tasks?status=Blocked", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCreateTask_Success tests successful task creation
func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	requestBody := map[string]interface{}{
		"title":       "New Task",
		"description": "Task Description",
		"priority":    "High",
		"dueDate":     "2030-01-15",
		"assignedTo":  []uint64{suite.employee.ID},
		"todoItems": []map[string]interface{}{
			{"text": "one", "completed": true},
			{"text": "two"},
			{"text": "three"},
		},
		"attachments": []map[string]interface{}{
			{"type": "link", "value": "example.com"},
		},
	}

	w := suite.do(suite.admin, "POST", "/api/tasks", requestBody)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	response := suite.decodeTask(w)
	assert.Equal(suite.T(), "New Task", response.Title)
	assert.Equal(suite.T(), models.PriorityHigh, response.Priority)
	assert.Equal(suite.T(), 33, response.CompletionPercentage)
	assert.Equal(suite.T(), models.TaskStatusInProgress, response.Status)
	assert.Equal(suite.T(), suite.admin.ID, response.CreatedBy.ID)
	suite.Require().Len(response.AssignedTo, 1)
	assert.Equal(suite.T(), suite.employee.Email, response.AssignedTo[0].Email)
	assert.Equal(suite.T(), "http://example.com", response.Attachments[0].URL)

	var raw map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"dueDate", "assignedTo", "todoItems", "completionPercentage"} {
		assert.Contains(suite.T(), raw, key)
	}
}

// TestCreateTask_InvalidRequest tests task creation with invalid request
func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidRequest() {
	// Missing required field: title
	w := suite.do(suite.admin, "POST", "/api/tasks", map[string]interface{}{"dueDate": "2030-01-15"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(suite.admin, "POST", "/api/tasks", map[string]interface{}{"title": "x"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(suite.admin, "POST", "/api/tasks", map[string]interface{}{"title": "x", "dueDate": "next week"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCreateTask_EmployeeForbidden tests that employees cannot create tasks
func (suite *TaskHandlerTestSuite) TestCreateTask_EmployeeForbidden() {
	w := suite.do(suite.employee, "POST", "/api/tasks", map[string]interface{}{"title": "x", "dueDate": "2030-01-15"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestGetTask_Success tests successful task retrieval
func (suite *TaskHandlerTestSuite) TestGetTask_Success() {
	task := suite.createTestTask("Test Task")

	w := suite.do(suite.employee, "GET", fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	response := suite.decodeTask(w)
	assert.Equal(suite.T(), task.ID, response.ID)
	assert.Equal(suite.T(), task.Title, response.Title)
}

// TestGetTask_NotVisible tests that unrelated users get a 404
func (suite *TaskHandlerTestSuite) TestGetTask_NotVisible() {
	task := suite.createTestTask("Test Task")
	outsider := suite.createTestUser("outsider@example.com", models.RoleEmployee)

	w := suite.do(outsider, "GET", fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do(suite.admin, "GET", "/api/tasks/abc", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestToggleTodoItem tests completing the last checklist item
func (suite *TaskHandlerTestSuite) TestToggleTodoItem() {
	task := suite.createTestTask("Toggle", services.TodoItemInput{Text: "only"})

	w := suite.do(suite.employee, "POST", fmt.Sprintf("/api/tasks/%d/todos/0/toggle", task.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	response := suite.decodeTask(w)
	assert.Equal(suite.T(), 100, response.CompletionPercentage)
	assert.Equal(suite.T(), models.TaskStatusCompleted, response.Status)

	var employee models.User
	suite.Require().NoError(suite.db.First(&employee, suite.employee.ID).Error)
	assert.Equal(suite.T(), 100, employee.CompletionRate)
}

// TestUpdateTask_Success tests a partial admin update
func (suite *TaskHandlerTestSuite) TestUpdateTask_Success() {
	task := suite.createTestTask("Before")

	w := suite.do(suite.admin, "PATCH", fmt.Sprintf("/api/tasks/%d", task.ID), map[string]interface{}{
		"title":   "After",
		"dueDate": "2031-06-01T09:00:00Z",
		"tags":    []string{"ops"},
		"version": task.Version,
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	response := suite.decodeTask(w)
	assert.Equal(suite.T(), "After", response.Title)
	assert.Equal(suite.T(), []string{"ops"}, response.Tags)
	assert.Equal(suite.T(), task.Version+1, response.Version)
	assert.Equal(suite.T(), 2031, response.DueDate.Year())
}

// TestUpdateTask_VersionConflict tests stale writes
func (suite *TaskHandlerTestSuite) TestUpdateTask_VersionConflict() {
	task := suite.createTestTask("Versioned")

	w := suite.do(suite.admin, "PATCH", fmt.Sprintf("/api/tasks/%d", task.ID), map[string]interface{}{
		"title":   "Stale",
		"version": task.Version + 5,
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestUpdateTask_EmployeeRestricted tests that employees cannot edit task details
func (suite *TaskHandlerTestSuite) TestUpdateTask_EmployeeRestricted() {
	task := suite.createTestTask("Locked")

	w := suite.do(suite.employee, "PATCH", fmt.Sprintf("/api/tasks/%d", task.ID), map[string]interface{}{
		"title": "Mine now",
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestDeleteTask tests delete permissions and removal
func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	task := suite.createTestTask("Delete me")
	url := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := suite.do(suite.employee, "DELETE", url, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(suite.admin, "DELETE", url, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(suite.admin, "GET", url, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestAssignTask tests adding an assignee
func (suite *TaskHandlerTestSuite) TestAssignTask() {
	task := suite.createTestTask("Assign")
	other := suite.createTestUser("other@example.com", models.RoleEmployee)

	w := suite.do(suite.admin, "POST", fmt.Sprintf("/api/tasks/%d/assign", task.ID), map[string]interface{}{
		"userIds": []uint64{other.ID},
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.decodeTask(w).AssignedTo, 2)

	w = suite.do(suite.admin, "POST", fmt.Sprintf("/api/tasks/%d/assign", task.ID), map[string]interface{}{
		"userIds": []uint64{9999},
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestAddComment tests posting a comment
func (suite *TaskHandlerTestSuite) TestAddComment() {
	task := suite.createTestTask("Discuss")

	w := suite.do(suite.employee, "POST", fmt.Sprintf("/api/tasks/%d/comments", task.ID), map[string]interface{}{
		"text": "Started on this",
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	response := suite.decodeTask(w)
	suite.Require().Len(response.Comments, 1)
	assert.Equal(suite.T(), suite.employee.ID, response.Comments[0].User.ID)
}

// TestGenerateTasks_NotConfigured tests the AI endpoint without an API key
func (suite *TaskHandlerTestSuite) TestGenerateTasks_NotConfigured() {
	w := suite.do(suite.admin, "POST", "/api/tasks/generate", map[string]interface{}{"text": "plan the launch"})
	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}

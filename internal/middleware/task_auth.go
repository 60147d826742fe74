package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamtask-api/internal/constants"
	apierrors "github.com/yukikurage/teamtask-api/internal/errors"
)

// RequireTaskID parses the :id path parameter. Visibility of the task itself is
// decided by the task service, which answers "not found" for tasks the caller
// may not see.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || taskID == 0 {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		c.Set(constants.ContextKeyTaskID, taskID)
		c.Next()
	}
}

// GetTaskID returns the task id stored by RequireTaskID.
func GetTaskID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(constants.ContextKeyTaskID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamtask-api/internal/constants"
	apierrors "github.com/yukikurage/teamtask-api/internal/errors"
	"github.com/yukikurage/teamtask-api/internal/services"
)

// respondServiceError translates a service error kind into the API envelope.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		if errors.Is(err, services.ErrInvalidCredentials) {
			apierrors.Unauthorized(c, err.Error())
			return
		}
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrDependency):
		log.Printf("request %s: %v", c.GetString(constants.ContextKeyRequestID), err)
		apierrors.ServiceUnavailable(c, "")
	default:
		log.Printf("request %s: unexpected error: %v", c.GetString(constants.ContextKeyRequestID), err)
		apierrors.InternalError(c, "")
	}
}

package handler

import (
	"errors"
	"net/http"

	"retail-backend/internal/service"
	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors onto the HTTP status contract:
// not found 404, forbidden 403, validation 400, state and stock
// conflicts 409, everything else 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case service.IsInsufficientStock(err), service.IsStateTransition(err):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// currentActor reads the identity the auth middleware stored on the context.
func currentActor(c *gin.Context) (service.Actor, bool) {
	userID, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: c.GetString("userRole")}, true
}

package handler

import (
	"net/http"

	"buildledger/internal/apperror"
	"buildledger/internal/logger"
	"buildledger/internal/middleware"
	"buildledger/internal/model"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes err with the status of its kind. Untyped failures are
// logged and reported without detail.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	c.JSON(status, response.Error(status, apperror.Message(err)))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// actingUser returns the verified user or answers 401 when the route was
// mounted without authentication.
func actingUser(c *gin.Context) (model.ActingUser, bool) {
	user, ok := middleware.ActingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
	}
	return user, ok
}

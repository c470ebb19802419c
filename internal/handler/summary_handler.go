package handler

import (
	"net/http"

	"buildledger/internal/middleware"
	"buildledger/internal/model"
	"buildledger/internal/service"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type SummaryHandler struct {
	summaryService service.SummaryService
}

func NewSummaryHandler(summaryService service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

func (h *SummaryHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	router.GET("/api/summary", auth.RequireRole(model.RoleOwner), h.GetSummary)
}

// GetSummary returns totals, cash position and loan exposure
// @Summary      Financial summary
// @Description  Aggregates one project, or all projects when project_id is omitted
// @Tags         summary
// @Security     BearerAuth
// @Produce      json
// @Param        project_id  query     string  false  "Project ID"
// @Success      200         {object}  response.Response{data=service.SummaryResponse}
// @Router       /api/summary [get]
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}

	summary, err := h.summaryService.GetSummary(c.Request.Context(), actor, c.Query("project_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

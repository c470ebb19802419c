package handler

import (
	"net/http"

	"buildledger/internal/middleware"
	"buildledger/internal/model"
	"buildledger/internal/service"
	"buildledger/pkg/pagination"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type IncomeHandler struct {
	incomeService service.IncomeService
}

func NewIncomeHandler(incomeService service.IncomeService) *IncomeHandler {
	return &IncomeHandler{incomeService: incomeService}
}

func (h *IncomeHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	income := router.Group("/api/income")
	income.Use(auth.RequireRole())
	{
		income.GET("", h.ListIncome)
		income.GET("/:id", h.GetIncome)
		income.POST("", h.CreateIncome)
		income.PUT("/:id", auth.RequireRole(model.RoleOwner), h.UpdateIncome)
	}
}

// ListIncome returns income entries, newest first
// @Summary      List income
// @Tags         income
// @Security     BearerAuth
// @Produce      json
// @Param        project_id  query     string  false  "Project ID"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.PagedData{items=[]model.Income}}
// @Router       /api/income [get]
func (h *IncomeHandler) ListIncome(c *gin.Context) {
	p := pagination.Parse(c)

	entries, total, err := h.incomeService.ListIncome(c.Request.Context(), c.Query("project_id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, entries, p.Page, p.Limit, total))
}

// GetIncome returns one income entry
// @Summary      Get income
// @Tags         income
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Income ID"
// @Success      200  {object}  response.Response{data=model.Income}
// @Router       /api/income/{id} [get]
func (h *IncomeHandler) GetIncome(c *gin.Context) {
	income, err := h.incomeService.GetIncome(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, income))
}

// CreateIncome records money received by a project
// @Summary      Create income
// @Tags         income
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateIncomeRequest  true  "Income"
// @Success      201      {object}  response.Response{data=model.Income}
// @Router       /api/income [post]
func (h *IncomeHandler) CreateIncome(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.CreateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	income, err := h.incomeService.CreateIncome(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, income))
}

// UpdateIncome edits an income entry directly
// @Summary      Update income
// @Tags         income
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Income ID"
// @Param        request  body      service.UpdateIncomeRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Income}
// @Router       /api/income/{id} [put]
func (h *IncomeHandler) UpdateIncome(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.UpdateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	income, err := h.incomeService.UpdateIncome(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, income))
}

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

type LoanHandler struct {
	loanService service.LoanService
}

func NewLoanHandler(loanService service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

func (h *LoanHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	loans := router.Group("/api/loans")
	loans.Use(auth.RequireRole())
	{
		loans.GET("", h.ListLoans)
		loans.GET("/:id", h.GetLoan)
		loans.POST("", h.CreateLoan)
		loans.PATCH("/:id/return", h.RecordReturn)
		loans.PUT("/:id", auth.RequireRole(model.RoleOwner), h.UpdateLoan)
	}
}

// ListLoans returns loans, newest first
// @Summary      List loans
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        project_id  query     string  false  "Project ID"
// @Param        loan_type   query     string  false  "external or inter_project"
// @Param        direction   query     string  false  "receivable or payable"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.PagedData{items=[]model.Loan}}
// @Router       /api/loans [get]
func (h *LoanHandler) ListLoans(c *gin.Context) {
	p := pagination.Parse(c)

	loans, total, err := h.loanService.ListLoans(c.Request.Context(), service.LoanFilter{
		ProjectID: c.Query("project_id"),
		LoanType:  c.Query("loan_type"),
		Direction: c.Query("direction"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, loans, p.Page, p.Limit, total))
}

// GetLoan returns one loan row
// @Summary      Get loan
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Loan ID"
// @Success      200  {object}  response.Response{data=model.Loan}
// @Router       /api/loans/{id} [get]
func (h *LoanHandler) GetLoan(c *gin.Context) {
	loan, err := h.loanService.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// CreateLoan records an external loan or both sides of an inter-project loan
// @Summary      Create loan
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateLoanRequest  true  "Loan"
// @Success      201      {object}  response.Response{data=[]model.Loan}
// @Failure      400      {object}  response.Response
// @Router       /api/loans [post]
func (h *LoanHandler) CreateLoan(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	loans, err := h.loanService.CreateLoan(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, loans))
}

// RecordReturn sets the total amount returned on a loan and its linked row
// @Summary      Record loan return
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Loan ID"
// @Param        request  body      service.ReturnLoanRequest  true  "Total returned"
// @Success      200      {object}  response.Response{data=model.Loan}
// @Failure      400      {object}  response.Response
// @Router       /api/loans/{id}/return [patch]
func (h *LoanHandler) RecordReturn(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.ReturnLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	loan, err := h.loanService.RecordReturn(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// UpdateLoan edits a loan and mirrors the change to its linked row
// @Summary      Update loan
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Loan ID"
// @Param        request  body      service.UpdateLoanRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Loan}
// @Router       /api/loans/{id} [put]
func (h *LoanHandler) UpdateLoan(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.UpdateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	loan, err := h.loanService.UpdateLoan(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"buildledger/internal/middleware"
	"buildledger/internal/model"
	"buildledger/internal/service"
	"buildledger/pkg/pagination"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type EditRequestHandler struct {
	requestService service.EditRequestService
}

func NewEditRequestHandler(requestService service.EditRequestService) *EditRequestHandler {
	return &EditRequestHandler{requestService: requestService}
}

func (h *EditRequestHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	requests := router.Group("/api/requests")
	{
		requests.POST("", auth.RequireRole(), h.CreateRequest)
		requests.GET("", auth.RequireRole(model.RoleOwner), h.ListRequests)
		requests.PUT("/:id/approve", auth.RequireRole(model.RoleOwner), h.ApproveRequest)
		requests.PUT("/:id/reject", auth.RequireRole(model.RoleOwner), h.RejectRequest)
	}
}

// CreateRequest submits a proposed change to an income, expense or loan
// @Summary      Submit edit request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateEditRequestDTO  true  "Proposed change"
// @Success      201      {object}  response.Response{data=model.EditRequest}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *EditRequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.CreateEditRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.requestService.CreateRequest(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, request))
}

// ListRequests returns edit requests, pending by default
// @Summary      List edit requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "pending, approved, rejected or all"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.PagedData{items=[]model.EditRequest}}
// @Router       /api/requests [get]
func (h *EditRequestHandler) ListRequests(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), actor, c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, requests, p.Page, p.Limit, total))
}

// ApproveRequest applies a pending edit request
// @Summary      Approve edit request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.EditRequest}
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *EditRequestHandler) ApproveRequest(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}

	request, err := h.requestService.ApproveRequest(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// RejectRequest closes a pending edit request without applying it
// @Summary      Reject edit request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true   "Request ID"
// @Param        request  body      service.RejectEditRequestDTO  false  "Reason"
// @Success      200      {object}  response.Response{data=model.EditRequest}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *EditRequestHandler) RejectRequest(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.RejectEditRequestDTO
	// The body is optional.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	request, err := h.requestService.RejectRequest(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

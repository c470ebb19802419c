package handler

import (
	"net/http"

	"buildledger/internal/middleware"
	"buildledger/internal/model"
	"buildledger/internal/service"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type ContractorHandler struct {
	contractorService service.ContractorService
}

func NewContractorHandler(contractorService service.ContractorService) *ContractorHandler {
	return &ContractorHandler{contractorService: contractorService}
}

func (h *ContractorHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	contractors := router.Group("/api/contractors")
	contractors.Use(auth.RequireRole())
	{
		contractors.GET("", h.ListContractors)
		contractors.GET("/:id", h.GetContractor)
		contractors.POST("", h.CreateContractor)
		contractors.PUT("/:id", h.UpdateContractor)
		contractors.DELETE("/:id", auth.RequireRole(model.RoleOwner), h.DeleteContractor)
	}
}

// ListContractors returns contractors with their agreed and paid totals
// @Summary      List contractors
// @Tags         contractors
// @Security     BearerAuth
// @Produce      json
// @Param        project_id       query     string  false  "Project scope"
// @Param        include_general  query     bool    false  "Include contractors without a project"
// @Success      200              {object}  response.Response{data=[]service.ContractorResponse}
// @Router       /api/contractors [get]
func (h *ContractorHandler) ListContractors(c *gin.Context) {
	contractors, err := h.contractorService.ListContractors(c.Request.Context(), partyFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contractors))
}

// GetContractor returns a contractor with its expenses and balance
// @Summary      Get contractor
// @Tags         contractors
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contractor ID"
// @Success      200  {object}  response.Response{data=service.ContractorDetailResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/contractors/{id} [get]
func (h *ContractorHandler) GetContractor(c *gin.Context) {
	contractor, err := h.contractorService.GetContractor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contractor))
}

// CreateContractor registers a contractor
// @Summary      Create contractor
// @Tags         contractors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateContractorRequest  true  "Contractor"
// @Success      201      {object}  response.Response{data=service.ContractorResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/contractors [post]
func (h *ContractorHandler) CreateContractor(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.CreateContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contractor, err := h.contractorService.CreateContractor(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, contractor))
}

// UpdateContractor edits contractor details
// @Summary      Update contractor
// @Tags         contractors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Contractor ID"
// @Param        request  body      service.UpdateContractorRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.ContractorResponse}
// @Router       /api/contractors/{id} [put]
func (h *ContractorHandler) UpdateContractor(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.UpdateContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contractor, err := h.contractorService.UpdateContractor(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contractor))
}

// DeleteContractor removes a contractor with no expenses
// @Summary      Delete contractor
// @Tags         contractors
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contractor ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/contractors/{id} [delete]
func (h *ContractorHandler) DeleteContractor(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}

	if err := h.contractorService.DeleteContractor(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "contractor deleted"}))
}

package handler

import (
	"net/http"
	"strconv"

	"buildledger/internal/middleware"
	"buildledger/internal/model"
	"buildledger/internal/service"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type VendorHandler struct {
	vendorService service.VendorService
}

func NewVendorHandler(vendorService service.VendorService) *VendorHandler {
	return &VendorHandler{vendorService: vendorService}
}

func (h *VendorHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	vendors := router.Group("/api/vendors")
	vendors.Use(auth.RequireRole())
	{
		vendors.GET("", h.ListVendors)
		vendors.GET("/:id", h.GetVendor)
		vendors.POST("", h.CreateVendor)
		vendors.PUT("/:id", h.UpdateVendor)
		vendors.DELETE("/:id", auth.RequireRole(model.RoleOwner), h.DeleteVendor)
	}
}

// partyFilter reads the project scope shared by the vendor and contractor lists.
func partyFilter(c *gin.Context) service.PartyListFilter {
	includeGeneral, _ := strconv.ParseBool(c.Query("include_general"))
	return service.PartyListFilter{
		ProjectID:      c.Query("project_id"),
		IncludeGeneral: includeGeneral,
	}
}

// ListVendors returns vendors with their running balances
// @Summary      List vendors
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        project_id       query     string  false  "Project scope"
// @Param        include_general  query     bool    false  "Include vendors without a project"
// @Success      200              {object}  response.Response{data=[]service.VendorResponse}
// @Router       /api/vendors [get]
func (h *VendorHandler) ListVendors(c *gin.Context) {
	vendors, err := h.vendorService.ListVendors(c.Request.Context(), partyFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendors))
}

// GetVendor returns a vendor with its expenses, payments and balance
// @Summary      Get vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Vendor ID"
// @Success      200  {object}  response.Response{data=service.VendorDetailResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/vendors/{id} [get]
func (h *VendorHandler) GetVendor(c *gin.Context) {
	vendor, err := h.vendorService.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// CreateVendor registers a vendor
// @Summary      Create vendor
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateVendorRequest  true  "Vendor"
// @Success      201      {object}  response.Response{data=service.VendorResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/vendors [post]
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	vendor, err := h.vendorService.CreateVendor(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vendor))
}

// UpdateVendor edits vendor contact details
// @Summary      Update vendor
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Vendor ID"
// @Param        request  body      service.UpdateVendorRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.VendorResponse}
// @Router       /api/vendors/{id} [put]
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	vendor, err := h.vendorService.UpdateVendor(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// DeleteVendor removes a vendor with no expenses or payments
// @Summary      Delete vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Vendor ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/vendors/{id} [delete]
func (h *VendorHandler) DeleteVendor(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}

	if err := h.vendorService.DeleteVendor(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "vendor deleted"}))
}

package handler

import (
	"net/http"

	"buildledger/internal/middleware"
	"buildledger/internal/service"
	"buildledger/pkg/pagination"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type VendorPaymentHandler struct {
	paymentService service.VendorPaymentService
}

func NewVendorPaymentHandler(paymentService service.VendorPaymentService) *VendorPaymentHandler {
	return &VendorPaymentHandler{paymentService: paymentService}
}

func (h *VendorPaymentHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	payments := router.Group("/api/vendor-payments")
	payments.Use(auth.RequireRole())
	{
		payments.GET("", h.ListPayments)
		payments.POST("", h.RecordPayment)
	}
}

// ListPayments returns recorded vendor payments, newest first
// @Summary      List vendor payments
// @Tags         vendor-payments
// @Security     BearerAuth
// @Produce      json
// @Param        vendor_id   query     string  false  "Vendor ID"
// @Param        project_id  query     string  false  "Project ID"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.PagedData{items=[]model.VendorPayment}}
// @Router       /api/vendor-payments [get]
func (h *VendorPaymentHandler) ListPayments(c *gin.Context) {
	p := pagination.Parse(c)

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), service.VendorPaymentFilter{
		VendorID:  c.Query("vendor_id"),
		ProjectID: c.Query("project_id"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, payments, p.Page, p.Limit, total))
}

// RecordPayment pays a vendor and allocates the amount over outstanding
// material expenses, oldest first
// @Summary      Record vendor payment
// @Description  Any amount left after every outstanding expense is covered stays as vendor credit
// @Tags         vendor-payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.RecordVendorPaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=service.VendorPaymentResult}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/vendor-payments [post]
func (h *VendorPaymentHandler) RecordPayment(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var req service.RecordVendorPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

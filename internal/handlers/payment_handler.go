package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/models"
	"rental-service/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	payments := router.Group("/payments", auth)
	payments.POST("/make-payment", h.MakePayment)
	payments.PATCH("/reconcile/:billingId", h.Reconcile)
	payments.POST("/apply-credit/:billingId", h.ApplyCredit)
	payments.GET("/me", h.ListMine)
	payments.GET("/billing/:billingId", h.ListByBilling)
	payments.GET("/:id", h.Get)
}

func (h *PaymentHandler) MakePayment(c *gin.Context) {
	var req models.MakePaymentRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.paymentService.MakePayment(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

// Reconcile records a payment the owner received outside the platform.
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	var req models.ReconcileRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.paymentService.ReconcileFor(c.Request.Context(), actorFrom(c), c.Param("billingId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h *PaymentHandler) ApplyCredit(c *gin.Context) {
	res, err := h.paymentService.ApplyCredit(c.Request.Context(), actorFrom(c), c.Param("billingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h *PaymentHandler) ListMine(c *gin.Context) {
	payments, err := h.paymentService.ListMine(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, payments)
}

func (h *PaymentHandler) ListByBilling(c *gin.Context) {
	payments, err := h.paymentService.ListByBilling(c.Request.Context(), actorFrom(c), c.Param("billingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, payments)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.paymentService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

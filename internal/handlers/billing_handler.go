package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/services"
)

type BillingHandler struct {
	billingService *services.BillingService
	sweepService   *services.SweepService
}

func NewBillingHandler(billingService *services.BillingService, sweepService *services.SweepService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		sweepService:   sweepService,
	}
}

func (h *BillingHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	billings := router.Group("/billings", auth)
	billings.GET("/me", h.ListMine)
	billings.GET("/apartment/:apartmentId", h.ListForApartment)
	billings.POST("/sweep", h.Sweep)
	billings.GET("/:id", h.Get)
}

func (h *BillingHandler) ListMine(c *gin.Context) {
	bills, err := h.billingService.ListMine(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, bills)
}

func (h *BillingHandler) ListForApartment(c *gin.Context) {
	bills, err := h.billingService.ListForApartment(c.Request.Context(), actorFrom(c), c.Param("apartmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, bills)
}

func (h *BillingHandler) Get(c *gin.Context) {
	bill, err := h.billingService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, bill)
}

// Sweep runs the overdue sweep now instead of waiting for the scheduler.
func (h *BillingHandler) Sweep(c *gin.Context) {
	res, err := h.sweepService.Trigger(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

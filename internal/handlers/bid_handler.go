package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/models"
	"rental-service/internal/services"
)

type BidHandler struct {
	bidService *services.BidService
}

func NewBidHandler(bidService *services.BidService) *BidHandler {
	return &BidHandler{bidService: bidService}
}

func (h *BidHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	bids := router.Group("/bids", auth)
	bids.POST("", h.Create)
	bids.GET("/me", h.ListMine)
	bids.GET("/apartment/:apartmentId", h.ListByApartment)
	bids.PATCH("/:id/accept", h.decide(h.bidService.Accept))
	bids.PATCH("/:id/reject", h.decide(h.bidService.Reject))
	bids.PATCH("/:id/withdraw", h.decide(h.bidService.Withdraw))
}

func (h *BidHandler) Create(c *gin.Context) {
	var req models.CreateBidRequest
	if !bind(c, &req) {
		return
	}
	bid, err := h.bidService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, bid)
}

func (h *BidHandler) ListMine(c *gin.Context) {
	bids, err := h.bidService.ListMine(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, bids)
}

func (h *BidHandler) ListByApartment(c *gin.Context) {
	bids, err := h.bidService.ListByApartment(c.Request.Context(), actorFrom(c), c.Param("apartmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, bids)
}

type bidDecision func(ctx context.Context, actor models.Actor, id string) (*models.Bid, error)

func (h *BidHandler) decide(fn bidDecision) gin.HandlerFunc {
	return func(c *gin.Context) {
		bid, err := fn(c.Request.Context(), actorFrom(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, bid)
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/models"
	"rental-service/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	notifications := router.Group("/notifications", auth)
	notifications.POST("", h.Send)
	notifications.GET("/me", h.ListMine)
	notifications.PATCH("/read-all", h.MarkAllRead)
	notifications.PATCH("/:id/read", h.MarkRead)
}

func (h *NotificationHandler) Send(c *gin.Context) {
	var req models.SendNotificationRequest
	if !bind(c, &req) {
		return
	}
	sent, err := h.notificationService.Send(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"sent": sent})
}

func (h *NotificationHandler) ListMine(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	items, total, err := h.notificationService.ListMine(c.Request.Context(), actorFrom(c).UserID, c.Query("unread") == "true", page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPaged(c, items, page, limit, total)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), c.Param("id"), actorFrom(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notificationService.MarkAllRead(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"marked": n})
}

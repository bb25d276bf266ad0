package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/models"
	"rental-service/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	public := router.Group("/users")
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)

	users := router.Group("/users", auth)
	users.POST("/logout", h.Logout)
	users.GET("/me", h.Me)
	users.GET("", h.List)
	users.GET("/:id", h.Get)
	users.PUT("/:id", h.Update)
	users.DELETE("/:id", h.Deactivate)
}

func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.userService.Login(c.Request.Context(), req, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), c.GetString(ctxSessionID)); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"logged_out": true})
}

func (h *UserHandler) Me(c *gin.Context) {
	actor := actorFrom(c)
	user, err := h.userService.GetByID(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) List(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	users, total, err := h.userService.List(c.Request.Context(), actorFrom(c), models.UserRole(c.Query("role")), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPaged(c, users, page, limit, total)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req models.UpdateUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.userService.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	if err := h.userService.Deactivate(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

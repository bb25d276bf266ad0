package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const (
	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxSessionID = "session_id"

	defaultPageSize = 20
	maxPageSize     = 100
)

func statusFor(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case apperr.KindInvalidInput:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case apperr.KindConflict:
		return http.StatusConflict, "CONFLICT"
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case apperr.KindForbidden:
		return http.StatusForbidden, "FORBIDDEN"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondError writes err in the error envelope. Unexpected errors are logged
// with their cause and reach the caller as a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, code := statusFor(kind)
	if kind == apperr.KindUnexpected {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(),
			"user_id", c.GetString(ctxUserID), "error", err)
	}
	c.AbortWithStatusJSON(status, utils.CreateErrorResponse(code, apperr.MessageOf(err)))
}

func badRequest(c *gin.Context, err error) {
	slog.Debug("malformed request", "path", c.FullPath(), "error", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, utils.CreateErrorResponse("INVALID_REQUEST_FORMAT", "Invalid request format"))
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, utils.CreateSuccessResponse(data))
}

func respondPaged(c *gin.Context, data any, page, limit, total int) {
	c.JSON(http.StatusOK, utils.CreatePagedResponse(data, page, limit, total))
}

// bind decodes the JSON body into req and answers 400 when it cannot.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func actorFrom(c *gin.Context) models.Actor {
	return models.Actor{
		UserID: c.GetString(ctxUserID),
		Role:   models.UserRole(c.GetString(ctxRole)),
	}
}

// pagination reads page and limit, answering 400 on garbage.
func pagination(c *gin.Context) (page, limit int, ok bool) {
	page, limit, err := utils.GetPagination(c, defaultPageSize, maxPageSize)
	if err != nil {
		respondError(c, apperr.InvalidInput("%s", err.Error()))
		return 0, 0, false
	}
	return page, limit, true
}

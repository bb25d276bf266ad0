package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-service/internal/models"
	"rental-service/internal/services"
)

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	files := router.Group("/files", auth)
	files.POST("/upload", h.Upload)
	files.GET("/:id", h.Download)
	files.GET("/:id/url", h.PresignedURL)
	files.DELETE("/:id", h.Delete)
}

// Upload stores the multipart field "file". The optional "kind" field picks
// the bucket and the validation rules; documents are the default.
func (h *FileHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	kind := models.FileKind(c.DefaultPostForm("kind", string(models.FileDocument)))

	stored, err := h.fileService.Upload(c.Request.Context(), actorFrom(c).UserID, kind, fh)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, stored)
}

func (h *FileHandler) Download(c *gin.Context) {
	f, rc, err := h.fileService.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", f.OriginalName),
	})
}

func (h *FileHandler) PresignedURL(c *gin.Context) {
	url, err := h.fileService.PresignedURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"url": url})
}

func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.fileService.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

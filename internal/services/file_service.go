package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"rental-service/internal/apperr"
	"rental-service/internal/config"
	"rental-service/internal/database/minio"
	"rental-service/internal/models"
	"rental-service/internal/repository"
	utils "rental-service/shared/utils"
)

func init() {
	// keep pdfcpu from writing its config under the user's home
	model.ConfigPath = "disable"
}

// BlobStore is the object storage the service writes media to.
type BlobStore interface {
	UploadFile(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) error
	GetFile(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, bucket, object string) error
	GetPresignedURL(ctx context.Context, bucket, object string, expiry time.Duration) (string, error)
}

var allowedExtensions = map[models.FileKind][]string{
	models.FileImage:        {".jpg", ".jpeg", ".png", ".webp"},
	models.FilePDFBlueprint: {".pdf"},
	models.FileVideo:        {".mp4", ".mov", ".webm"},
	models.FileDocument:     {".pdf", ".doc", ".docx", ".txt", ".jpg", ".jpeg", ".png"},
}

type FileService struct {
	fileRepo      *repository.FileRepository
	blobs         BlobStore
	limits        config.UploadConfig
	presignExpiry time.Duration
	now           func() time.Time
}

func NewFileService(fileRepo *repository.FileRepository, blobs BlobStore, limits config.UploadConfig, presignExpiry time.Duration) *FileService {
	return &FileService{
		fileRepo:      fileRepo,
		blobs:         blobs,
		limits:        limits,
		presignExpiry: presignExpiry,
		now:           time.Now,
	}
}

func (s *FileService) maxMB(kind models.FileKind) int64 {
	switch kind {
	case models.FileImage:
		return s.limits.MaxImageMB
	case models.FilePDFBlueprint:
		return s.limits.MaxPDFMB
	case models.FileVideo:
		return s.limits.MaxVideoMB
	default:
		return s.limits.MaxDocMB
	}
}

// Upload validates and stores one multipart file of the given kind.
func (s *FileService) Upload(ctx context.Context, ownerID string, kind models.FileKind, fh *multipart.FileHeader) (*models.StoredFile, error) {
	if !kind.Valid() {
		return nil, apperr.InvalidInput("file kind %q is not valid", kind)
	}
	if err := utils.ValidateFile(fh, allowedExtensions[kind], s.maxMB(kind)); err != nil {
		return nil, apperr.InvalidInput("%s", err.Error())
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperr.InvalidInput("cannot read uploaded file %s", fh.Filename)
	}
	defer f.Close()

	return s.Store(ctx, ownerID, kind, fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
}

// Store writes content to the kind's bucket and records its metadata.
// Blueprints must parse as PDF; their page count is kept.
func (s *FileService) Store(ctx context.Context, ownerID string, kind models.FileKind, filename, contentType string, size int64, content io.ReadSeeker) (*models.StoredFile, error) {
	pageCount := 0
	if kind == models.FilePDFBlueprint {
		n, err := inspectPDF(content)
		if err != nil {
			return nil, apperr.InvalidInput("%s is not a valid PDF: %v", filename, err)
		}
		pageCount = n
	}

	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			contentType = byExt
		} else {
			contentType = "application/octet-stream"
		}
	}

	now := s.now()
	stored := &models.StoredFile{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Bucket:       minio.BucketFor(kind),
		ObjectName:   ownerID + "/" + utils.GenerateSafeFilename(filename, now),
		OriginalName: filename,
		ContentType:  contentType,
		Size:         size,
		Kind:         kind,
		PageCount:    pageCount,
		CreatedAt:    now.Unix(),
	}

	if err := s.blobs.UploadFile(ctx, stored.Bucket, stored.ObjectName, content, size, contentType); err != nil {
		return nil, apperr.Unexpected(err, "failed to upload %s", filename)
	}
	if err := s.fileRepo.Create(ctx, stored); err != nil {
		if delErr := s.blobs.DeleteFile(ctx, stored.Bucket, stored.ObjectName); delErr != nil {
			slog.Warn("failed to remove orphaned object", "bucket", stored.Bucket, "object", stored.ObjectName, "error", delErr)
		}
		return nil, apperr.Unexpected(err, "failed to save file metadata")
	}
	slog.Info("file stored", "file_id", stored.ID, "kind", kind, "size", size)
	return stored, nil
}

func inspectPDF(rs io.ReadSeeker) (int, error) {
	conf := model.NewDefaultConfiguration()
	if err := api.Validate(rs, conf); err != nil {
		return 0, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	pages, err := api.PageCount(rs, conf)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return pages, nil
}

func (s *FileService) Get(ctx context.Context, id string) (*models.StoredFile, error) {
	f, err := s.fileRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("file %s not found", id)
	}
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to load file %s", id)
	}
	return f, nil
}

// Open returns the file's metadata and a reader over its content. The
// caller closes the reader.
func (s *FileService) Open(ctx context.Context, id string) (*models.StoredFile, io.ReadCloser, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.GetFile(ctx, f.Bucket, f.ObjectName)
	if errors.Is(err, minio.ErrObjectNotFound) {
		return nil, nil, apperr.NotFound("content of file %s is missing", id)
	}
	if err != nil {
		return nil, nil, apperr.Unexpected(err, "failed to open file %s", id)
	}
	return f, rc, nil
}

func (s *FileService) PresignedURL(ctx context.Context, id string) (string, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.GetPresignedURL(ctx, f.Bucket, f.ObjectName, s.presignExpiry)
	if err != nil {
		return "", apperr.Unexpected(err, "failed to presign file %s", id)
	}
	return url, nil
}

func (s *FileService) Delete(ctx context.Context, actor models.Actor, id string) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(f.OwnerID) {
		return apperr.Forbidden("cannot delete another user's file")
	}
	if err := s.blobs.DeleteFile(ctx, f.Bucket, f.ObjectName); err != nil {
		return apperr.Unexpected(err, "failed to delete object for file %s", id)
	}
	if err := s.fileRepo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperr.Unexpected(err, "failed to delete file %s", id)
	}
	return nil
}

// KindForField maps the multipart field names listing media is posted under.
func KindForField(field string) (models.FileKind, error) {
	switch field {
	case "images":
		return models.FileImage, nil
	case "pdfBlueprints":
		return models.FilePDFBlueprint, nil
	case "videos":
		return models.FileVideo, nil
	}
	return "", fmt.Errorf("unknown media field %q", field)
}

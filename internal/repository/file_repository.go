package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

const fileColumns = `id, owner_id, bucket, object_name, original_name, content_type, size, kind, page_count, created_at`

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, f *models.StoredFile) error {
	query := `
		INSERT INTO files (` + fileColumns + `)
		VALUES (:id, :owner_id, :bucket, :object_name, :original_name, :content_type, :size, :kind, :page_count, :created_at)`
	if _, err := namedExec(ctx, r.db, query, f); err != nil {
		return fmt.Errorf("failed to save file metadata: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.StoredFile, error) {
	var f models.StoredFile
	if err := get(ctx, r.db, &f, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	err := utils.ExecWithCheck(ctx, r.db, `DELETE FROM files WHERE id = ?`, utils.ExecDelete, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete file metadata: %w", err)
	}
	return nil
}

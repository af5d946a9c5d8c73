package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
)

type UploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Save records an upload. Keys are content hashes, so re-uploading the same
// bytes refreshes the existing row.
func (r *UploadRepository) Save(ctx context.Context, upload *models.Upload) error {
	ctx, span := tracer.Start(ctx, "Repository.Upload.Save")
	defer span.End()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_type", "size", "url"}),
	}).Create(upload).Error
	return errors.Wrap(err, "save upload")
}

func (r *UploadRepository) List(ctx context.Context) ([]models.Upload, error) {
	ctx, span := tracer.Start(ctx, "Repository.Upload.List")
	defer span.End()

	var uploads []models.Upload
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&uploads).Error; err != nil {
		return nil, errors.Wrap(err, "list uploads")
	}
	return uploads, nil
}

func (r *UploadRepository) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Repository.Upload.Delete")
	defer span.End()

	result := r.db.WithContext(ctx).Delete(&models.Upload{}, "key = ?", key)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete upload")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "upload"}
	}
	return nil
}

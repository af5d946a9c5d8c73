package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, msg *models.ContactMessage) error {
	ctx, span := tracer.Start(ctx, "Repository.Contact.Create")
	defer span.End()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(msg).Error, "create contact message")
}

func (r *ContactRepository) List(ctx context.Context, unreadOnly bool) ([]models.ContactMessage, error) {
	ctx, span := tracer.Start(ctx, "Repository.Contact.List")
	defer span.End()

	q := r.db.WithContext(ctx).Order("created_at DESC")
	if unreadOnly {
		q = q.Where("read = ?", false)
	}

	var msgs []models.ContactMessage
	if err := q.Find(&msgs).Error; err != nil {
		return nil, errors.Wrap(err, "list contact messages")
	}
	return msgs, nil
}

func (r *ContactRepository) MarkRead(ctx context.Context, id string, read bool) error {
	ctx, span := tracer.Start(ctx, "Repository.Contact.MarkRead")
	defer span.End()

	result := r.db.WithContext(ctx).
		Model(&models.ContactMessage{}).
		Where("id = ?", id).
		Update("read", read)
	if result.Error != nil {
		return errors.Wrap(result.Error, "mark contact message")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "message"}
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Repository.Contact.Delete")
	defer span.End()

	result := r.db.WithContext(ctx).Delete(&models.ContactMessage{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete contact message")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "message"}
	}
	return nil
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
)

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	ctx, span := tracer.Start(ctx, "Repository.Admin.Create")
	defer span.End()

	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Create(admin).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ValidationError{Field: "email", Reason: "already registered"}
	}
	return errors.Wrap(err, "create admin")
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	ctx, span := tracer.Start(ctx, "Repository.Admin.GetByEmail")
	defer span.End()

	var admin models.Admin
	err := r.db.WithContext(ctx).Where("email = ?", email).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "admin"}
	}
	if err != nil {
		return nil, errors.Wrap(err, "get admin")
	}
	return &admin, nil
}

func (r *AdminRepository) Get(ctx context.Context, id string) (*models.Admin, error) {
	ctx, span := tracer.Start(ctx, "Repository.Admin.Get")
	defer span.End()

	var admin models.Admin
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "admin"}
	}
	if err != nil {
		return nil, errors.Wrap(err, "get admin")
	}
	return &admin, nil
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reservaterrain/core/internal/model"
)

type OwnerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Owner, error)
	GetBySubject(ctx context.Context, subject string) (*model.Owner, error)
	Ensure(ctx context.Context, person model.Person) (*model.Owner, bool, error)
}

type GormOwnerRepository struct {
	db *gorm.DB
}

func NewGormOwnerRepository(db *gorm.DB) *GormOwnerRepository {
	return &GormOwnerRepository{db: db}
}

func (r *GormOwnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Owner, error) {
	var o model.Owner
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOwnerRepository) GetBySubject(ctx context.Context, subject string) (*model.Owner, error) {
	return findPersonBy[model.Owner](ctx, r.db, "subject", subject)
}

func (r *GormOwnerRepository) Ensure(ctx context.Context, person model.Person) (*model.Owner, bool, error) {
	return ensurePerson[model.Owner](ctx, r.db, person)
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reservaterrain/core/internal/model"
)

type ClientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	GetBySubject(ctx context.Context, subject string) (*model.Client, error)
	// Ensure находит клиента по subject/email или создаёт нового.
	Ensure(ctx context.Context, person model.Person) (*model.Client, bool, error)
	UpdateContacts(ctx context.Context, id uuid.UUID, in ContactsUpdate) (*model.Client, error)
}

type GormClientRepository struct {
	db *gorm.DB
}

func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

func (r *GormClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var c model.Client
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormClientRepository) GetBySubject(ctx context.Context, subject string) (*model.Client, error) {
	return findPersonBy[model.Client](ctx, r.db, "subject", subject)
}

func (r *GormClientRepository) Ensure(ctx context.Context, person model.Person) (*model.Client, bool, error) {
	return ensurePerson[model.Client](ctx, r.db, person)
}

func (r *GormClientRepository) UpdateContacts(ctx context.Context, id uuid.UUID, in ContactsUpdate) (*model.Client, error) {
	return updateContacts[model.Client](ctx, r.db, id, in)
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reservaterrain/core/internal/model"
)

type ComplexeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Complexe, error)
	Create(ctx context.Context, c *model.Complexe) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List — все комплексы с пагинацией (каталог для клиентов).
	List(ctx context.Context, city string, limit, offset int) ([]model.Complexe, int64, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Complexe, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type GormComplexeRepository struct {
	db *gorm.DB
}

func NewGormComplexeRepository(db *gorm.DB) *GormComplexeRepository {
	return &GormComplexeRepository{db: db}
}

func (r *GormComplexeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Complexe, error) {
	var c model.Complexe
	if err := r.db.WithContext(ctx).Preload("Owner").First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormComplexeRepository) Create(ctx context.Context, c *model.Complexe) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Delete удаляет комплекс вместе с терренами и их объявлениями. Комплекс, на терренах
// которого есть брони, не удаляется: ErrInUse.
func (r *GormComplexeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booked int64
		err := tx.Model(&model.Reservation{}).
			Joins("JOIN terrains ON terrains.id = reservations.terrain_id").
			Where("terrains.complexe_id = ?", id).
			Count(&booked).Error
		if err != nil {
			return err
		}
		if booked > 0 {
			return ErrInUse
		}

		terrains := tx.Model(&model.Terrain{}).Select("id").Where("complexe_id = ?", id)
		if err := tx.Where("terrain_id IN (?)", terrains).Delete(&model.Annonce{}).Error; err != nil {
			return err
		}
		if err := tx.Where("complexe_id = ?", id).Delete(&model.Terrain{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Complexe{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormComplexeRepository) List(ctx context.Context, city string, limit, offset int) ([]model.Complexe, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Complexe{})
	if city != "" {
		q = q.Where("LOWER(city) = LOWER(?)", city)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var complexes []model.Complexe
	if err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&complexes).Error; err != nil {
		return nil, 0, err
	}
	return complexes, total, nil
}

func (r *GormComplexeRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Complexe, error) {
	var complexes []model.Complexe
	err := r.db.WithContext(ctx).
		Preload("Terrains", func(db *gorm.DB) *gorm.DB { return db.Order("terrains.name ASC") }).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&complexes).Error
	if err != nil {
		return nil, err
	}
	return complexes, nil
}

func (r *GormComplexeRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Complexe{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}

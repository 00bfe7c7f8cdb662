package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reservaterrain/core/internal/model"
)

// AnnonceFilter — пустой City и nil TerrainID не ограничивают выборку.
type AnnonceFilter struct {
	City      string
	TerrainID *uuid.UUID
}

type AnnonceRepository interface {
	Create(ctx context.Context, a *model.Annonce) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Annonce, error)
	// List — новые объявления сначала.
	List(ctx context.Context, f AnnonceFilter, limit, offset int) ([]model.Annonce, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormAnnonceRepository struct {
	db *gorm.DB
}

func NewGormAnnonceRepository(db *gorm.DB) *GormAnnonceRepository {
	return &GormAnnonceRepository{db: db}
}

func (r *GormAnnonceRepository) Create(ctx context.Context, a *model.Annonce) error {
	return r.db.WithContext(ctx).Omit("Client", "Terrain").Create(a).Error
}

func (r *GormAnnonceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Annonce, error) {
	var a model.Annonce
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Terrain.Complexe").
		First(&a, "annonces.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (f AnnonceFilter) apply(q *gorm.DB) *gorm.DB {
	if f.City != "" {
		q = q.Joins("JOIN terrains ON terrains.id = annonces.terrain_id").
			Joins("JOIN complexes ON complexes.id = terrains.complexe_id").
			Where("LOWER(complexes.city) = LOWER(?)", f.City)
	}
	if f.TerrainID != nil {
		q = q.Where("annonces.terrain_id = ?", *f.TerrainID)
	}
	return q
}

func (r *GormAnnonceRepository) List(ctx context.Context, f AnnonceFilter, limit, offset int) ([]model.Annonce, int64, error) {
	var total int64
	if err := f.apply(r.db.WithContext(ctx).Model(&model.Annonce{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var out []model.Annonce
	err := f.apply(r.db.WithContext(ctx).Model(&model.Annonce{})).
		Preload("Client").
		Preload("Terrain.Complexe").
		Order("annonces.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *GormAnnonceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Annonce{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

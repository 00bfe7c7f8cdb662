package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reservaterrain/core/internal/model"
)

type TerrainRepository interface {
	// GetByID возвращает террен вместе с комплексом.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Terrain, error)
	Create(ctx context.Context, t *model.Terrain) error
	Update(ctx context.Context, t *model.Terrain) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.TerrainStatus) error
	ListByComplexe(ctx context.Context, complexeID uuid.UUID) ([]model.Terrain, error)
	CountByStatus(ctx context.Context, status model.TerrainStatus) (int64, error)
	CountByOwnerAndStatus(ctx context.Context, ownerID uuid.UUID, status model.TerrainStatus) (int64, error)
}

type GormTerrainRepository struct {
	db *gorm.DB
}

func NewGormTerrainRepository(db *gorm.DB) *GormTerrainRepository {
	return &GormTerrainRepository{db: db}
}

func (r *GormTerrainRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Terrain, error) {
	var t model.Terrain
	if err := r.db.WithContext(ctx).Preload("Complexe").First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormTerrainRepository) Create(ctx context.Context, t *model.Terrain) error {
	return r.db.WithContext(ctx).Omit("Complexe").Create(t).Error
}

// Update сохраняет редактируемые поля террена. Комплекс не меняется.
func (r *GormTerrainRepository) Update(ctx context.Context, t *model.Terrain) error {
	return r.db.WithContext(ctx).
		Model(&model.Terrain{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"name":         t.Name,
			"price":        t.Price,
			"open_hour":    t.OpenHour,
			"close_hour":   t.CloseHour,
			"slot_minutes": t.SlotMinutes,
			"status":       t.Status,
		}).Error
}

func (r *GormTerrainRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TerrainStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Terrain{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormTerrainRepository) ListByComplexe(ctx context.Context, complexeID uuid.UUID) ([]model.Terrain, error) {
	var terrains []model.Terrain
	err := r.db.WithContext(ctx).
		Where("complexe_id = ?", complexeID).
		Order("name ASC").
		Find(&terrains).Error
	if err != nil {
		return nil, err
	}
	return terrains, nil
}

func (r *GormTerrainRepository) CountByStatus(ctx context.Context, status model.TerrainStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Terrain{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *GormTerrainRepository) CountByOwnerAndStatus(ctx context.Context, ownerID uuid.UUID, status model.TerrainStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Terrain{}).
		Joins("JOIN complexes ON complexes.id = terrains.complexe_id").
		Where("complexes.owner_id = ? AND terrains.status = ?", ownerID, status).
		Count(&n).Error
	return n, err
}

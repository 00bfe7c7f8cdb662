package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TerrainStatus string

const (
	TerrainStatusOpen   TerrainStatus = "OUVERT"
	TerrainStatusClosed TerrainStatus = "FERME"
)

// DefaultSlotMinutes используется, если у террена не задана длительность слота.
const DefaultSlotMinutes = 60

// terrains
type Terrain struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ComplexeID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name  string          `gorm:"type:varchar(255);not null"`
	Price decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	// Часы работы [OpenHour, CloseHour), целые часы.
	OpenHour  int `gorm:"not null"`
	CloseHour int `gorm:"not null"`

	// Подсказка для сетки слотов, в минутах.
	SlotMinutes int `gorm:"not null;default:60"`

	Status TerrainStatus `gorm:"type:varchar(32);not null;default:'OUVERT';index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Complexe *Complexe `gorm:"foreignKey:ComplexeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (t *Terrain) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SlotDuration возвращает длительность слота с учётом значения по умолчанию.
func (t *Terrain) SlotDuration() time.Duration {
	if t.SlotMinutes <= 0 {
		return DefaultSlotMinutes * time.Minute
	}
	return time.Duration(t.SlotMinutes) * time.Minute
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// annonces — клиент ищет партнёров для игры на террене.
type Annonce struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ClientID  uuid.UUID `gorm:"type:uuid;not null;index"`
	TerrainID uuid.UUID `gorm:"type:uuid;not null;index"`

	// Сколько игроков не хватает.
	PlayerCount int `gorm:"not null"`

	// Время публикации.
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`

	Client  *Client  `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Terrain *Terrain `gorm:"foreignKey:TerrainID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (a *Annonce) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// complexes — площадка с одним или несколькими терренами.
type Complexe struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name    string `gorm:"type:varchar(255);not null"`
	City    string `gorm:"type:varchar(255);not null"`
	Address string `gorm:"type:varchar(255);not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Owner    *Owner    `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Terrains []Terrain `gorm:"foreignKey:ComplexeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (c *Complexe) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

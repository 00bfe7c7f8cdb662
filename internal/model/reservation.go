package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMEE"
	ReservationStatusValidated ReservationStatus = "VALIDEE"
	ReservationStatusCancelled ReservationStatus = "ANNULEE"
	ReservationStatusPending   ReservationStatus = "EN_ATTENTE"
)

// ParseReservationStatus проверяет, что строка — известный статус.
func ParseReservationStatus(raw string) (ReservationStatus, bool) {
	s := ReservationStatus(raw)
	switch s {
	case ReservationStatusConfirmed, ReservationStatusValidated, ReservationStatusCancelled, ReservationStatusPending:
		return s, true
	default:
		return "", false
	}
}

// Active — бронь участвует в проверке пересечений.
func (s ReservationStatus) Active() bool {
	return s != ReservationStatusCancelled
}

// reservations
type Reservation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	TerrainID uuid.UUID `gorm:"type:uuid;not null;index:idx_reservation_terrain_day,priority:1"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index"`

	Date      datatypes.Date `gorm:"column:booking_date;not null;index:idx_reservation_terrain_day,priority:2"`
	StartTime datatypes.Time `gorm:"not null"`
	EndTime   datatypes.Time `gorm:"not null"`

	// Длительность в минутах, всегда EndTime - StartTime.
	DurationMinutes int `gorm:"not null"`

	Status      ReservationStatus `gorm:"type:varchar(32);not null;index"`
	CancelledAt *time.Time        `gorm:"type:timestamp with time zone"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Terrain *Terrain `gorm:"foreignKey:TerrainID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Client  *Client  `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Day возвращает дату брони как time.Time (полночь в UTC).
func (r *Reservation) Day() time.Time {
	return time.Time(r.Date)
}

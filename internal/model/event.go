package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Тип события журнала броней.
type EventType string

const (
	EventTypeReservationCreated   EventType = "reservation_created"
	EventTypeReservationUpdated   EventType = "reservation_updated"
	EventTypeReservationCancelled EventType = "reservation_cancelled"
	EventTypeReservationValidated EventType = "reservation_validated"
	EventTypeReservationsDeleted  EventType = "reservations_deleted"
)

// events — журнал изменений броней
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	// Бронь могла быть удалена физически, поэтому без внешнего ключа.
	ReservationID *uuid.UUID `gorm:"type:uuid;index"`

	ActorSubject string `gorm:"type:varchar(255)"`

	Details string `gorm:"type:text"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

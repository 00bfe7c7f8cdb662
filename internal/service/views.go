package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/model"
)

// ReservationView — бронь в том виде, в каком её видит клиент API.
type ReservationView struct {
	ID              uuid.UUID               `json:"id"`
	TerrainID       uuid.UUID               `json:"terrainId"`
	TerrainName     string                  `json:"terrainName"`
	ComplexeID      uuid.UUID               `json:"complexeId"`
	ComplexeName    string                  `json:"complexeName"`
	ClientID        uuid.UUID               `json:"clientId"`
	ClientName      string                  `json:"clientName,omitempty"`
	ClientEmail     string                  `json:"clientEmail,omitempty"`
	Date            string                  `json:"date"`
	StartTime       string                  `json:"startTime"`
	EndTime         string                  `json:"endTime"`
	DurationMinutes int                     `json:"durationMinutes"`
	Status          model.ReservationStatus `json:"status"`
	Price           decimal.Decimal         `json:"price"`
	Label           string                  `json:"label"`
	CancelledAt     *time.Time              `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
}

func toReservationView(r *model.Reservation) ReservationView {
	start, end := time.Duration(r.StartTime), time.Duration(r.EndTime)
	v := ReservationView{
		ID:              r.ID,
		TerrainID:       r.TerrainID,
		ClientID:        r.ClientID,
		Date:            r.Day().Format(time.DateOnly),
		StartTime:       calendar.FormatClock(start),
		EndTime:         calendar.FormatClock(end),
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
		Label:           calendar.FormatSlotForUser(calendar.OnDay(r.Day(), start, end)),
		CancelledAt:     r.CancelledAt,
		CreatedAt:       r.CreatedAt,
	}
	if t := r.Terrain; t != nil {
		v.TerrainName = t.Name
		v.Price = t.Price
		if t.Complexe != nil {
			v.ComplexeID = t.Complexe.ID
			v.ComplexeName = t.Complexe.Name
		}
	}
	if c := r.Client; c != nil {
		v.ClientName = c.FullName()
		v.ClientEmail = c.Email
	}
	return v
}

// hideClient убирает данные клиента для посторонних.
func (v *ReservationView) hideClient() {
	v.ClientID = uuid.Nil
	v.ClientName = ""
	v.ClientEmail = ""
}

func toReservationViews(rs []model.Reservation) []ReservationView {
	out := make([]ReservationView, 0, len(rs))
	for i := range rs {
		out = append(out, toReservationView(&rs[i]))
	}
	return out
}

type TerrainView struct {
	ID           uuid.UUID           `json:"id"`
	ComplexeID   uuid.UUID           `json:"complexeId"`
	ComplexeName string              `json:"complexeName,omitempty"`
	City         string              `json:"city,omitempty"`
	Name         string              `json:"name"`
	Price        decimal.Decimal     `json:"price"`
	OpenHour     int                 `json:"openHour"`
	CloseHour    int                 `json:"closeHour"`
	SlotMinutes  int                 `json:"slotMinutes"`
	Status       model.TerrainStatus `json:"status"`
}

func toTerrainView(t *model.Terrain) TerrainView {
	v := TerrainView{
		ID:          t.ID,
		ComplexeID:  t.ComplexeID,
		Name:        t.Name,
		Price:       t.Price,
		OpenHour:    t.OpenHour,
		CloseHour:   t.CloseHour,
		SlotMinutes: int(t.SlotDuration() / time.Minute),
		Status:      t.Status,
	}
	if t.Complexe != nil {
		v.ComplexeName = t.Complexe.Name
		v.City = t.Complexe.City
	}
	return v
}

type ComplexeView struct {
	ID       uuid.UUID     `json:"id"`
	OwnerID  uuid.UUID     `json:"ownerId"`
	Name     string        `json:"name"`
	City     string        `json:"city"`
	Address  string        `json:"address"`
	Terrains []TerrainView `json:"terrains,omitempty"`
}

func toComplexeView(c *model.Complexe) ComplexeView {
	v := ComplexeView{
		ID:      c.ID,
		OwnerID: c.OwnerID,
		Name:    c.Name,
		City:    c.City,
		Address: c.Address,
	}
	for i := range c.Terrains {
		v.Terrains = append(v.Terrains, toTerrainView(&c.Terrains[i]))
	}
	return v
}

type ClientProfile struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FamilyName string    `json:"familyName"`
	GivenName  string    `json:"givenName"`
	Phone      *string   `json:"phone,omitempty"`
}

func toClientProfile(c *model.Client) *ClientProfile {
	return &ClientProfile{
		ID:         c.ID,
		Email:      c.Email,
		FamilyName: c.FamilyName,
		GivenName:  c.GivenName,
		Phone:      c.Phone,
	}
}

type AnnonceView struct {
	ID           uuid.UUID `json:"id"`
	PostedAt     time.Time `json:"date"`
	PlayerCount  int       `json:"playerCount"`
	ClientID     uuid.UUID `json:"clientId"`
	ClientName   string    `json:"clientName"`
	ClientPhone  *string   `json:"clientPhone,omitempty"`
	TerrainID    uuid.UUID `json:"terrainId"`
	TerrainName  string    `json:"terrainName"`
	ComplexeName string    `json:"complexeName"`
	City         string    `json:"city"`
}

func toAnnonceView(a *model.Annonce) AnnonceView {
	v := AnnonceView{
		ID:          a.ID,
		PostedAt:    a.CreatedAt,
		PlayerCount: a.PlayerCount,
		ClientID:    a.ClientID,
		TerrainID:   a.TerrainID,
	}
	if c := a.Client; c != nil {
		v.ClientName = c.FullName()
		v.ClientPhone = c.Phone
	}
	if t := a.Terrain; t != nil {
		v.TerrainName = t.Name
		if t.Complexe != nil {
			v.ComplexeName = t.Complexe.Name
			v.City = t.Complexe.City
		}
	}
	return v
}

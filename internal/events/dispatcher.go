package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

// Ключи маршрутизации в exchange.
const (
	KeyReservationCreated   = "reservation.created"
	KeyReservationUpdated   = "reservation.updated"
	KeyReservationCancelled = "reservation.cancelled"
	KeyReservationValidated = "reservation.validated"
	KeyReservationsDeleted  = "reservation.deleted"
)

var routingKeys = map[model.EventType]string{
	model.EventTypeReservationCreated:   KeyReservationCreated,
	model.EventTypeReservationUpdated:   KeyReservationUpdated,
	model.EventTypeReservationCancelled: KeyReservationCancelled,
	model.EventTypeReservationValidated: KeyReservationValidated,
	model.EventTypeReservationsDeleted:  KeyReservationsDeleted,
}

// Message — тело события в брокере и детали записи журнала.
type Message struct {
	EventID        uuid.UUID               `json:"eventId"`
	Type           model.EventType         `json:"type"`
	ReservationIDs []uuid.UUID             `json:"reservationIds"`
	TerrainID      *uuid.UUID              `json:"terrainId,omitempty"`
	ClientID       *uuid.UUID              `json:"clientId,omitempty"`
	Status         model.ReservationStatus `json:"status,omitempty"`
	Date           string                  `json:"date,omitempty"`
	StartTime      string                  `json:"startTime,omitempty"`
	EndTime        string                  `json:"endTime,omitempty"`
	Actor          string                  `json:"actor"`
	OccurredAt     time.Time               `json:"occurredAt"`
}

// FromReservation заполняет сообщение полями брони.
func FromReservation(t model.EventType, actor string, r *model.Reservation) Message {
	terrain, client := r.TerrainID, r.ClientID
	return Message{
		Type:           t,
		ReservationIDs: []uuid.UUID{r.ID},
		TerrainID:      &terrain,
		ClientID:       &client,
		Status:         r.Status,
		Date:           r.Day().Format(time.DateOnly),
		StartTime:      r.StartTime.String(),
		EndTime:        r.EndTime.String(),
		Actor:          actor,
	}
}

// Dispatcher пишет событие в журнал и публикует его в брокер.
// Основная операция к этому моменту уже закоммичена, поэтому
// ошибки только логируются.
type Dispatcher struct {
	events repository.EventRepository
	pub    Publisher
	log    *slog.Logger
	now    func() time.Time
}

func NewDispatcher(events repository.EventRepository, pub Publisher, log *slog.Logger) *Dispatcher {
	if pub == nil {
		pub = NoopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{events: events, pub: pub, log: log, now: time.Now}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if msg.EventID == uuid.Nil {
		msg.EventID = uuid.New()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = d.now().UTC()
	}

	details, err := json.Marshal(msg)
	if err != nil {
		d.log.ErrorContext(ctx, "marshal event", "type", msg.Type, "err", err)
		return
	}

	if d.events != nil {
		ids := msg.ReservationIDs
		if len(ids) == 0 {
			ids = []uuid.UUID{uuid.Nil}
		}
		for _, id := range ids {
			e := &model.Event{
				EventType:    msg.Type,
				CreatedAt:    msg.OccurredAt,
				ActorSubject: msg.Actor,
				Details:      string(details),
			}
			if id != uuid.Nil {
				rid := id
				e.ReservationID = &rid
			}
			if err := d.events.Create(ctx, e); err != nil {
				d.log.ErrorContext(ctx, "persist event", "type", msg.Type, "reservation_id", id, "err", err)
			}
		}
	}

	key, ok := routingKeys[msg.Type]
	if !ok {
		d.log.WarnContext(ctx, "no routing key for event", "type", msg.Type)
		return
	}
	if err := d.pub.PublishJSON(ctx, key, msg); err != nil {
		d.log.WarnContext(ctx, "publish event", "key", key, "err", err)
	}
}

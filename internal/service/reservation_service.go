package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/datatypes"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/config"
	"github.com/reservaterrain/core/internal/events"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

// EventSink получает события жизненного цикла брони.
type EventSink interface {
	Dispatch(ctx context.Context, msg events.Message)
}

// ReservationInput — запрос на бронирование. Время — смещение от полуночи.
type ReservationInput struct {
	TerrainID uuid.UUID
	Date      time.Time
	StartTime time.Duration
	EndTime   time.Duration
}

// ReservationUpdateInput — новые значения брони. TerrainID и Status
// необязательны: nil оставляет текущие.
type ReservationUpdateInput struct {
	TerrainID *uuid.UUID
	Date      time.Time
	StartTime time.Duration
	EndTime   time.Duration
	Status    *model.ReservationStatus
}

// ReservationQuery — условия фильтра, nil = без ограничения.
type ReservationQuery struct {
	ComplexeID  *uuid.UUID
	ClientID    *uuid.UUID
	From        *time.Time
	To          *time.Time
	Status      *model.ReservationStatus
	MinDuration *int
	MaxDuration *int
}

type ReservationService struct {
	reservations repository.ReservationRepository
	terrains     repository.TerrainRepository
	directory    *DirectoryService
	events       EventSink
	log          *slog.Logger
	tracer       trace.Tracer

	loc           *time.Location
	window        time.Duration
	initialStatus model.ReservationStatus
	now           func() time.Time
}

func NewReservationService(
	reservations repository.ReservationRepository,
	terrains repository.TerrainRepository,
	directory *DirectoryService,
	sink EventSink,
	booking config.BookingConfig,
	log *slog.Logger,
) *ReservationService {
	loc := booking.Location
	if loc == nil {
		loc = time.UTC
	}
	initial := booking.Status
	if initial == "" {
		initial = model.ReservationStatusConfirmed
	}
	return &ReservationService{
		reservations:  reservations,
		terrains:      terrains,
		directory:     directory,
		events:        sink,
		log:           log,
		tracer:        otel.Tracer("reservation-core/service"),
		loc:           loc,
		window:        booking.CancellationWindow,
		initialStatus: initial,
		now:           time.Now,
	}
}

// checkInterval — общие для создания и изменения проверки интервала.
func checkInterval(t *model.Terrain, day time.Time, start, end time.Duration) (calendar.TimeRange, error) {
	d := calendar.UTCDate(day)
	tr, err := calendar.NewTimeRange(d.Add(start), d.Add(end))
	if err != nil {
		return calendar.TimeRange{}, status.Error(codes.InvalidArgument, "start time must be before end time")
	}
	if msg := calendar.OpeningHoursViolation(start, end, t.OpenHour, t.CloseHour); msg != "" {
		return calendar.TimeRange{}, status.Error(codes.InvalidArgument, msg)
	}
	return tr, nil
}

// writeConflict переводит ошибки условной записи в Conflict.
func writeConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrOverlap):
		return status.Error(codes.Aborted, "time slot overlaps an existing reservation")
	case errors.Is(err, repository.ErrStaleStatus):
		return status.Error(codes.Aborted, "reservation was changed concurrently, reload and retry")
	}
	return nil
}

func (s *ReservationService) terrain(ctx context.Context, id uuid.UUID) (*model.Terrain, error) {
	t, err := s.terrains.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, status.Errorf(codes.NotFound, "terrain %s not found", id)
	}
	if err != nil {
		return nil, internalError(ctx, s.log, "load terrain", err)
	}
	return t, nil
}

func (s *ReservationService) reservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, status.Errorf(codes.NotFound, "reservation %s not found", id)
	}
	if err != nil {
		return nil, internalError(ctx, s.log, "load reservation", err)
	}
	return r, nil
}

func (s *ReservationService) emit(ctx context.Context, t model.EventType, actor identity.Principal, r *model.Reservation) {
	if s.events == nil {
		return
	}
	s.events.Dispatch(ctx, events.FromReservation(t, actor.Subject, r))
}

// Create бронирует интервал на террене. Проверки идут по порядку и
// останавливаются на первой ошибке: террен, клиент, start < end, часы
// работы, пересечения.
func (s *ReservationService) Create(ctx context.Context, actor identity.Principal, in ReservationInput) (_ *ReservationView, err error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.Create",
		trace.WithAttributes(attribute.String("terrain.id", in.TerrainID.String())))
	defer func() { finishSpan(span, err) }()

	if in.Date.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}

	terrain, err := s.terrain(ctx, in.TerrainID)
	if err != nil {
		return nil, err
	}
	client, err := s.directory.ResolveClient(ctx, actor)
	if err != nil {
		return nil, err
	}
	tr, err := checkInterval(terrain, in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	res := &model.Reservation{
		TerrainID:       terrain.ID,
		ClientID:        client.ID,
		Date:            datatypes.Date(calendar.UTCDate(in.Date)),
		StartTime:       datatypes.Time(in.StartTime),
		EndTime:         datatypes.Time(in.EndTime),
		DurationMinutes: tr.Minutes(),
		Status:          s.initialStatus,
	}
	if err := s.reservations.CreateWithNoOverlap(ctx, res); err != nil {
		if conflict := writeConflict(err); conflict != nil {
			return nil, conflict
		}
		if repository.IsNotFound(err) {
			return nil, status.Errorf(codes.NotFound, "terrain %s not found", terrain.ID)
		}
		return nil, internalError(ctx, s.log, "create reservation", err)
	}

	res.Terrain = terrain
	res.Client = client
	s.log.InfoContext(ctx, "reservation created",
		"reservation_id", res.ID, "terrain_id", terrain.ID, "client_id", client.ID,
		"date", res.Day().Format(time.DateOnly), "start", res.StartTime.String(), "end", res.EndTime.String())
	s.emit(ctx, model.EventTypeReservationCreated, actor, res)

	v := toReservationView(res)
	return &v, nil
}

// canManageTerrain — террен на одном из комплексов владельца.
func (s *ReservationService) canManageTerrain(owner *model.Owner, t *model.Terrain) bool {
	return owner != nil && t != nil && t.Complexe != nil && t.Complexe.OwnerID == owner.ID
}

// Update перезаписывает дату, время и, возможно, террен и статус брони.
// Разрешено администратору и владельцу обоих терренов: текущего и нового.
func (s *ReservationService) Update(ctx context.Context, actor identity.Principal, id uuid.UUID, in ReservationUpdateInput) (_ *ReservationView, err error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.Update",
		trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer func() { finishSpan(span, err) }()

	if in.Date.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}

	var owner *model.Owner
	if !actor.IsAdmin() {
		if !actor.HasRole(model.RoleOwner) {
			return nil, status.Error(codes.PermissionDenied, "only owners and administrators can modify reservations")
		}
		if owner, err = s.directory.ResolveOwner(ctx, actor); err != nil {
			return nil, err
		}
	}

	current, err := s.reservation(ctx, id)
	if owner != nil && (status.Code(err) == codes.NotFound || (err == nil && !s.canManageTerrain(owner, current.Terrain))) {
		return nil, status.Error(codes.PermissionDenied, "reservation does not belong to your complexes")
	}
	if err != nil {
		return nil, err
	}

	target := current.Terrain
	if in.TerrainID != nil && *in.TerrainID != current.TerrainID {
		if target, err = s.terrain(ctx, *in.TerrainID); err != nil {
			return nil, err
		}
		if owner != nil && !s.canManageTerrain(owner, target) {
			return nil, status.Error(codes.PermissionDenied, "target terrain does not belong to your complexes")
		}
	}
	if target == nil {
		return nil, internalError(ctx, s.log, "update reservation", fmt.Errorf("reservation %s has no terrain loaded", id))
	}
	tr, err := checkInterval(target, in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.TerrainID = target.ID
	updated.Date = datatypes.Date(calendar.UTCDate(in.Date))
	updated.StartTime = datatypes.Time(in.StartTime)
	updated.EndTime = datatypes.Time(in.EndTime)
	updated.DurationMinutes = tr.Minutes()
	if in.Status != nil {
		updated.Status = *in.Status
		switch {
		case updated.Status == model.ReservationStatusCancelled && updated.CancelledAt == nil:
			now := s.now().UTC()
			updated.CancelledAt = &now
		case updated.Status.Active():
			updated.CancelledAt = nil
		}
	}

	if err := s.reservations.UpdateWithNoOverlap(ctx, &updated, current); err != nil {
		if conflict := writeConflict(err); conflict != nil {
			return nil, conflict
		}
		switch {
		case repository.IsNotFound(err):
			return nil, status.Errorf(codes.NotFound, "reservation %s not found", id)
		default:
			return nil, internalError(ctx, s.log, "update reservation", err)
		}
	}

	fresh, err := s.reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "reservation updated", "reservation_id", id, "terrain_id", fresh.TerrainID, "status", fresh.Status)
	s.emit(ctx, model.EventTypeReservationUpdated, actor, fresh)

	v := toReservationView(fresh)
	return &v, nil
}

// CancelByClient — отмена клиентом своей брони, не позже чем за
// window до начала по часовому поясу площадки.
func (s *ReservationService) CancelByClient(ctx context.Context, actor identity.Principal, id uuid.UUID) (_ *ReservationView, err error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.CancelByClient",
		trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer func() { finishSpan(span, err) }()

	client, err := s.directory.ResolveClient(ctx, actor)
	if err != nil {
		return nil, err
	}
	// Чужая и несуществующая бронь неразличимы для клиента.
	res, err := s.reservation(ctx, id)
	if status.Code(err) == codes.NotFound || (err == nil && res.ClientID != client.ID) {
		return nil, status.Error(codes.PermissionDenied, "you can only cancel your own reservations")
	}
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationStatusCancelled {
		return nil, status.Error(codes.Aborted, "reservation is already cancelled")
	}

	now := s.now()
	start := calendar.InLocation(res.Day(), time.Duration(res.StartTime), s.loc)
	if !calendar.CancellationAllowed(now, start, s.window) {
		return nil, status.Errorf(codes.Aborted,
			"reservation can only be cancelled at least %s before it starts", formatWindow(s.window))
	}

	return s.setStatus(ctx, actor, res, model.ReservationStatusCancelled, now)
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}

// ownedByActor проверяет цепочку бронь → террен → комплекс → владелец.
func (s *ReservationService) ownedByActor(ctx context.Context, actor identity.Principal, id uuid.UUID) error {
	if err := identity.ValidatePrincipal(actor); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	subject, err := s.reservations.OwnerSubject(ctx, id)
	if err != nil && !repository.IsNotFound(err) {
		return internalError(ctx, s.log, "check reservation owner", err)
	}
	if err != nil || subject == "" || subject != actor.Subject {
		return status.Error(codes.PermissionDenied, "reservation does not belong to your complexes")
	}
	return nil
}

// ValidateByOwner подтверждает бронь. Повторное подтверждение ничего не меняет.
func (s *ReservationService) ValidateByOwner(ctx context.Context, actor identity.Principal, id uuid.UUID) (_ *ReservationView, err error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.ValidateByOwner",
		trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer func() { finishSpan(span, err) }()

	if err := s.ownedByActor(ctx, actor, id); err != nil {
		return nil, err
	}
	res, err := s.reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case model.ReservationStatusCancelled:
		return nil, status.Error(codes.Aborted, "a cancelled reservation cannot be validated")
	case model.ReservationStatusValidated:
		v := toReservationView(res)
		return &v, nil
	}
	return s.setStatus(ctx, actor, res, model.ReservationStatusValidated, s.now())
}

// CancelByOwner отменяет бронь на своём комплексе без ограничения по времени.
func (s *ReservationService) CancelByOwner(ctx context.Context, actor identity.Principal, id uuid.UUID) (_ *ReservationView, err error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.CancelByOwner",
		trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer func() { finishSpan(span, err) }()

	if err := s.ownedByActor(ctx, actor, id); err != nil {
		return nil, err
	}
	res, err := s.reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationStatusCancelled {
		return nil, status.Error(codes.Aborted, "reservation is already cancelled")
	}
	return s.setStatus(ctx, actor, res, model.ReservationStatusCancelled, s.now())
}

func (s *ReservationService) setStatus(
	ctx context.Context,
	actor identity.Principal,
	res *model.Reservation,
	to model.ReservationStatus,
	now time.Time,
) (*ReservationView, error) {
	var cancelledAt *time.Time
	if to == model.ReservationStatusCancelled {
		t := now.UTC()
		cancelledAt = &t
	}
	if err := s.reservations.UpdateStatus(ctx, res.ID, res.Status, to, cancelledAt); err != nil {
		if conflict := writeConflict(err); conflict != nil {
			return nil, conflict
		}
		if repository.IsNotFound(err) {
			return nil, status.Errorf(codes.NotFound, "reservation %s not found", res.ID)
		}
		return nil, internalError(ctx, s.log, "update reservation status", err)
	}

	from := res.Status
	res.Status = to
	if cancelledAt != nil {
		res.CancelledAt = cancelledAt
	}
	s.log.InfoContext(ctx, "reservation status changed",
		"reservation_id", res.ID, "from", from, "to", to, "actor", actor.Subject)

	evt := model.EventTypeReservationValidated
	if to == model.ReservationStatusCancelled {
		evt = model.EventTypeReservationCancelled
	}
	s.emit(ctx, evt, actor, res)

	v := toReservationView(res)
	return &v, nil
}

// managesTerrain — администратор или владелец комплекса террена.
func (s *ReservationService) managesTerrain(ctx context.Context, actor identity.Principal, t *model.Terrain) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if !actor.HasRole(model.RoleOwner) || t == nil {
		return false, nil
	}
	owner, err := s.directory.ResolveOwner(ctx, actor)
	if err != nil {
		return false, err
	}
	return s.canManageTerrain(owner, t), nil
}

func bookedBy(actor identity.Principal, r *model.Reservation) bool {
	return r.Client != nil && actor.Subject != "" && r.Client.SubjectValue() == actor.Subject
}

// Get отдаёт бронь её клиенту, владельцу комплекса или администратору.
func (s *ReservationService) Get(ctx context.Context, actor identity.Principal, id uuid.UUID) (*ReservationView, error) {
	res, err := s.reservation(ctx, id)
	if status.Code(err) == codes.NotFound && !actor.IsAdmin() {
		return nil, status.Error(codes.PermissionDenied, "reservation is not visible to you")
	}
	if err != nil {
		return nil, err
	}
	if !bookedBy(actor, res) {
		ok, err := s.managesTerrain(ctx, actor, res.Terrain)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, status.Error(codes.PermissionDenied, "reservation is not visible to you")
		}
	}
	v := toReservationView(res)
	return &v, nil
}

// ListByTerrainAndDate — занятость террена на день. Данные клиента видны
// только владельцу террена, администратору и самому клиенту.
func (s *ReservationService) ListByTerrainAndDate(ctx context.Context, actor identity.Principal, terrainID uuid.UUID, date time.Time) ([]ReservationView, error) {
	t, err := s.terrain(ctx, terrainID)
	if err != nil {
		return nil, err
	}
	full, err := s.managesTerrain(ctx, actor, t)
	if err != nil {
		return nil, err
	}
	rs, err := s.reservations.ListByTerrainAndDate(ctx, terrainID, date)
	if err != nil {
		return nil, internalError(ctx, s.log, "list reservations by terrain", err)
	}
	out := toReservationViews(rs)
	if !full {
		for i := range rs {
			if !bookedBy(actor, &rs[i]) {
				out[i].hideClient()
			}
		}
	}
	return out, nil
}

// ListByDateRange — брони с датой в [from, to] включительно.
func (s *ReservationService) ListByDateRange(ctx context.Context, from, to time.Time) ([]ReservationView, error) {
	if calendar.UTCDate(to).Before(calendar.UTCDate(from)) {
		return nil, status.Error(codes.InvalidArgument, "from must not be after to")
	}
	rs, err := s.reservations.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, internalError(ctx, s.log, "list reservations by range", err)
	}
	return toReservationViews(rs), nil
}

// ListByClient — брони текущего клиента, новые сначала.
func (s *ReservationService) ListByClient(ctx context.Context, actor identity.Principal, page, pageSize int) (calendar.Page[ReservationView], error) {
	client, err := s.directory.ResolveClient(ctx, actor)
	if err != nil {
		return calendar.Page[ReservationView]{}, err
	}
	rs, err := s.reservations.ListByClient(ctx, client.ID)
	if err != nil {
		return calendar.Page[ReservationView]{}, internalError(ctx, s.log, "list client reservations", err)
	}
	return calendar.Paginate(toReservationViews(rs), page, pageSize), nil
}

// ListForOwner — все брони на комплексах владельца.
func (s *ReservationService) ListForOwner(ctx context.Context, actor identity.Principal, page, pageSize int) (calendar.Page[ReservationView], error) {
	owner, err := s.directory.ResolveOwner(ctx, actor)
	if err != nil {
		return calendar.Page[ReservationView]{}, err
	}
	rs, err := s.reservations.ListByOwner(ctx, owner.ID)
	if err != nil {
		return calendar.Page[ReservationView]{}, internalError(ctx, s.log, "list owner reservations", err)
	}
	return calendar.Paginate(toReservationViews(rs), page, pageSize), nil
}

func (q ReservationQuery) filter() (repository.ReservationFilter, error) {
	if q.From != nil && q.To != nil && calendar.UTCDate(*q.To).Before(calendar.UTCDate(*q.From)) {
		return repository.ReservationFilter{}, status.Error(codes.InvalidArgument, "dateFrom must not be after dateTo")
	}
	if q.MinDuration != nil && q.MaxDuration != nil && *q.MinDuration > *q.MaxDuration {
		return repository.ReservationFilter{}, status.Error(codes.InvalidArgument, "minDuration must not exceed maxDuration")
	}
	return repository.ReservationFilter{
		ComplexeID:  q.ComplexeID,
		ClientID:    q.ClientID,
		From:        q.From,
		To:          q.To,
		Status:      q.Status,
		MinDuration: q.MinDuration,
		MaxDuration: q.MaxDuration,
	}, nil
}

// Filter — постраничная выборка; все условия необязательны и объединяются через AND.
func (s *ReservationService) Filter(ctx context.Context, q ReservationQuery, page, pageSize int) (calendar.Page[ReservationView], error) {
	f, err := q.filter()
	if err != nil {
		return calendar.Page[ReservationView]{}, err
	}
	page, pageSize = calendar.Normalize(page, pageSize)
	rs, total, err := s.reservations.Filter(ctx, f, pageSize, calendar.Offset(page, pageSize))
	if err != nil {
		return calendar.Page[ReservationView]{}, internalError(ctx, s.log, "filter reservations", err)
	}
	return calendar.NewPage(toReservationViews(rs), page, pageSize, total), nil
}

func (s *ReservationService) CountAll(ctx context.Context) (int64, error) {
	n, err := s.reservations.Count(ctx, repository.ReservationFilter{})
	if err != nil {
		return 0, internalError(ctx, s.log, "count reservations", err)
	}
	return n, nil
}

func (s *ReservationService) CountByDateRange(ctx context.Context, from, to time.Time) (int64, error) {
	return s.CountFiltered(ctx, ReservationQuery{From: &from, To: &to})
}

func (s *ReservationService) CountFiltered(ctx context.Context, q ReservationQuery) (int64, error) {
	f, err := q.filter()
	if err != nil {
		return 0, err
	}
	n, err := s.reservations.Count(ctx, f)
	if err != nil {
		return 0, internalError(ctx, s.log, "count reservations", err)
	}
	return n, nil
}

// Delete физически удаляет бронь. Только для администратора.
func (s *ReservationService) Delete(ctx context.Context, actor identity.Principal, id uuid.UUID) (err error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.Delete",
		trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer func() { finishSpan(span, err) }()

	if !actor.IsAdmin() {
		return status.Error(codes.PermissionDenied, "administrator role required")
	}
	if err := s.reservations.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return status.Errorf(codes.NotFound, "reservation %s not found", id)
		}
		return internalError(ctx, s.log, "delete reservation", err)
	}

	s.log.InfoContext(ctx, "reservation deleted", "reservation_id", id, "actor", actor.Subject)
	if s.events != nil {
		s.events.Dispatch(ctx, events.Message{
			Type:           model.EventTypeReservationsDeleted,
			ReservationIDs: []uuid.UUID{id},
			Actor:          actor.Subject,
		})
	}
	return nil
}

// DeleteMany удаляет набор броней; отсутствующие id пропускаются.
func (s *ReservationService) DeleteMany(ctx context.Context, actor identity.Principal, ids []uuid.UUID) (_ int64, err error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.DeleteMany",
		trace.WithAttributes(attribute.Int("reservation.count", len(ids))))
	defer func() { finishSpan(span, err) }()

	if !actor.IsAdmin() {
		return 0, status.Error(codes.PermissionDenied, "administrator role required")
	}
	if len(ids) == 0 {
		return 0, status.Error(codes.InvalidArgument, "ids must not be empty")
	}
	n, err := s.reservations.DeleteMany(ctx, ids)
	if err != nil {
		return 0, internalError(ctx, s.log, "delete reservations", err)
	}

	s.log.InfoContext(ctx, "reservations deleted", "requested", len(ids), "deleted", n, "actor", actor.Subject)
	if s.events != nil && n > 0 {
		s.events.Dispatch(ctx, events.Message{
			Type:           model.EventTypeReservationsDeleted,
			ReservationIDs: ids,
			Actor:          actor.Subject,
		})
	}
	return n, nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"gorm.io/datatypes"

	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

// interleavedReservations выполняет between один раз: после чтения брони
// сервисом, но до записи статуса.
type interleavedReservations struct {
	repository.ReservationRepository
	between func()
}

func (r *interleavedReservations) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.ReservationStatus,
	cancelledAt *time.Time,
) error {
	if f := r.between; f != nil {
		r.between = nil
		f()
	}
	return r.ReservationRepository.UpdateStatus(ctx, id, from, to, cancelledAt)
}

func (e *testEnv) interleaved(t *testing.T, between func()) *ReservationService {
	t.Helper()
	repo := &interleavedReservations{ReservationRepository: e.reservationRepo, between: between}
	svc := NewReservationService(repo, e.terrainRepo, e.directory, e.sink, defaultBooking(), discardLogger())
	svc.now = e.reservations.now
	return svc
}

func (e *testEnv) activeOn(t *testing.T, startHour int) int {
	t.Helper()
	var n int64
	err := e.db.Model(&model.Reservation{}).
		Where("terrain_id = ? AND status <> ? AND start_time = ?",
			e.fx.Terrain.ID, model.ReservationStatusCancelled, datatypes.NewTime(startHour, 0, 0, 0)).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	return int(n)
}

func TestValidateByOwner_CancelledAndRebookedMeanwhile(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.reservations.now = func() time.Time { return day.Add(-24 * time.Hour) }
	v := e.book(t, 10, 11)

	other := identity.Principal{Subject: "kc-other", Email: "other@example.com", Roles: []model.Role{model.RoleClient}}
	svc := e.interleaved(t, func() {
		if _, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, v.ID); err != nil {
			t.Fatalf("cancel meanwhile: %v", err)
		}
		if _, err := e.reservations.Create(e.ctx, other, ReservationInput{
			TerrainID: e.fx.Terrain.ID, Date: day, StartTime: 10 * time.Hour, EndTime: 11 * time.Hour,
		}); err != nil {
			t.Fatalf("rebook meanwhile: %v", err)
		}
	})

	_, err := svc.ValidateByOwner(e.ctx, ownerPrincipal, v.ID)
	wantCode(t, err, codes.Aborted)

	if n := e.activeOn(t, 10); n != 1 {
		t.Fatalf("expected exactly one active reservation at 10:00, got %d", n)
	}
	stored, err := e.reservations.Get(e.ctx, adminPrincipal, v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != model.ReservationStatusCancelled {
		t.Fatalf("cancelled reservation revived as %s", stored.Status)
	}
}

func TestCancelByClient_ConcurrentSecondCancelConflicts(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.reservations.now = func() time.Time { return day.Add(-24 * time.Hour) }
	v := e.book(t, 10, 11)

	svc := e.interleaved(t, func() {
		if _, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, v.ID); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
	})

	_, err := svc.CancelByClient(e.ctx, clientPrincipal, v.ID)
	wantCode(t, err, codes.Aborted)

	cancelled := 0
	for _, typ := range e.sink.types() {
		if typ == model.EventTypeReservationCancelled {
			cancelled++
		}
	}
	if cancelled != 1 {
		t.Fatalf("expected one cancellation event, got %d", cancelled)
	}
}

func TestCancelByOwner_AfterConcurrentValidate(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	v := e.book(t, 10, 11)

	svc := e.interleaved(t, func() {
		if _, err := e.reservations.ValidateByOwner(e.ctx, ownerPrincipal, v.ID); err != nil {
			t.Fatalf("validate meanwhile: %v", err)
		}
	})

	// Статус прочитан как CONFIRMEE, а на момент записи уже VALIDEE.
	_, err := svc.CancelByOwner(e.ctx, ownerPrincipal, v.ID)
	wantCode(t, err, codes.Aborted)

	// Повтор с актуальным состоянием проходит.
	if _, err := e.reservations.CancelByOwner(e.ctx, ownerPrincipal, v.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

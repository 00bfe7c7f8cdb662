package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/reservaterrain/core/internal/config"
	"github.com/reservaterrain/core/internal/events"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
	"github.com/reservaterrain/core/internal/testdb"
)

// 10 июня 2025, вторник.
var day = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

var (
	clientPrincipal = identity.Principal{
		Subject: "kc-client", Email: "client@example.com", GivenName: "Jean", FamilyName: "Dupont",
		Roles: []model.Role{model.RoleClient},
	}
	ownerPrincipal = identity.Principal{
		Subject: "kc-owner", Email: "owner@example.com", GivenName: "Paul", FamilyName: "Martin",
		Roles: []model.Role{model.RoleOwner},
	}
	adminPrincipal = identity.Principal{
		Subject: "kc-admin", Email: "admin@example.com",
		Roles: []model.Role{model.RoleAdmin},
	}
)

type recordingSink struct {
	msgs []events.Message
}

func (s *recordingSink) Dispatch(_ context.Context, msg events.Message) {
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSink) types() []model.EventType {
	out := make([]model.EventType, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.Type)
	}
	return out
}

type testEnv struct {
	db  *gorm.DB
	fx  testdb.Fixture
	ctx context.Context

	reservationRepo *repository.GormReservationRepository
	terrainRepo     *repository.GormTerrainRepository
	complexeRepo    *repository.GormComplexeRepository

	directory    *DirectoryService
	reservations *ReservationService
	catalog      *CatalogService
	sink         *recordingSink
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultBooking() config.BookingConfig {
	return config.BookingConfig{
		CancellationWindow: 3 * time.Hour,
		Location:           time.UTC,
		Status:             model.ReservationStatusConfirmed,
	}
}

func newTestEnv(t *testing.T, booking config.BookingConfig) *testEnv {
	t.Helper()

	db := testdb.Open(t)
	e := &testEnv{
		db:              db,
		fx:              testdb.Seed(t, db),
		ctx:             context.Background(),
		reservationRepo: repository.NewGormReservationRepository(db),
		terrainRepo:     repository.NewGormTerrainRepository(db),
		complexeRepo:    repository.NewGormComplexeRepository(db),
		sink:            &recordingSink{},
	}
	log := discardLogger()
	e.directory = NewDirectoryService(
		repository.NewGormClientRepository(db),
		repository.NewGormOwnerRepository(db),
		log,
	)
	e.reservations = NewReservationService(e.reservationRepo, e.terrainRepo, e.directory, e.sink, booking, log)
	e.catalog = NewCatalogService(e.complexeRepo, e.terrainRepo, e.reservationRepo, e.directory, log)
	return e
}

func (e *testEnv) book(t *testing.T, startHour, endHour int) *ReservationView {
	t.Helper()
	v, err := e.reservations.Create(e.ctx, clientPrincipal, ReservationInput{
		TerrainID: e.fx.Terrain.ID,
		Date:      day,
		StartTime: time.Duration(startHour) * time.Hour,
		EndTime:   time.Duration(endHour) * time.Hour,
	})
	if err != nil {
		t.Fatalf("book %02d-%02d: %v", startHour, endHour, err)
	}
	return v
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}

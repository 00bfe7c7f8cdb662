package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reservaterrain/core/internal/cache"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

const recentReservations = 3

// OwnerDashboard — сводка по всем комплексам владельца.
type OwnerDashboard struct {
	OwnerID             uuid.UUID         `json:"ownerId"`
	TotalReservations   int64             `json:"totalReservations"`
	ActiveTerrains      int64             `json:"activeTerrains"`
	PendingReservations int64             `json:"pendingReservations"`
	Revenue             decimal.Decimal   `json:"revenue"`
	ComplexeCount       int64             `json:"complexeCount"`
	Recent              []ReservationView `json:"recentReservations"`
}

type DashboardService struct {
	reservations repository.ReservationRepository
	terrains     repository.TerrainRepository
	complexes    repository.ComplexeRepository
	directory    *DirectoryService
	cache        cache.Cache
	log          *slog.Logger
}

func NewDashboardService(
	reservations repository.ReservationRepository,
	terrains repository.TerrainRepository,
	complexes repository.ComplexeRepository,
	directory *DirectoryService,
	c cache.Cache,
	log *slog.Logger,
) *DashboardService {
	if c == nil {
		c = cache.Noop{}
	}
	return &DashboardService{
		reservations: reservations,
		terrains:     terrains,
		complexes:    complexes,
		directory:    directory,
		cache:        c,
		log:          log,
	}
}

func dashboardKey(ownerID uuid.UUID) string {
	return "dashboard:owner:" + ownerID.String()
}

// OwnerStats считает сводку или берёт её из кэша. Ошибки кэша не
// мешают ответу.
func (s *DashboardService) OwnerStats(ctx context.Context, actor identity.Principal) (*OwnerDashboard, error) {
	owner, err := s.directory.ResolveOwner(ctx, actor)
	if err != nil {
		return nil, err
	}

	key := dashboardKey(owner.ID)
	var cached OwnerDashboard
	ok, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.WarnContext(ctx, "dashboard cache read", "owner_id", owner.ID, "err", err)
	}
	if ok {
		return &cached, nil
	}

	stats, err := s.reservations.OwnerStats(ctx, owner.ID)
	if err != nil {
		return nil, internalError(ctx, s.log, "owner reservation stats", err)
	}
	active, err := s.terrains.CountByOwnerAndStatus(ctx, owner.ID, model.TerrainStatusOpen)
	if err != nil {
		return nil, internalError(ctx, s.log, "count owner terrains", err)
	}
	complexes, err := s.complexes.CountByOwner(ctx, owner.ID)
	if err != nil {
		return nil, internalError(ctx, s.log, "count owner complexes", err)
	}
	recent, err := s.reservations.RecentForOwner(ctx, owner.ID, recentReservations)
	if err != nil {
		return nil, internalError(ctx, s.log, "recent owner reservations", err)
	}

	out := &OwnerDashboard{
		OwnerID:             owner.ID,
		TotalReservations:   stats.Total,
		ActiveTerrains:      active,
		PendingReservations: stats.Pending,
		Revenue:             stats.Revenue,
		ComplexeCount:       complexes,
		Recent:              toReservationViews(recent),
	}
	if err := s.cache.SetJSON(ctx, key, out); err != nil {
		s.log.WarnContext(ctx, "dashboard cache write", "owner_id", owner.ID, "err", err)
	}
	return out, nil
}

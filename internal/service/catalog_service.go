package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

// CatalogService — комплексы и террены: каталог для клиентов и
// управление для владельцев.
type CatalogService struct {
	complexes    repository.ComplexeRepository
	terrains     repository.TerrainRepository
	reservations repository.ReservationRepository
	directory    *DirectoryService
	log          *slog.Logger
}

func NewCatalogService(
	complexes repository.ComplexeRepository,
	terrains repository.TerrainRepository,
	reservations repository.ReservationRepository,
	directory *DirectoryService,
	log *slog.Logger,
) *CatalogService {
	return &CatalogService{
		complexes:    complexes,
		terrains:     terrains,
		reservations: reservations,
		directory:    directory,
		log:          log,
	}
}

type ComplexeInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=255"`
	Address string `json:"address" validate:"required,max=255"`
}

// TerrainInput — полный набор полей террена. Часы работы [OpenHour, CloseHour).
type TerrainInput struct {
	Name        string              `json:"name" validate:"required,max=255"`
	Price       decimal.Decimal     `json:"price"`
	OpenHour    int                 `json:"openHour" validate:"min=0,max=23"`
	CloseHour   int                 `json:"closeHour" validate:"min=1,max=24,gtfield=OpenHour"`
	SlotMinutes int                 `json:"slotMinutes" validate:"omitempty,min=15,max=480"`
	Status      model.TerrainStatus `json:"status" validate:"omitempty,oneof=OUVERT FERME"`
}

// TerrainPatch — частичное изменение террена, nil = без изменений.
type TerrainPatch struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	OpenHour    *int             `json:"openHour"`
	CloseHour   *int             `json:"closeHour"`
	SlotMinutes *int             `json:"slotMinutes"`
}

func (in *TerrainInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return validationError(err)
	}
	if in.Price.IsNegative() {
		return status.Error(codes.InvalidArgument, "price must not be negative")
	}
	return nil
}

func (s *CatalogService) complexe(ctx context.Context, id uuid.UUID) (*model.Complexe, error) {
	c, err := s.complexes.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, status.Errorf(codes.NotFound, "complexe %s not found", id)
	}
	if err != nil {
		return nil, internalError(ctx, s.log, "load complexe", err)
	}
	return c, nil
}

func (s *CatalogService) terrain(ctx context.Context, id uuid.UUID) (*model.Terrain, error) {
	t, err := s.terrains.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, status.Errorf(codes.NotFound, "terrain %s not found", id)
	}
	if err != nil {
		return nil, internalError(ctx, s.log, "load terrain", err)
	}
	return t, nil
}

// ownComplexe загружает комплекс и проверяет, что он принадлежит владельцу из токена.
func (s *CatalogService) ownComplexe(ctx context.Context, actor identity.Principal, id uuid.UUID) (*model.Owner, *model.Complexe, error) {
	owner, err := s.directory.ResolveOwner(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.complexe(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c.OwnerID != owner.ID {
		return nil, nil, status.Error(codes.PermissionDenied, "complexe does not belong to you")
	}
	return owner, c, nil
}

func (s *CatalogService) ownTerrain(ctx context.Context, actor identity.Principal, id uuid.UUID) (*model.Terrain, error) {
	owner, err := s.directory.ResolveOwner(ctx, actor)
	if err != nil {
		return nil, err
	}
	t, err := s.terrain(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Complexe == nil || t.Complexe.OwnerID != owner.ID {
		return nil, status.Error(codes.PermissionDenied, "terrain does not belong to your complexes")
	}
	return t, nil
}

func (s *CatalogService) GetTerrain(ctx context.Context, id uuid.UUID) (*TerrainView, error) {
	t, err := s.terrain(ctx, id)
	if err != nil {
		return nil, err
	}
	v := toTerrainView(t)
	return &v, nil
}

func (s *CatalogService) ListTerrainsByComplexe(ctx context.Context, complexeID uuid.UUID) ([]TerrainView, error) {
	c, err := s.complexe(ctx, complexeID)
	if err != nil {
		return nil, err
	}
	ts, err := s.terrains.ListByComplexe(ctx, complexeID)
	if err != nil {
		return nil, internalError(ctx, s.log, "list terrains", err)
	}
	out := make([]TerrainView, 0, len(ts))
	for i := range ts {
		ts[i].Complexe = c
		out = append(out, toTerrainView(&ts[i]))
	}
	return out, nil
}

func (s *CatalogService) CreateTerrain(ctx context.Context, actor identity.Principal, complexeID uuid.UUID, in TerrainInput) (*TerrainView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	_, c, err := s.ownComplexe(ctx, actor, complexeID)
	if err != nil {
		return nil, err
	}

	t := &model.Terrain{
		ComplexeID:  c.ID,
		Name:        in.Name,
		Price:       in.Price,
		OpenHour:    in.OpenHour,
		CloseHour:   in.CloseHour,
		SlotMinutes: in.SlotMinutes,
		Status:      in.Status,
	}
	if t.SlotMinutes == 0 {
		t.SlotMinutes = model.DefaultSlotMinutes
	}
	if t.Status == "" {
		t.Status = model.TerrainStatusOpen
	}
	if err := s.terrains.Create(ctx, t); err != nil {
		return nil, internalError(ctx, s.log, "create terrain", err)
	}

	t.Complexe = c
	s.log.InfoContext(ctx, "terrain created", "terrain_id", t.ID, "complexe_id", c.ID)
	v := toTerrainView(t)
	return &v, nil
}

// UpdateTerrain накладывает patch на текущий террен и проверяет результат целиком.
func (s *CatalogService) UpdateTerrain(ctx context.Context, actor identity.Principal, id uuid.UUID, patch TerrainPatch) (*TerrainView, error) {
	t, err := s.ownTerrain(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	in := TerrainInput{
		Name:        t.Name,
		Price:       t.Price,
		OpenHour:    t.OpenHour,
		CloseHour:   t.CloseHour,
		SlotMinutes: t.SlotMinutes,
		Status:      t.Status,
	}
	if patch.Name != nil {
		in.Name = *patch.Name
	}
	if patch.Price != nil {
		in.Price = *patch.Price
	}
	if patch.OpenHour != nil {
		in.OpenHour = *patch.OpenHour
	}
	if patch.CloseHour != nil {
		in.CloseHour = *patch.CloseHour
	}
	if patch.SlotMinutes != nil {
		in.SlotMinutes = *patch.SlotMinutes
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	t.Name = in.Name
	t.Price = in.Price
	t.OpenHour = in.OpenHour
	t.CloseHour = in.CloseHour
	if in.SlotMinutes > 0 {
		t.SlotMinutes = in.SlotMinutes
	}
	if err := s.terrains.Update(ctx, t); err != nil {
		return nil, internalError(ctx, s.log, "update terrain", err)
	}

	s.log.InfoContext(ctx, "terrain updated", "terrain_id", t.ID)
	v := toTerrainView(t)
	return &v, nil
}

func (s *CatalogService) SetTerrainStatus(ctx context.Context, actor identity.Principal, id uuid.UUID, st model.TerrainStatus) (*TerrainView, error) {
	if st != model.TerrainStatusOpen && st != model.TerrainStatusClosed {
		return nil, status.Errorf(codes.InvalidArgument, "unknown terrain status %q", st)
	}
	t, err := s.ownTerrain(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.terrains.UpdateStatus(ctx, id, st); err != nil {
		if repository.IsNotFound(err) {
			return nil, status.Errorf(codes.NotFound, "terrain %s not found", id)
		}
		return nil, internalError(ctx, s.log, "update terrain status", err)
	}

	s.log.InfoContext(ctx, "terrain status changed", "terrain_id", id, "from", t.Status, "to", st)
	t.Status = st
	v := toTerrainView(t)
	return &v, nil
}

func (s *CatalogService) CountActiveTerrains(ctx context.Context) (int64, error) {
	n, err := s.terrains.CountByStatus(ctx, model.TerrainStatusOpen)
	if err != nil {
		return 0, internalError(ctx, s.log, "count terrains", err)
	}
	return n, nil
}

func (s *CatalogService) CreateComplexe(ctx context.Context, actor identity.Principal, in ComplexeInput) (*ComplexeView, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	in.Address = strings.TrimSpace(in.Address)
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	owner, err := s.directory.ResolveOwner(ctx, actor)
	if err != nil {
		return nil, err
	}

	c := &model.Complexe{
		OwnerID: owner.ID,
		Name:    in.Name,
		City:    in.City,
		Address: in.Address,
	}
	if err := s.complexes.Create(ctx, c); err != nil {
		return nil, internalError(ctx, s.log, "create complexe", err)
	}

	s.log.InfoContext(ctx, "complexe created", "complexe_id", c.ID, "owner_id", owner.ID)
	v := toComplexeView(c)
	return &v, nil
}

// ListMyComplexes — комплексы владельца вместе с терренами.
func (s *CatalogService) ListMyComplexes(ctx context.Context, actor identity.Principal) ([]ComplexeView, error) {
	owner, err := s.directory.ResolveOwner(ctx, actor)
	if err != nil {
		return nil, err
	}
	cs, err := s.complexes.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, internalError(ctx, s.log, "list owner complexes", err)
	}
	out := make([]ComplexeView, 0, len(cs))
	for i := range cs {
		out = append(out, toComplexeView(&cs[i]))
	}
	return out, nil
}

// ListComplexes — публичный каталог, city фильтрует без учёта регистра.
func (s *CatalogService) ListComplexes(ctx context.Context, city string, page, pageSize int) (calendar.Page[ComplexeView], error) {
	page, pageSize = calendar.Normalize(page, pageSize)
	cs, total, err := s.complexes.List(ctx, strings.TrimSpace(city), pageSize, calendar.Offset(page, pageSize))
	if err != nil {
		return calendar.Page[ComplexeView]{}, internalError(ctx, s.log, "list complexes", err)
	}
	out := make([]ComplexeView, 0, len(cs))
	for i := range cs {
		out = append(out, toComplexeView(&cs[i]))
	}
	return calendar.NewPage(out, page, pageSize, total), nil
}

// DeleteComplexe удаляет комплекс владельца вместе с терренами. Если на
// терренах есть брони, удаление запрещено.
func (s *CatalogService) DeleteComplexe(ctx context.Context, actor identity.Principal, id uuid.UUID) error {
	if _, _, err := s.ownComplexe(ctx, actor, id); err != nil {
		return err
	}
	if err := s.complexes.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrInUse):
			return status.Error(codes.Aborted, "complexe has reservations and cannot be deleted")
		case repository.IsNotFound(err):
			return status.Errorf(codes.NotFound, "complexe %s not found", id)
		default:
			return internalError(ctx, s.log, "delete complexe", err)
		}
	}
	s.log.InfoContext(ctx, "complexe deleted", "complexe_id", id, "actor", actor.Subject)
	return nil
}

type SlotView struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
	Label     string `json:"label"`
}

type AvailabilityView struct {
	TerrainID uuid.UUID           `json:"terrainId"`
	Date      string              `json:"date"`
	Status    model.TerrainStatus `json:"status"`
	Slots     []SlotView          `json:"slots"`
}

// Availability делит часы работы на слоты и отмечает занятые активными
// бронями. У закрытого террена свободных слотов нет.
func (s *CatalogService) Availability(ctx context.Context, terrainID uuid.UUID, date time.Time) (*AvailabilityView, error) {
	if date.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	t, err := s.terrain(ctx, terrainID)
	if err != nil {
		return nil, err
	}
	day := calendar.UTCDate(date)

	opening := calendar.OnDay(day, time.Duration(t.OpenHour)*time.Hour, time.Duration(t.CloseHour)*time.Hour)
	slots, err := calendar.SplitToTimeSlots(opening, t.SlotDuration())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rs, err := s.reservations.ListByTerrainAndDate(ctx, terrainID, day)
	if err != nil {
		return nil, internalError(ctx, s.log, "list reservations for availability", err)
	}
	booked := make([]calendar.TimeRange, 0, len(rs))
	for i := range rs {
		if !rs[i].Status.Active() {
			continue
		}
		booked = append(booked, calendar.OnDay(day, time.Duration(rs[i].StartTime), time.Duration(rs[i].EndTime)))
	}

	out := &AvailabilityView{
		TerrainID: t.ID,
		Date:      day.Format(time.DateOnly),
		Status:    t.Status,
		Slots:     make([]SlotView, 0, len(slots)),
	}
	for _, slot := range slots {
		taken, _ := calendar.HasOverlap(slot, booked, false)
		out.Slots = append(out.Slots, SlotView{
			StartTime: calendar.FormatClock(slot.Start.Sub(day)),
			EndTime:   calendar.FormatClock(slot.End.Sub(day)),
			Available: t.Status == model.TerrainStatusOpen && !taken,
			Label:     calendar.FormatSlotForUser(slot),
		})
	}
	return out, nil
}

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

// AnnonceService — объявления клиентов о поиске игроков.
type AnnonceService struct {
	annonces  repository.AnnonceRepository
	terrains  repository.TerrainRepository
	directory *DirectoryService
	log       *slog.Logger
}

func NewAnnonceService(
	annonces repository.AnnonceRepository,
	terrains repository.TerrainRepository,
	directory *DirectoryService,
	log *slog.Logger,
) *AnnonceService {
	return &AnnonceService{
		annonces:  annonces,
		terrains:  terrains,
		directory: directory,
		log:       log,
	}
}

type AnnonceInput struct {
	TerrainID   uuid.UUID `validate:"required"`
	PlayerCount int       `validate:"min=1,max=30"`
}

// AnnonceQuery: city без учёта регистра, условия объединяются через AND.
type AnnonceQuery struct {
	City      string
	TerrainID *uuid.UUID
}

func (s *AnnonceService) terrain(ctx context.Context, id uuid.UUID) (*model.Terrain, error) {
	t, err := s.terrains.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, status.Errorf(codes.NotFound, "terrain %s not found", id)
	}
	if err != nil {
		return nil, internalError(ctx, s.log, "load terrain", err)
	}
	return t, nil
}

// Create публикует объявление от имени клиента из токена.
func (s *AnnonceService) Create(ctx context.Context, actor identity.Principal, in AnnonceInput) (*AnnonceView, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	t, err := s.terrain(ctx, in.TerrainID)
	if err != nil {
		return nil, err
	}
	client, err := s.directory.ResolveClient(ctx, actor)
	if err != nil {
		return nil, err
	}

	a := &model.Annonce{
		ClientID:    client.ID,
		TerrainID:   t.ID,
		PlayerCount: in.PlayerCount,
	}
	if err := s.annonces.Create(ctx, a); err != nil {
		return nil, internalError(ctx, s.log, "create annonce", err)
	}

	a.Client = client
	a.Terrain = t
	s.log.InfoContext(ctx, "annonce created", "annonce_id", a.ID, "terrain_id", t.ID, "client_id", client.ID)
	v := toAnnonceView(a)
	return &v, nil
}

func (s *AnnonceService) List(ctx context.Context, q AnnonceQuery, page, pageSize int) (calendar.Page[AnnonceView], error) {
	if q.TerrainID != nil {
		if _, err := s.terrain(ctx, *q.TerrainID); err != nil {
			return calendar.Page[AnnonceView]{}, err
		}
	}
	page, pageSize = calendar.Normalize(page, pageSize)
	f := repository.AnnonceFilter{City: strings.TrimSpace(q.City), TerrainID: q.TerrainID}
	as, total, err := s.annonces.List(ctx, f, pageSize, calendar.Offset(page, pageSize))
	if err != nil {
		return calendar.Page[AnnonceView]{}, internalError(ctx, s.log, "list annonces", err)
	}
	out := make([]AnnonceView, 0, len(as))
	for i := range as {
		out = append(out, toAnnonceView(&as[i]))
	}
	return calendar.NewPage(out, page, pageSize, total), nil
}

// Delete снимает объявление. Разрешено автору и администратору.
func (s *AnnonceService) Delete(ctx context.Context, actor identity.Principal, id uuid.UUID) error {
	a, err := s.annonces.GetByID(ctx, id)
	if err != nil && !repository.IsNotFound(err) {
		return internalError(ctx, s.log, "load annonce", err)
	}
	if !actor.IsAdmin() {
		if err != nil || a.Client == nil || a.Client.SubjectValue() != actor.Subject {
			return status.Error(codes.PermissionDenied, "you can only remove your own annonces")
		}
	} else if err != nil {
		return status.Errorf(codes.NotFound, "annonce %s not found", id)
	}

	if err := s.annonces.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return status.Errorf(codes.NotFound, "annonce %s not found", id)
		}
		return internalError(ctx, s.log, "delete annonce", err)
	}
	s.log.InfoContext(ctx, "annonce deleted", "annonce_id", id, "actor", actor.Subject)
	return nil
}

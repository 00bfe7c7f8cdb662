package service

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dbutil "github.com/reservaterrain/core/internal/db"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

// DirectoryService сопоставляет проверенный токен с локальными
// записями клиентов и владельцев, создавая их при первом входе.
type DirectoryService struct {
	clients repository.ClientRepository
	owners  repository.OwnerRepository
	log     *slog.Logger
}

func NewDirectoryService(
	clients repository.ClientRepository,
	owners repository.OwnerRepository,
	log *slog.Logger,
) *DirectoryService {
	return &DirectoryService{clients: clients, owners: owners, log: log}
}

// ProfileUpdate — изменяемые поля профиля клиента, nil = без изменений.
type ProfileUpdate struct {
	FamilyName *string `json:"familyName" validate:"omitempty,max=255"`
	GivenName  *string `json:"givenName" validate:"omitempty,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
}

func personFromPrincipal(p identity.Principal) model.Person {
	sub := p.Subject
	return model.Person{
		Subject:    &sub,
		Email:      p.Email,
		FamilyName: p.FamilyName,
		GivenName:  p.GivenName,
	}
}

// ResolveClient возвращает клиента для токена: по subject, затем по
// email (с привязкой subject), иначе создаёт запись.
func (s *DirectoryService) ResolveClient(ctx context.Context, p identity.Principal) (*model.Client, error) {
	if err := identity.ValidatePrincipal(p); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	if p.Email == "" {
		// Без email завести запись нельзя, остаётся только поиск.
		c, err := s.clients.GetBySubject(ctx, p.Subject)
		if repository.IsNotFound(err) {
			return nil, status.Error(codes.NotFound, "client not found")
		}
		if err != nil {
			return nil, internalError(ctx, s.log, "resolve client", err)
		}
		return c, nil
	}

	c, created, err := s.clients.Ensure(ctx, personFromPrincipal(p))
	if err != nil {
		return nil, s.resolveError(ctx, "resolve client", err)
	}
	if created {
		s.log.InfoContext(ctx, "client provisioned", "client_id", c.ID, "subject", p.Subject)
	}
	return c, nil
}

// ResolveOwner — то же для владельцев; требует роль OWNER.
func (s *DirectoryService) ResolveOwner(ctx context.Context, p identity.Principal) (*model.Owner, error) {
	if err := identity.ValidatePrincipal(p); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	if !p.HasRole(model.RoleOwner) {
		return nil, status.Error(codes.PermissionDenied, "owner role required")
	}
	if p.Email == "" {
		o, err := s.owners.GetBySubject(ctx, p.Subject)
		if repository.IsNotFound(err) {
			return nil, status.Error(codes.NotFound, "owner not found")
		}
		if err != nil {
			return nil, internalError(ctx, s.log, "resolve owner", err)
		}
		return o, nil
	}

	o, created, err := s.owners.Ensure(ctx, personFromPrincipal(p))
	if err != nil {
		return nil, s.resolveError(ctx, "resolve owner", err)
	}
	if created {
		s.log.InfoContext(ctx, "owner provisioned", "owner_id", o.ID, "subject", p.Subject)
	}
	return o, nil
}

func (s *DirectoryService) resolveError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrSubjectMismatch):
		return status.Error(codes.Aborted, "email is already linked to another account")
	case repository.IsNotFound(err):
		return status.Error(codes.NotFound, "account not found")
	default:
		return internalError(ctx, s.log, op, err)
	}
}

// Profile — профиль текущего клиента.
func (s *DirectoryService) Profile(ctx context.Context, p identity.Principal) (*ClientProfile, error) {
	c, err := s.ResolveClient(ctx, p)
	if err != nil {
		return nil, err
	}
	return toClientProfile(c), nil
}

// UpdateProfile меняет имя и телефон клиента. Email и subject
// принадлежат провайдеру идентификации и здесь не меняются.
func (s *DirectoryService) UpdateProfile(ctx context.Context, p identity.Principal, in ProfileUpdate) (*ClientProfile, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	c, err := s.ResolveClient(ctx, p)
	if err != nil {
		return nil, err
	}

	updated, err := s.clients.UpdateContacts(ctx, c.ID, repository.ContactsUpdate{
		FamilyName: in.FamilyName,
		GivenName:  in.GivenName,
		Phone:      in.Phone,
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, status.Error(codes.Aborted, "phone number is already used by another account")
		}
		return nil, internalError(ctx, s.log, "update profile", err)
	}
	return toClientProfile(updated), nil
}

package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/reservaterrain/core/internal/model"
)

var (
	ErrMissingSubject = errors.New("principal has no subject")
	ErrMissingEmail   = errors.New("principal has no email")
)

// Principal — проверенная личность из токена. Источник истины —
// провайдер идентификации, здесь только извлечённые поля.
type Principal struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Roles      []model.Role
}

func (p Principal) HasRole(role model.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole — хотя бы одна из перечисленных ролей.
func (p Principal) HasAnyRole(roles ...model.Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool { return p.HasRole(model.RoleAdmin) }

// ValidatePrincipal проверяет поля, без которых нельзя сопоставить
// токен с локальной записью.
func ValidatePrincipal(p Principal) error {
	if strings.TrimSpace(p.Subject) == "" {
		return ErrMissingSubject
	}
	return nil
}

// ValidateForProvisioning дополнительно требует email: по нему
// находится запись, созданная до первого входа.
func ValidateForProvisioning(p Principal) error {
	if err := ValidatePrincipal(p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext достаёт принципала, положенного middleware аутентификации.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

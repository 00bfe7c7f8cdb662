package model

import "strings"

// Role — роль из realm_access.roles токена. В базе роли не хранятся:
// источник истины — провайдер идентификации.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole нормализует строку роли. Неизвестные роли возвращают ok=false.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(raw, "ROLE_"))))
	switch r {
	case RoleClient, RoleOwner, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

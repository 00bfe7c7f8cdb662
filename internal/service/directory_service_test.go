package service

import (
	"strings"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
)

func TestResolveClient_BackfillsSubjectByEmail(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	pre := model.Client{Person: model.Person{Email: "pre@example.com", FamilyName: "Alaoui"}}
	if err := e.db.Create(&pre).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	p := identity.Principal{Subject: "kc-pre", Email: "pre@example.com", Roles: []model.Role{model.RoleClient}}
	c, err := e.directory.ResolveClient(e.ctx, p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.ID != pre.ID {
		t.Fatalf("expected existing record %s, got %s", pre.ID, c.ID)
	}
	if c.Subject == nil || *c.Subject != "kc-pre" {
		t.Fatalf("subject not attached: %v", c.Subject)
	}

	// Второй вход находит запись уже по subject, даже без email в токене.
	again, err := e.directory.ResolveClient(e.ctx, identity.Principal{Subject: "kc-pre"})
	if err != nil {
		t.Fatalf("resolve by subject: %v", err)
	}
	if again.ID != pre.ID {
		t.Fatalf("resolved a different record")
	}
}

func TestResolveClient_Errors(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	_, err := e.directory.ResolveClient(e.ctx, identity.Principal{Email: "x@example.com"})
	wantCode(t, err, codes.Unauthenticated)

	_, err = e.directory.ResolveClient(e.ctx, identity.Principal{Subject: "kc-ghost"})
	wantCode(t, err, codes.NotFound)

	intruder := identity.Principal{Subject: "kc-intruder", Email: "client@example.com"}
	_, err = e.directory.ResolveClient(e.ctx, intruder)
	wantCode(t, err, codes.Aborted)
}

func TestResolveOwner_RequiresRole(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	_, err := e.directory.ResolveOwner(e.ctx, clientPrincipal)
	wantCode(t, err, codes.PermissionDenied)

	o, err := e.directory.ResolveOwner(e.ctx, ownerPrincipal)
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if o.ID != e.fx.Owner.ID {
		t.Fatalf("resolved owner %s, want %s", o.ID, e.fx.Owner.ID)
	}
}

func TestUpdateProfile(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	phone := "+212 600-000-001"
	given := "Jean-Marc"
	got, err := e.directory.UpdateProfile(e.ctx, clientPrincipal, ProfileUpdate{GivenName: &given, Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.GivenName != "Jean-Marc" || got.FamilyName != "Dupont" {
		t.Fatalf("unexpected names: %+v", got)
	}
	if got.Phone == nil || *got.Phone != "+212600000001" {
		t.Fatalf("phone = %v", got.Phone)
	}

	other := identity.Principal{Subject: "kc-other", Email: "other@example.com", Roles: []model.Role{model.RoleClient}}
	_, err = e.directory.UpdateProfile(e.ctx, other, ProfileUpdate{Phone: &phone})
	wantCode(t, err, codes.Aborted)

	long := strings.Repeat("x", 300)
	_, err = e.directory.UpdateProfile(e.ctx, clientPrincipal, ProfileUpdate{FamilyName: &long})
	wantCode(t, err, codes.InvalidArgument)

	profile, err := e.directory.Profile(e.ctx, clientPrincipal)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Email != "client@example.com" || profile.GivenName != "Jean-Marc" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

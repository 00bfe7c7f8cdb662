package service

import (
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/repository"
)

func (e *testEnv) annonceService() *AnnonceService {
	return NewAnnonceService(repository.NewGormAnnonceRepository(e.db), e.terrainRepo, e.directory, discardLogger())
}

func TestAnnonceCreate(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	svc := e.annonceService()

	v, err := svc.Create(e.ctx, clientPrincipal, AnnonceInput{TerrainID: e.fx.Terrain.ID, PlayerCount: 3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.ClientID != e.fx.Client.ID || v.ClientName != "Dupont Jean" {
		t.Fatalf("unexpected author: %+v", v)
	}
	if v.TerrainName != "Terrain A" || v.ComplexeName != "Arena" || v.City != "Casablanca" || v.PlayerCount != 3 {
		t.Fatalf("unexpected annonce: %+v", v)
	}
	if v.PostedAt.IsZero() {
		t.Fatal("publication date must be set")
	}

	_, err = svc.Create(e.ctx, clientPrincipal, AnnonceInput{TerrainID: e.fx.Terrain.ID, PlayerCount: 0})
	wantCode(t, err, codes.InvalidArgument)

	_, err = svc.Create(e.ctx, clientPrincipal, AnnonceInput{TerrainID: uuid.New(), PlayerCount: 2})
	wantCode(t, err, codes.NotFound)
}

func TestAnnonceList_CityAndTerrain(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	svc := e.annonceService()

	if _, err := svc.Create(e.ctx, clientPrincipal, AnnonceInput{TerrainID: e.fx.Terrain.ID, PlayerCount: 2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	page, err := svc.List(e.ctx, AnnonceQuery{City: "  CASABLANCA "}, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || page.Items[0].City != "Casablanca" {
		t.Fatalf("unexpected page: %+v", page)
	}

	page, _ = svc.List(e.ctx, AnnonceQuery{City: "Rabat"}, 1, 10)
	if page.Total != 0 {
		t.Fatalf("rabat total = %d", page.Total)
	}

	page, _ = svc.List(e.ctx, AnnonceQuery{TerrainID: &e.fx.Terrain.ID}, 1, 10)
	if page.Total != 1 {
		t.Fatalf("terrain total = %d", page.Total)
	}

	missing := uuid.New()
	_, err = svc.List(e.ctx, AnnonceQuery{TerrainID: &missing}, 1, 10)
	wantCode(t, err, codes.NotFound)
}

func TestAnnonceDelete_AuthorOrAdmin(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	svc := e.annonceService()

	stranger := identity.Principal{Subject: "kc-other", Email: "other@example.com", Roles: []model.Role{model.RoleClient}}

	first, err := svc.Create(e.ctx, clientPrincipal, AnnonceInput{TerrainID: e.fx.Terrain.ID, PlayerCount: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(e.ctx, clientPrincipal, AnnonceInput{TerrainID: e.fx.Terrain.ID, PlayerCount: 5})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	wantCode(t, svc.Delete(e.ctx, stranger, first.ID), codes.PermissionDenied)
	wantCode(t, svc.Delete(e.ctx, stranger, uuid.New()), codes.PermissionDenied)

	if err := svc.Delete(e.ctx, clientPrincipal, first.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := svc.Delete(e.ctx, adminPrincipal, second.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	wantCode(t, svc.Delete(e.ctx, adminPrincipal, second.ID), codes.NotFound)

	page, _ := svc.List(e.ctx, AnnonceQuery{}, 1, 10)
	if page.Total != 0 {
		t.Fatalf("total after delete = %d", page.Total)
	}
}

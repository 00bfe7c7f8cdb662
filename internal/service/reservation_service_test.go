package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
)

func TestCreate_BooksFreeSlot(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	v := e.book(t, 10, 12)

	if v.Status != model.ReservationStatusConfirmed {
		t.Fatalf("status = %s", v.Status)
	}
	if v.DurationMinutes != 120 {
		t.Fatalf("duration = %d, want 120", v.DurationMinutes)
	}
	if v.Date != "2025-06-10" || v.StartTime != "10:00" || v.EndTime != "12:00" {
		t.Fatalf("unexpected interval %s %s-%s", v.Date, v.StartTime, v.EndTime)
	}
	if v.ClientID != e.fx.Client.ID || v.TerrainName != "Terrain A" || v.ComplexeName != "Arena" {
		t.Fatalf("unexpected relations: %+v", v)
	}
	if v.Price.String() != "150" {
		t.Fatalf("price = %s", v.Price)
	}
	if v.Label != "Mardi, 10/06/2025, 10:00–12:00" {
		t.Fatalf("label = %q", v.Label)
	}
	if got := e.sink.types(); len(got) != 1 || got[0] != model.EventTypeReservationCreated {
		t.Fatalf("events = %v", got)
	}

	stored, err := e.reservations.Get(e.ctx, clientPrincipal, v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.StartTime != "10:00" || stored.EndTime != "12:00" || stored.DurationMinutes != 120 {
		t.Fatalf("stored interval differs: %+v", stored)
	}
}

func TestCreate_RejectsOverlapAcceptsTouching(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.book(t, 10, 12)

	_, err := e.reservations.Create(e.ctx, clientPrincipal, ReservationInput{
		TerrainID: e.fx.Terrain.ID, Date: day, StartTime: 11 * time.Hour, EndTime: 13 * time.Hour,
	})
	wantCode(t, err, codes.Aborted)

	e.book(t, 12, 13)
	e.book(t, 9, 10)

	n, err := e.reservations.CountAll(e.ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestCreate_InvalidInterval(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	cases := []struct {
		start, end time.Duration
	}{
		{10 * time.Hour, 10 * time.Hour},
		{12 * time.Hour, 10 * time.Hour},
		{7 * time.Hour, 9 * time.Hour},
		{21 * time.Hour, 23 * time.Hour},
	}
	for _, c := range cases {
		_, err := e.reservations.Create(e.ctx, clientPrincipal, ReservationInput{
			TerrainID: e.fx.Terrain.ID, Date: day, StartTime: c.start, EndTime: c.end,
		})
		wantCode(t, err, codes.InvalidArgument)
	}
	if len(e.sink.msgs) != 0 {
		t.Fatalf("no events expected, got %d", len(e.sink.msgs))
	}
}

func TestCreate_OpeningHourBoundaries(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	e.book(t, 8, 9)
	e.book(t, 21, 22)
}

func TestCreate_UnknownTerrain(t *testing.T) {
	e := newTestEnv(t, defaultBooking())

	_, err := e.reservations.Create(e.ctx, clientPrincipal, ReservationInput{
		TerrainID: uuid.New(), Date: day, StartTime: 10 * time.Hour, EndTime: 11 * time.Hour,
	})
	wantCode(t, err, codes.NotFound)
}

func TestCreate_InitialStatusFromConfig(t *testing.T) {
	booking := defaultBooking()
	booking.Status = model.ReservationStatusPending
	e := newTestEnv(t, booking)

	v := e.book(t, 10, 11)
	if v.Status != model.ReservationStatusPending {
		t.Fatalf("status = %s, want EN_ATTENTE", v.Status)
	}

	// Бронь в ожидании тоже занимает интервал.
	_, err := e.reservations.Create(e.ctx, clientPrincipal, ReservationInput{
		TerrainID: e.fx.Terrain.ID, Date: day, StartTime: 10 * time.Hour, EndTime: 11 * time.Hour,
	})
	wantCode(t, err, codes.Aborted)
}

func TestCreate_ProvisionsUnknownClient(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	newcomer := identity.Principal{
		Subject: "kc-new", Email: "new@example.com", GivenName: "Ali", Roles: []model.Role{model.RoleClient},
	}

	v, err := e.reservations.Create(e.ctx, newcomer, ReservationInput{
		TerrainID: e.fx.Terrain.ID, Date: day, StartTime: 10 * time.Hour, EndTime: 11 * time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ClientID == e.fx.Client.ID {
		t.Fatalf("expected a new client record")
	}
	if v.ClientEmail != "new@example.com" {
		t.Fatalf("client email = %q", v.ClientEmail)
	}
}

func TestCancelByClient_Window(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.reservations.now = func() time.Time { return day.Add(8 * time.Hour) }

	twoHours := e.book(t, 10, 11)
	threeHours := e.book(t, 11, 12)
	fourHours := e.book(t, 12, 13)

	_, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, twoHours.ID)
	wantCode(t, err, codes.Aborted)

	v, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, threeHours.ID)
	if err != nil {
		t.Fatalf("cancel exactly at window: %v", err)
	}
	if v.Status != model.ReservationStatusCancelled || v.CancelledAt == nil {
		t.Fatalf("unexpected view after cancel: %+v", v)
	}

	if _, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, fourHours.ID); err != nil {
		t.Fatalf("cancel 4h ahead: %v", err)
	}

	_, err = e.reservations.CancelByClient(e.ctx, clientPrincipal, fourHours.ID)
	wantCode(t, err, codes.Aborted)

	stored, err := e.reservations.Get(e.ctx, clientPrincipal, threeHours.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != model.ReservationStatusCancelled || stored.CancelledAt == nil {
		t.Fatalf("cancellation not persisted: %+v", stored)
	}
}

func TestCancelByClient_UsesBookingTimeZone(t *testing.T) {
	booking := defaultBooking()
	booking.Location = time.FixedZone("UTC+1", 3600)
	e := newTestEnv(t, booking)

	// 11:00 по местному времени = 10:00 UTC.
	v := e.book(t, 11, 12)

	e.reservations.now = func() time.Time { return day.Add(7*time.Hour + 30*time.Minute) }
	_, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, v.ID)
	wantCode(t, err, codes.Aborted)

	e.reservations.now = func() time.Time { return day.Add(7 * time.Hour) }
	if _, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, v.ID); err != nil {
		t.Fatalf("cancel 3h before local start: %v", err)
	}
}

func TestCancelByClient_OnlyOwnReservations(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.reservations.now = func() time.Time { return day.Add(-24 * time.Hour) }
	v := e.book(t, 10, 11)

	stranger := identity.Principal{Subject: "kc-other", Email: "other@example.com", Roles: []model.Role{model.RoleClient}}
	_, err := e.reservations.CancelByClient(e.ctx, stranger, v.ID)
	wantCode(t, err, codes.PermissionDenied)

	// Несуществующая бронь неотличима от чужой.
	_, err = e.reservations.CancelByClient(e.ctx, clientPrincipal, uuid.New())
	wantCode(t, err, codes.PermissionDenied)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.reservations.now = func() time.Time { return day.Add(-24 * time.Hour) }

	v := e.book(t, 10, 11)
	if _, err := e.reservations.CancelByClient(e.ctx, clientPrincipal, v.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	e.book(t, 10, 11)
}

func TestValidateByOwner(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	v := e.book(t, 10, 11)

	otherOwner := identity.Principal{Subject: "kc-owner-2", Email: "owner2@example.com", Roles: []model.Role{model.RoleOwner}}
	_, err := e.reservations.ValidateByOwner(e.ctx, otherOwner, v.ID)
	wantCode(t, err, codes.PermissionDenied)

	got, err := e.reservations.ValidateByOwner(e.ctx, ownerPrincipal, v.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Status != model.ReservationStatusValidated {
		t.Fatalf("status = %s", got.Status)
	}

	// Повторное подтверждение — без изменений и без события.
	before := len(e.sink.msgs)
	if _, err := e.reservations.ValidateByOwner(e.ctx, ownerPrincipal, v.ID); err != nil {
		t.Fatalf("re-validate: %v", err)
	}
	if len(e.sink.msgs) != before {
		t.Fatalf("re-validation must not emit events")
	}

	_, err = e.reservations.ValidateByOwner(e.ctx, ownerPrincipal, uuid.New())
	wantCode(t, err, codes.PermissionDenied)
}

func TestCancelByOwner(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.reservations.now = func() time.Time { return day.Add(9*time.Hour + 30*time.Minute) }
	v := e.book(t, 10, 11)

	got, err := e.reservations.CancelByOwner(e.ctx, ownerPrincipal, v.ID)
	if err != nil {
		t.Fatalf("owner cancel inside client window: %v", err)
	}
	if got.Status != model.ReservationStatusCancelled {
		t.Fatalf("status = %s", got.Status)
	}

	_, err = e.reservations.CancelByOwner(e.ctx, ownerPrincipal, v.ID)
	wantCode(t, err, codes.Aborted)

	_, err = e.reservations.ValidateByOwner(e.ctx, ownerPrincipal, v.ID)
	wantCode(t, err, codes.Aborted)

	want := []model.EventType{model.EventTypeReservationCreated, model.EventTypeReservationCancelled}
	got2 := e.sink.types()
	if len(got2) != len(want) || got2[0] != want[0] || got2[1] != want[1] {
		t.Fatalf("events = %v, want %v", got2, want)
	}
}

func TestUpdate_ExcludesItselfFromOverlap(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	v := e.book(t, 10, 12)
	e.book(t, 13, 14)

	got, err := e.reservations.Update(e.ctx, ownerPrincipal, v.ID, ReservationUpdateInput{
		Date: day, StartTime: 11 * time.Hour, EndTime: 13 * time.Hour,
	})
	if err != nil {
		t.Fatalf("shift within own interval: %v", err)
	}
	if got.StartTime != "11:00" || got.EndTime != "13:00" || got.DurationMinutes != 120 {
		t.Fatalf("unexpected interval: %+v", got)
	}

	_, err = e.reservations.Update(e.ctx, ownerPrincipal, v.ID, ReservationUpdateInput{
		Date: day, StartTime: 12 * time.Hour, EndTime: 14 * time.Hour,
	})
	wantCode(t, err, codes.Aborted)

	_, err = e.reservations.Update(e.ctx, ownerPrincipal, v.ID, ReservationUpdateInput{
		Date: day, StartTime: 20 * time.Hour, EndTime: 23 * time.Hour,
	})
	wantCode(t, err, codes.InvalidArgument)
}

func TestUpdate_Permissions(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	v := e.book(t, 10, 11)
	in := ReservationUpdateInput{Date: day, StartTime: 15 * time.Hour, EndTime: 16 * time.Hour}

	_, err := e.reservations.Update(e.ctx, clientPrincipal, v.ID, in)
	wantCode(t, err, codes.PermissionDenied)

	otherOwner := identity.Principal{Subject: "kc-owner-2", Email: "owner2@example.com", Roles: []model.Role{model.RoleOwner}}
	_, err = e.reservations.Update(e.ctx, otherOwner, v.ID, in)
	wantCode(t, err, codes.PermissionDenied)

	if _, err := e.reservations.Update(e.ctx, adminPrincipal, v.ID, in); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	_, err = e.reservations.Update(e.ctx, otherOwner, uuid.New(), in)
	wantCode(t, err, codes.PermissionDenied)
	_, err = e.reservations.Update(e.ctx, adminPrincipal, uuid.New(), in)
	wantCode(t, err, codes.NotFound)
}

func TestUpdate_StatusOverride(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	v := e.book(t, 10, 11)

	cancelled := model.ReservationStatusCancelled
	got, err := e.reservations.Update(e.ctx, adminPrincipal, v.ID, ReservationUpdateInput{
		Date: day, StartTime: 10 * time.Hour, EndTime: 11 * time.Hour, Status: &cancelled,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != model.ReservationStatusCancelled || got.CancelledAt == nil {
		t.Fatalf("cancel via update: %+v", got)
	}

	confirmed := model.ReservationStatusConfirmed
	got, err = e.reservations.Update(e.ctx, adminPrincipal, v.ID, ReservationUpdateInput{
		Date: day, StartTime: 10 * time.Hour, EndTime: 11 * time.Hour, Status: &confirmed,
	})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if got.Status != model.ReservationStatusConfirmed || got.CancelledAt != nil {
		t.Fatalf("reactivate via update: %+v", got)
	}
}

func TestListAndCounts(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	e.book(t, 10, 11)
	e.book(t, 11, 13)
	_, err := e.reservations.Create(e.ctx, clientPrincipal, ReservationInput{
		TerrainID: e.fx.Terrain.ID, Date: day.AddDate(0, 0, 2), StartTime: 9 * time.Hour, EndTime: 10 * time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sameDay, err := e.reservations.ListByTerrainAndDate(e.ctx, ownerPrincipal, e.fx.Terrain.ID, day)
	if err != nil {
		t.Fatalf("list by terrain: %v", err)
	}
	if len(sameDay) != 2 || sameDay[0].StartTime != "10:00" {
		t.Fatalf("unexpected day listing: %+v", sameDay)
	}

	_, err = e.reservations.ListByTerrainAndDate(e.ctx, ownerPrincipal, uuid.New(), day)
	wantCode(t, err, codes.NotFound)

	ranged, err := e.reservations.ListByDateRange(e.ctx, day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(ranged) != 3 {
		t.Fatalf("inclusive range returned %d", len(ranged))
	}
	_, err = e.reservations.ListByDateRange(e.ctx, day.AddDate(0, 0, 1), day)
	wantCode(t, err, codes.InvalidArgument)

	n, err := e.reservations.CountByDateRange(e.ctx, day, day)
	if err != nil || n != 2 {
		t.Fatalf("count by range = %d, %v", n, err)
	}

	minDur := 90
	n, err = e.reservations.CountFiltered(e.ctx, ReservationQuery{MinDuration: &minDur})
	if err != nil || n != 1 {
		t.Fatalf("count filtered = %d, %v", n, err)
	}

	maxDur := 30
	_, err = e.reservations.Filter(e.ctx, ReservationQuery{MinDuration: &minDur, MaxDuration: &maxDur}, 1, 10)
	wantCode(t, err, codes.InvalidArgument)

	complexe := e.fx.Complexe.ID
	page, err := e.reservations.Filter(e.ctx, ReservationQuery{ComplexeID: &complexe}, 1, 2)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || !page.HasNext {
		t.Fatalf("unexpected page: total=%d items=%d next=%v", page.Total, len(page.Items), page.HasNext)
	}

	mine, err := e.reservations.ListByClient(e.ctx, clientPrincipal, 2, 2)
	if err != nil {
		t.Fatalf("list by client: %v", err)
	}
	if mine.Total != 3 || len(mine.Items) != 1 || mine.HasNext || !mine.HasPrev {
		t.Fatalf("unexpected client page: %+v", mine)
	}

	owned, err := e.reservations.ListForOwner(e.ctx, ownerPrincipal, 1, 20)
	if err != nil {
		t.Fatalf("list for owner: %v", err)
	}
	if owned.Total != 3 {
		t.Fatalf("owner sees %d reservations", owned.Total)
	}
}

func TestDelete_AdminOnly(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	a := e.book(t, 10, 11)
	b := e.book(t, 11, 12)
	c := e.book(t, 12, 13)

	err := e.reservations.Delete(e.ctx, ownerPrincipal, a.ID)
	wantCode(t, err, codes.PermissionDenied)

	if err := e.reservations.Delete(e.ctx, adminPrincipal, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantCode(t, e.reservations.Delete(e.ctx, adminPrincipal, a.ID), codes.NotFound)

	_, err = e.reservations.DeleteMany(e.ctx, adminPrincipal, nil)
	wantCode(t, err, codes.InvalidArgument)

	n, err := e.reservations.DeleteMany(e.ctx, adminPrincipal, []uuid.UUID{b.ID, c.ID, uuid.New()})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d, want 2", n)
	}

	total, err := e.reservations.CountAll(e.ctx)
	if err != nil || total != 0 {
		t.Fatalf("count after delete = %d, %v", total, err)
	}
}

func TestGet_Visibility(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	v := e.book(t, 10, 11)

	for name, p := range map[string]identity.Principal{
		"client": clientPrincipal,
		"owner":  ownerPrincipal,
		"admin":  adminPrincipal,
	} {
		if _, err := e.reservations.Get(e.ctx, p, v.ID); err != nil {
			t.Fatalf("%s get: %v", name, err)
		}
	}

	stranger := identity.Principal{Subject: "kc-other", Email: "other@example.com", Roles: []model.Role{model.RoleClient}}
	_, err := e.reservations.Get(e.ctx, stranger, v.ID)
	wantCode(t, err, codes.PermissionDenied)
	otherOwner := identity.Principal{Subject: "kc-owner-2", Email: "owner2@example.com", Roles: []model.Role{model.RoleOwner}}
	_, err = e.reservations.Get(e.ctx, otherOwner, v.ID)
	wantCode(t, err, codes.PermissionDenied)

	_, err = e.reservations.Get(e.ctx, stranger, uuid.New())
	wantCode(t, err, codes.PermissionDenied)
	_, err = e.reservations.Get(e.ctx, adminPrincipal, uuid.New())
	wantCode(t, err, codes.NotFound)
}

func TestListByTerrainAndDate_HidesOtherClients(t *testing.T) {
	e := newTestEnv(t, defaultBooking())
	mine := e.book(t, 10, 11)

	other := identity.Principal{Subject: "kc-other", Email: "other@example.com", GivenName: "Ali", Roles: []model.Role{model.RoleClient}}
	theirs, err := e.reservations.Create(e.ctx, other, ReservationInput{
		TerrainID: e.fx.Terrain.ID, Date: day, StartTime: 12 * time.Hour, EndTime: 13 * time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := e.reservations.ListByTerrainAndDate(e.ctx, clientPrincipal, e.fx.Terrain.ID, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(got))
	}
	for _, v := range got {
		switch v.ID {
		case mine.ID:
			if v.ClientEmail != clientPrincipal.Email {
				t.Fatalf("own reservation must keep client data: %+v", v)
			}
		case theirs.ID:
			if v.ClientEmail != "" || v.ClientName != "" || v.ClientID != uuid.Nil {
				t.Fatalf("foreign client data leaked: %+v", v)
			}
			if v.StartTime != "12:00" || v.EndTime != "13:00" {
				t.Fatalf("interval must stay visible: %+v", v)
			}
		}
	}

	full, err := e.reservations.ListByTerrainAndDate(e.ctx, ownerPrincipal, e.fx.Terrain.ID, day)
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	for _, v := range full {
		if v.ClientEmail == "" {
			t.Fatalf("owner must see client data: %+v", v)
		}
	}
}

// Package testdb поднимает in-memory SQLite с той же схемой, что и
// Postgres, для тестов репозиториев, сервисов и HTTP.
package testdb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reservaterrain/core/internal/model"
)

// Минимальная схема под SQLite. Типы подобраны так, чтобы драйвер
// возвращал то, что ждут datatypes.Date/Time и decimal.
var schema = []string{
	`CREATE TABLE owners (
		id TEXT PRIMARY KEY,
		subject TEXT UNIQUE,
		email TEXT NOT NULL UNIQUE,
		family_name TEXT NOT NULL DEFAULT '',
		given_name TEXT,
		phone TEXT UNIQUE,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE clients (
		id TEXT PRIMARY KEY,
		subject TEXT UNIQUE,
		email TEXT NOT NULL UNIQUE,
		family_name TEXT NOT NULL DEFAULT '',
		given_name TEXT,
		phone TEXT UNIQUE,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE complexes (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES owners(id),
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE terrains (
		id TEXT PRIMARY KEY,
		complexe_id TEXT NOT NULL REFERENCES complexes(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		open_hour INTEGER NOT NULL,
		close_hour INTEGER NOT NULL,
		slot_minutes INTEGER NOT NULL DEFAULT 60,
		status TEXT NOT NULL DEFAULT 'OUVERT',
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE reservations (
		id TEXT PRIMARY KEY,
		terrain_id TEXT NOT NULL REFERENCES terrains(id),
		client_id TEXT NOT NULL REFERENCES clients(id),
		booking_date DATE NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		status TEXT NOT NULL,
		cancelled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE annonces (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		terrain_id TEXT NOT NULL REFERENCES terrains(id) ON DELETE CASCADE,
		player_count INTEGER NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		reservation_id TEXT,
		actor_subject TEXT,
		details TEXT
	);`,
}

// Open возвращает пустую базу со схемой. Одно соединение: каждая
// новая связь с ":memory:" видит свою, пустую, базу.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// Fixture — владелец с комплексом и одним терреном 08:00–22:00.
type Fixture struct {
	Owner    model.Owner
	Complexe model.Complexe
	Terrain  model.Terrain
	Client   model.Client
}

// Seed заполняет базу минимальным набором записей.
func Seed(t testing.TB, db *gorm.DB) Fixture {
	t.Helper()

	ownerSub, clientSub := "kc-owner", "kc-client"
	f := Fixture{
		Owner: model.Owner{Person: model.Person{
			Subject: &ownerSub, Email: "owner@example.com", FamilyName: "Martin", GivenName: "Paul",
		}},
		Client: model.Client{Person: model.Person{
			Subject: &clientSub, Email: "client@example.com", FamilyName: "Dupont", GivenName: "Jean",
		}},
	}
	mustCreate(t, db, &f.Owner)
	mustCreate(t, db, &f.Client)

	f.Complexe = model.Complexe{OwnerID: f.Owner.ID, Name: "Arena", City: "Casablanca", Address: "1 rue du Stade"}
	mustCreate(t, db, &f.Complexe)

	f.Terrain = model.Terrain{
		ComplexeID:  f.Complexe.ID,
		Name:        "Terrain A",
		Price:       decimal.RequireFromString("150.00"),
		OpenHour:    8,
		CloseHour:   22,
		SlotMinutes: 60,
		Status:      model.TerrainStatusOpen,
	}
	mustCreate(t, db, &f.Terrain)
	return f
}

func mustCreate(t testing.TB, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed %T: %v", v, err)
	}
}

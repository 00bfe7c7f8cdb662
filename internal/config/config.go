package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/reservaterrain/core/internal/model"
)

type DBConfig struct {
	Host            string `envconfig:"HOST" default:"postgres"`
	Port            int    `envconfig:"PORT" default:"5432"`
	User            string `envconfig:"USER" default:"booking"`
	Password        string `envconfig:"PASSWORD" default:"booking"`
	Name            string `envconfig:"NAME" default:"booking_db"`
	SSLMode         string `envconfig:"SSLMODE" default:"disable"`
	TimeZone        string `envconfig:"TIMEZONE" default:"UTC"`
	MaxOpenConns    int    `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int    `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifeTime int    `envconfig:"CONN_MAX_LIFETIME_MIN" default:"30"` // минут
}

// DSN строка подключения libpq.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

type AuthConfig struct {
	PublicKeyPEM string `envconfig:"PUBLIC_KEY"`
	Secret       string `envconfig:"SECRET"`
	Issuer       string `envconfig:"ISSUER"`
	Audience     string `envconfig:"AUDIENCE"`
}

type BookingConfig struct {
	TimeZone           string        `envconfig:"TIMEZONE" default:"UTC"`
	CancellationWindow time.Duration `envconfig:"CANCELLATION_WINDOW" default:"3h"`
	InitialStatus      string        `envconfig:"INITIAL_STATUS" default:"CONFIRMEE"`

	Location *time.Location          `ignored:"true"`
	Status   model.ReservationStatus `ignored:"true"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

type RabbitConfig struct {
	URL      string `envconfig:"URL"`
	Exchange string `envconfig:"EXCHANGE" default:"reservation.exchange"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR"`
	Password string        `envconfig:"PASSWORD"`
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"30s"`
}

type OtelConfig struct {
	Endpoint string `envconfig:"EXPORTER_OTLP_ENDPOINT"`
}

type App struct {
	DB   DBConfig   `envconfig:"DB"`
	Auth AuthConfig `envconfig:"JWT"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`

	Env string `envconfig:"ENV" default:"dev"`

	Booking BookingConfig `envconfig:"BOOKING"`
	Log     LogConfig     `envconfig:"LOG"`
	Rabbit  RabbitConfig  `envconfig:"RABBIT"`
	Redis   RedisConfig   `envconfig:"REDIS"`
	Otel    OtelConfig    `envconfig:"OTEL"`
}

// Load читает конфигурацию из окружения и делает минимальную валидацию.
func Load() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *App) validate() error {
	if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
		return errors.New("invalid DB config: host/user/name must not be empty")
	}
	if strings.TrimSpace(c.Auth.PublicKeyPEM) == "" && strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("invalid auth config: JWT_PUBLIC_KEY or JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(c.Booking.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Booking.TimeZone, err)
	}
	c.Booking.Location = loc

	status, ok := model.ParseReservationStatus(strings.ToUpper(c.Booking.InitialStatus))
	if !ok || (status != model.ReservationStatusConfirmed && status != model.ReservationStatusPending) {
		return fmt.Errorf("invalid BOOKING_INITIAL_STATUS %q: want CONFIRMEE or EN_ATTENTE", c.Booking.InitialStatus)
	}
	c.Booking.Status = status

	if c.Booking.CancellationWindow < 0 {
		return errors.New("invalid BOOKING_CANCELLATION_WINDOW: must not be negative")
	}
	return nil
}

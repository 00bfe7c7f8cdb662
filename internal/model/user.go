package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Person — общие поля клиента и владельца, встраиваются в обе таблицы.
type Person struct {
	// Subject из токена провайдера идентификации. NULL до первого входа,
	// если запись была создана по email.
	Subject *string `gorm:"type:varchar(255);uniqueIndex"`

	Email      string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	FamilyName string  `gorm:"type:varchar(255);not null;default:''"`
	GivenName  string  `gorm:"type:varchar(255)"`
	Phone      *string `gorm:"type:varchar(32);uniqueIndex"`
}

// FullName склеивает фамилию и имя так же, как их показывает интерфейс.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FamilyName + " " + p.GivenName)
}

// SubjectValue возвращает subject или пустую строку.
func (p Person) SubjectValue() string {
	if p.Subject == nil {
		return ""
	}
	return *p.Subject
}

// clients
type Client struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Person `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// owners
type Owner struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Person `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Complexes []Complexe `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (o *Owner) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Accessors, которые позволяют репозиторию работать с клиентами и
// владельцами одним кодом.
func (c *Client) PersonRef() *Person { return &c.Person }
func (c *Client) Key() uuid.UUID     { return c.ID }
func (o *Owner) PersonRef() *Person  { return &o.Person }
func (o *Owner) Key() uuid.UUID      { return o.ID }

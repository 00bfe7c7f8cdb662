package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbutil "github.com/reservaterrain/core/internal/db"
	"github.com/reservaterrain/core/internal/model"
)

// ErrSubjectMismatch — запись с таким email уже привязана к другому subject.
var ErrSubjectMismatch = errors.New("email is linked to another subject")

// personRecord — общий интерфейс model.Client и model.Owner.
type personRecord[T any] interface {
	*T
	PersonRef() *model.Person
	Key() uuid.UUID
}

// ContactsUpdate — частичное обновление контактов, nil = не трогать.
type ContactsUpdate struct {
	FamilyName *string
	GivenName  *string
	Phone      *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	// Оставляем только цифры и ведущий "+".
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if (c >= '0' && c <= '9') || (c == '+' && len(b) == 0) {
			b = append(b, c)
		}
	}
	return string(b)
}

func findPersonBy[T any](ctx context.Context, db *gorm.DB, column, value string) (*T, error) {
	var rec T
	if err := db.WithContext(ctx).Where(column+" = ?", value).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ensurePerson — ленивое создание записи по claims:
// subject → email (с привязкой subject) → новая запись.
// Второй результат true, если запись создана.
func ensurePerson[T any, PT personRecord[T]](ctx context.Context, db *gorm.DB, in model.Person) (*T, bool, error) {
	subject := strings.TrimSpace(in.SubjectValue())
	email := normalizeEmail(in.Email)
	if subject == "" || email == "" {
		return nil, false, gorm.ErrRecordNotFound
	}

	rec, err := findPersonBy[T](ctx, db, "subject", subject)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find by subject: %w", err)
	}

	rec, err = findPersonBy[T](ctx, db, "email", email)
	switch {
	case err == nil:
		if err := attachSubject[T, PT](ctx, db, rec, subject); err != nil {
			return nil, false, err
		}
		return rec, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("find by email: %w", err)
	}

	created := new(T)
	*PT(created).PersonRef() = model.Person{
		Subject:    &subject,
		Email:      email,
		FamilyName: strings.TrimSpace(in.FamilyName),
		GivenName:  strings.TrimSpace(in.GivenName),
	}
	if err := db.WithContext(ctx).Create(PT(created)).Error; err != nil {
		if !dbutil.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("create: %w", err)
		}
		// Параллельный первый вход того же пользователя: перечитываем.
		if rec, err := findPersonBy[T](ctx, db, "subject", subject); err == nil {
			return rec, false, nil
		}
		rec, err := findPersonBy[T](ctx, db, "email", email)
		if err != nil {
			return nil, false, fmt.Errorf("re-read after duplicate: %w", err)
		}
		if err := attachSubject[T, PT](ctx, db, rec, subject); err != nil {
			return nil, false, err
		}
		return rec, false, nil
	}
	return created, true, nil
}

// attachSubject дописывает subject к записи, созданной до первого входа.
func attachSubject[T any, PT personRecord[T]](ctx context.Context, db *gorm.DB, rec *T, subject string) error {
	p := PT(rec).PersonRef()
	if p.Subject != nil {
		if *p.Subject == subject {
			return nil
		}
		return ErrSubjectMismatch
	}

	res := db.WithContext(ctx).
		Model(PT(rec)).
		Where("subject IS NULL").
		Update("subject", subject)
	if res.Error != nil {
		return fmt.Errorf("attach subject: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Кто-то успел привязать раньше нас.
		fresh, err := findPersonBy[T](ctx, db, "id", PT(rec).Key().String())
		if err != nil {
			return fmt.Errorf("re-read person: %w", err)
		}
		if s := PT(fresh).PersonRef().SubjectValue(); s != subject {
			return ErrSubjectMismatch
		}
		*rec = *fresh
		return nil
	}
	p.Subject = &subject
	return nil
}

func updateContacts[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, in ContactsUpdate) (*T, error) {
	updates := map[string]any{}
	if in.FamilyName != nil {
		updates["family_name"] = strings.TrimSpace(*in.FamilyName)
	}
	if in.GivenName != nil {
		updates["given_name"] = strings.TrimSpace(*in.GivenName)
	}
	if in.Phone != nil {
		if n := normalizePhone(*in.Phone); n != "" {
			updates["phone"] = n
		} else {
			updates["phone"] = nil
		}
	}
	if len(updates) > 0 {
		res := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return findPersonBy[T](ctx, db, "id", id.String())
}

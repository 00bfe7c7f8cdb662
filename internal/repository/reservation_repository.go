package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/model"
)

// ReservationFilter — необязательные условия выборки, объединяются через AND.
// nil означает "без ограничения".
type ReservationFilter struct {
	TerrainID   *uuid.UUID
	ComplexeID  *uuid.UUID
	OwnerID     *uuid.UUID
	ClientID    *uuid.UUID
	From        *time.Time
	To          *time.Time
	Status      *model.ReservationStatus
	MinDuration *int
	MaxDuration *int
}

// OwnerReservationStats — агрегаты по броням на комплексах владельца.
type OwnerReservationStats struct {
	Total   int64
	Pending int64
	Revenue decimal.Decimal
}

type ReservationRepository interface {
	// CreateWithNoOverlap сохраняет бронь, если интервал свободен.
	CreateWithNoOverlap(ctx context.Context, res *model.Reservation) error
	// UpdateWithNoOverlap перезаписывает бронь; пересечения ищутся без неё самой.
	// prev — прочитанное ранее состояние: если террен или статус с тех пор
	// изменились, запись не выполняется (ErrStaleStatus).
	UpdateWithNoOverlap(ctx context.Context, res *model.Reservation, prev *model.Reservation) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	// OwnerSubject — subject владельца комплекса, к которому относится бронь.
	OwnerSubject(ctx context.Context, id uuid.UUID) (string, error)
	// UpdateStatus переводит бронь из from в to, только если статус всё ещё from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus, cancelledAt *time.Time) error

	ListByTerrainAndDate(ctx context.Context, terrainID uuid.UUID, day time.Time) ([]model.Reservation, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.Reservation, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Reservation, error)
	Filter(ctx context.Context, f ReservationFilter, limit, offset int) ([]model.Reservation, int64, error)
	Count(ctx context.Context, f ReservationFilter) (int64, error)

	OwnerStats(ctx context.Context, ownerID uuid.UUID) (OwnerReservationStats, error)
	RecentForOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.Reservation, error)

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// lockTerrains берёт FOR UPDATE на строки терренов в порядке id, чтобы
// все писатели одного террена выстраивались в очередь. Отсутствующий
// террен — gorm.ErrRecordNotFound.
func lockTerrains(tx *gorm.DB, ids ...uuid.UUID) error {
	uniq := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].String() < uniq[j].String() })

	for _, id := range uniq {
		var t model.Terrain
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Take(&t, "id = ?", id).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// hasOverlap ищет активную бронь того же террена и дня, пересекающую
// [start, end). exclude — id брони, которую не учитываем (при обновлении).
func hasOverlap(tx *gorm.DB, res *model.Reservation, exclude *uuid.UUID) (bool, error) {
	q := tx.Model(&model.Reservation{}).
		Where("terrain_id = ? AND booking_date = ? AND status <> ?", res.TerrainID, res.Date, model.ReservationStatusCancelled).
		Where("start_time < ? AND end_time > ?", res.EndTime, res.StartTime)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormReservationRepository) CreateWithNoOverlap(ctx context.Context, res *model.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTerrains(tx, res.TerrainID); err != nil {
			return err
		}
		if res.Status.Active() {
			overlap, err := hasOverlap(tx, res, nil)
			if err != nil {
				return fmt.Errorf("overlap check: %w", err)
			}
			if overlap {
				return ErrOverlap
			}
		}
		return tx.Omit(clause.Associations).Create(res).Error
	})
}

func (r *GormReservationRepository) UpdateWithNoOverlap(ctx context.Context, res *model.Reservation, prev *model.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTerrains(tx, prev.TerrainID, res.TerrainID); err != nil {
			return err
		}
		if res.Status.Active() {
			overlap, err := hasOverlap(tx, res, &res.ID)
			if err != nil {
				return fmt.Errorf("overlap check: %w", err)
			}
			if overlap {
				return ErrOverlap
			}
		}

		upd := tx.Model(&model.Reservation{}).
			Where("id = ? AND terrain_id = ? AND status = ?", res.ID, prev.TerrainID, prev.Status).
			Updates(map[string]any{
				"terrain_id":       res.TerrainID,
				"booking_date":     res.Date,
				"start_time":       res.StartTime,
				"end_time":         res.EndTime,
				"duration_minutes": res.DurationMinutes,
				"status":           res.Status,
				"cancelled_at":     res.CancelledAt,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return staleOrMissing(tx, res.ID)
		}
		return nil
	})
}

// staleOrMissing объясняет, почему условный UPDATE не затронул строк.
func staleOrMissing(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&model.Reservation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrStaleStatus
}

func withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Terrain.Complexe").Preload("Client")
}

func (r *GormReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	if err := withRelations(r.db.WithContext(ctx)).First(&res, "reservations.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormReservationRepository) OwnerSubject(ctx context.Context, id uuid.UUID) (string, error) {
	var row struct {
		Subject *string
	}
	q := r.db.WithContext(ctx).
		Table("reservations").
		Select("owners.subject AS subject").
		Joins("JOIN terrains ON terrains.id = reservations.terrain_id").
		Joins("JOIN complexes ON complexes.id = terrains.complexe_id").
		Joins("JOIN owners ON owners.id = complexes.owner_id").
		Where("reservations.id = ?", id).
		Limit(1).
		Scan(&row)
	if q.Error != nil {
		return "", q.Error
	}
	if q.RowsAffected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	if row.Subject == nil {
		return "", nil
	}
	return *row.Subject, nil
}

// UpdateStatus пишет статус под блокировкой террена, как и создание.
// Запись условная: WHERE status = from. Возврат из ANNULEE в активный
// статус заново проверяет пересечения.
func (r *GormReservationRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.ReservationStatus,
	cancelledAt *time.Time,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var terrainIDs []uuid.UUID
		err := tx.Model(&model.Reservation{}).
			Where("id = ?", id).
			Limit(1).
			Pluck("terrain_id", &terrainIDs).Error
		if err != nil {
			return err
		}
		if len(terrainIDs) == 0 {
			return gorm.ErrRecordNotFound
		}
		terrainID := terrainIDs[0]
		if err := lockTerrains(tx, terrainID); err != nil {
			return err
		}

		// Перечитываем под блокировкой: до неё бронь могли перенести.
		var cur model.Reservation
		if err := tx.Take(&cur, "id = ?", id).Error; err != nil {
			return err
		}
		if cur.TerrainID != terrainID || cur.Status != from {
			return ErrStaleStatus
		}

		update := map[string]any{
			"status": to,
		}
		if cancelledAt != nil {
			update["cancelled_at"] = *cancelledAt
		}
		if !from.Active() && to.Active() {
			overlap, err := hasOverlap(tx, &cur, &cur.ID)
			if err != nil {
				return fmt.Errorf("overlap check: %w", err)
			}
			if overlap {
				return ErrOverlap
			}
			update["cancelled_at"] = nil
		}

		res := tx.Model(&model.Reservation{}).
			Where("id = ? AND status = ?", id, from).
			Updates(update)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return staleOrMissing(tx, id)
		}
		return nil
	})
}

func (r *GormReservationRepository) ListByTerrainAndDate(ctx context.Context, terrainID uuid.UUID, day time.Time) ([]model.Reservation, error) {
	terrain := terrainID
	d := calendar.UTCDate(day)
	return r.find(ctx, ReservationFilter{TerrainID: &terrain, From: &d, To: &d}, "reservations.start_time ASC")
}

// ListByDateRange — брони с датой в [from, to], обе границы включительно.
func (r *GormReservationRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	f, t := calendar.UTCDate(from), calendar.UTCDate(to)
	return r.find(ctx, ReservationFilter{From: &f, To: &t}, "reservations.booking_date ASC, reservations.start_time ASC")
}

func (r *GormReservationRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.Reservation, error) {
	client := clientID
	return r.find(ctx, ReservationFilter{ClientID: &client}, "reservations.booking_date DESC, reservations.start_time DESC")
}

func (r *GormReservationRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Reservation, error) {
	owner := ownerID
	return r.find(ctx, ReservationFilter{OwnerID: &owner}, "reservations.booking_date DESC, reservations.start_time DESC")
}

func (r *GormReservationRepository) find(ctx context.Context, f ReservationFilter, order string) ([]model.Reservation, error) {
	var out []model.Reservation
	q := f.apply(r.db.WithContext(ctx).Model(&model.Reservation{}))
	if err := withRelations(q).Order(order).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormReservationRepository) Filter(ctx context.Context, f ReservationFilter, limit, offset int) ([]model.Reservation, int64, error) {
	var (
		out   []model.Reservation
		total int64
	)

	if err := f.apply(r.db.WithContext(ctx).Model(&model.Reservation{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := withRelations(f.apply(r.db.WithContext(ctx).Model(&model.Reservation{})))
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Order("reservations.booking_date DESC, reservations.start_time DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *GormReservationRepository) Count(ctx context.Context, f ReservationFilter) (int64, error) {
	var n int64
	err := f.apply(r.db.WithContext(ctx).Model(&model.Reservation{})).Count(&n).Error
	return n, err
}

func (f ReservationFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ComplexeID != nil || f.OwnerID != nil {
		q = q.Joins("JOIN terrains ON terrains.id = reservations.terrain_id")
	}
	if f.OwnerID != nil {
		q = q.Joins("JOIN complexes ON complexes.id = terrains.complexe_id").
			Where("complexes.owner_id = ?", *f.OwnerID)
	}
	if f.ComplexeID != nil {
		q = q.Where("terrains.complexe_id = ?", *f.ComplexeID)
	}
	if f.TerrainID != nil {
		q = q.Where("reservations.terrain_id = ?", *f.TerrainID)
	}
	if f.ClientID != nil {
		q = q.Where("reservations.client_id = ?", *f.ClientID)
	}
	if f.From != nil {
		q = q.Where("reservations.booking_date >= ?", datatypes.Date(calendar.UTCDate(*f.From)))
	}
	if f.To != nil {
		q = q.Where("reservations.booking_date <= ?", datatypes.Date(calendar.UTCDate(*f.To)))
	}
	if f.Status != nil {
		q = q.Where("reservations.status = ?", *f.Status)
	}
	if f.MinDuration != nil {
		q = q.Where("reservations.duration_minutes >= ?", *f.MinDuration)
	}
	if f.MaxDuration != nil {
		q = q.Where("reservations.duration_minutes <= ?", *f.MaxDuration)
	}
	return q
}

func (r *GormReservationRepository) OwnerStats(ctx context.Context, ownerID uuid.UUID) (OwnerReservationStats, error) {
	var stats OwnerReservationStats
	owner := ownerID

	total, err := r.Count(ctx, ReservationFilter{OwnerID: &owner})
	if err != nil {
		return stats, fmt.Errorf("count total: %w", err)
	}
	pending := model.ReservationStatusPending
	pendingN, err := r.Count(ctx, ReservationFilter{OwnerID: &owner, Status: &pending})
	if err != nil {
		return stats, fmt.Errorf("count pending: %w", err)
	}

	// Выручка считается в Go: SUM по numeric в SQLite превращается в float.
	var prices []decimal.Decimal
	validated := model.ReservationStatusValidated
	err = ReservationFilter{OwnerID: &owner, Status: &validated}.
		apply(r.db.WithContext(ctx).Model(&model.Reservation{})).
		Pluck("terrains.price", &prices).Error
	if err != nil {
		return stats, fmt.Errorf("sum revenue: %w", err)
	}

	stats.Total = total
	stats.Pending = pendingN
	stats.Revenue = decimal.Sum(decimal.Zero, prices...)
	return stats, nil
}

func (r *GormReservationRepository) RecentForOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.Reservation, error) {
	if limit <= 0 {
		limit = 3
	}
	owner := ownerID
	var out []model.Reservation
	q := ReservationFilter{OwnerID: &owner}.apply(r.db.WithContext(ctx).Model(&model.Reservation{}))
	err := withRelations(q).
		Order("reservations.created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormReservationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Reservation{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormReservationRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Reservation{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// IsNotFound — короткая проверка для сервисов.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package repository

import "errors"

var (
	// ErrOverlap — интервал пересекается с активной бронью того же террена.
	ErrOverlap = errors.New("reservation overlaps an existing one")
	// ErrStaleStatus — бронь изменилась между чтением и записью.
	ErrStaleStatus = errors.New("reservation changed since it was read")
	// ErrInUse — у записи есть брони, удалять нельзя.
	ErrInUse = errors.New("record is referenced by reservations")
)

package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/service"
)

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(calendar.DefaultPageSize)))
	return page, size
}

func optUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &id, nil
}

func optDate(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: expected YYYY-MM-DD", key)
	}
	return &d, nil
}

func optInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &n, nil
}

func parseStatus(raw string) (*model.ReservationStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	st, ok := model.ParseReservationStatus(strings.ToUpper(raw))
	if !ok {
		return nil, fmt.Errorf("unknown status %q", raw)
	}
	return &st, nil
}

// reservationQuery собирает фильтр из query-параметров /reservations/filter.
func reservationQuery(c *gin.Context) (service.ReservationQuery, error) {
	var (
		q   service.ReservationQuery
		err error
	)
	if q.ComplexeID, err = optUUID(c, "complexId"); err != nil {
		return q, err
	}
	if q.ClientID, err = optUUID(c, "clientId"); err != nil {
		return q, err
	}
	if q.From, err = optDate(c, "dateFrom"); err != nil {
		return q, err
	}
	if q.To, err = optDate(c, "dateTo"); err != nil {
		return q, err
	}
	if q.Status, err = parseStatus(c.Query("status")); err != nil {
		return q, err
	}
	if q.MinDuration, err = optInt(c, "minDuration"); err != nil {
		return q, err
	}
	if q.MaxDuration, err = optInt(c, "maxDuration"); err != nil {
		return q, err
	}
	return q, nil
}

// interval разбирает дату и время суток из тела запроса.
func interval(date, start, end string) (time.Time, time.Duration, time.Duration, error) {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, 0, fmt.Errorf("invalid date: expected YYYY-MM-DD")
	}
	s, err := calendar.ParseClock(start)
	if err != nil {
		return time.Time{}, 0, 0, fmt.Errorf("invalid startTime: expected HH:MM")
	}
	e, err := calendar.ParseClock(end)
	if err != nil {
		return time.Time{}, 0, 0, fmt.Errorf("invalid endTime: expected HH:MM")
	}
	return d, s, e, nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/service"
)

type ReservationHandler struct {
	svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type reservationRequest struct {
	TerrainID string `json:"terrainId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

// updateRequest: terrainId и status необязательны.
type updateRequest struct {
	TerrainID string `json:"terrainId"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	Status    string `json:"status"`
}

// POST /api/reservations (CLIENT)
func (h *ReservationHandler) Create(c *gin.Context) {
	var in reservationRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	terrainID, err := uuid.Parse(in.TerrainID)
	if err != nil {
		badRequest(c, "invalid terrainId")
		return
	}
	date, start, end, err := interval(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}

	res, err := h.svc.Create(c.Request.Context(), p, service.ReservationInput{
		TerrainID: terrainID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/reservations?terrainId=&date= (любой) или ?from=&to= (OWNER/ADMIN)
func (h *ReservationHandler) List(c *gin.Context) {
	if c.Query("terrainId") != "" {
		terrainID, err := uuid.Parse(c.Query("terrainId"))
		if err != nil {
			badRequest(c, "invalid terrainId")
			return
		}
		date, err := calendar.ParseDate(c.Query("date"))
		if err != nil {
			badRequest(c, "invalid date: expected YYYY-MM-DD")
			return
		}
		p, ok := principal(c)
		if !ok {
			return
		}
		res, err := h.svc.ListByTerrainAndDate(c.Request.Context(), p, terrainID, date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	if !p.HasAnyRole(model.RoleOwner, model.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}
	from, err := calendar.ParseDate(c.Query("from"))
	if err != nil {
		badRequest(c, "either terrainId&date or from&to are required")
		return
	}
	to, err := calendar.ParseDate(c.Query("to"))
	if err != nil {
		badRequest(c, "either terrainId&date or from&to are required")
		return
	}
	res, err := h.svc.ListByDateRange(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/reservations/count[?from=&to=]
func (h *ReservationHandler) Count(c *gin.Context) {
	from, err := optDate(c, "from")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	to, err := optDate(c, "to")
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var n int64
	switch {
	case from == nil && to == nil:
		n, err = h.svc.CountAll(c.Request.Context())
	case from != nil && to != nil:
		n, err = h.svc.CountByDateRange(c.Request.Context(), *from, *to)
	default:
		badRequest(c, "from and to must be given together")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// GET /api/reservations/filter
func (h *ReservationHandler) Filter(c *gin.Context) {
	q, err := reservationQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	page, size := pageParams(c)
	res, err := h.svc.Filter(c.Request.Context(), q, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/reservations/filter/count
func (h *ReservationHandler) FilterCount(c *gin.Context) {
	q, err := reservationQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := h.svc.CountFiltered(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// GET /api/reservations/:id (клиент брони, владелец комплекса, ADMIN)
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /api/reservations/:id (OWNER/ADMIN)
func (h *ReservationHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in updateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	var terrainID *uuid.UUID
	if in.TerrainID != "" {
		tid, err := uuid.Parse(in.TerrainID)
		if err != nil {
			badRequest(c, "invalid terrainId")
			return
		}
		terrainID = &tid
	}
	date, start, end, err := interval(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := parseStatus(in.Status)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}

	res, err := h.svc.Update(c.Request.Context(), p, id, service.ReservationUpdateInput{
		TerrainID: terrainID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    st,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /api/reservations/:id (ADMIN)
func (h *ReservationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/reservations (ADMIN), тело: {"ids": [...]}
func (h *ReservationHandler) DeleteMany(c *gin.Context) {
	var in struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	n, err := h.svc.DeleteMany(c.Request.Context(), p, in.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *ReservationHandler) changeStatus(c *gin.Context, fn func(ctx context.Context, p identity.Principal, id uuid.UUID) (*service.ReservationView, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /api/reservations/:id/validate (OWNER)
func (h *ReservationHandler) Validate(c *gin.Context) {
	h.changeStatus(c, h.svc.ValidateByOwner)
}

// PUT /api/reservations/:id/cancel (OWNER)
func (h *ReservationHandler) OwnerCancel(c *gin.Context) {
	h.changeStatus(c, h.svc.CancelByOwner)
}

// POST /api/reservations/:id/cancel (CLIENT)
func (h *ReservationHandler) ClientCancel(c *gin.Context) {
	h.changeStatus(c, h.svc.CancelByClient)
}

// GET /api/my-reservations (CLIENT)
func (h *ReservationHandler) Mine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	res, err := h.svc.ListByClient(c.Request.Context(), p, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/owner/reservations (OWNER)
func (h *ReservationHandler) ForOwner(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	res, err := h.svc.ListForOwner(c.Request.Context(), p, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

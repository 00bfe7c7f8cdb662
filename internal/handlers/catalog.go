package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reservaterrain/core/internal/calendar"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/service"
)

type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// GET /api/terrains/:id
func (h *CatalogHandler) GetTerrain(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.GetTerrain(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/terrains/:id/availability?date=YYYY-MM-DD
func (h *CatalogHandler) Availability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	date, err := calendar.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, "invalid date: expected YYYY-MM-DD")
		return
	}
	res, err := h.svc.Availability(c.Request.Context(), id, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/terrains/active/count
func (h *CatalogHandler) ActiveCount(c *gin.Context) {
	n, err := h.svc.CountActiveTerrains(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// GET /api/complexes?city=&page=&pageSize=
func (h *CatalogHandler) ListComplexes(c *gin.Context) {
	page, size := pageParams(c)
	res, err := h.svc.ListComplexes(c.Request.Context(), c.Query("city"), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/complexes/:id/terrains
func (h *CatalogHandler) ComplexeTerrains(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.ListTerrainsByComplexe(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/owner/complexes
func (h *CatalogHandler) MyComplexes(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.svc.ListMyComplexes(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/owner/complexes
func (h *CatalogHandler) CreateComplexe(c *gin.Context) {
	var in service.ComplexeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.svc.CreateComplexe(c.Request.Context(), p, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// DELETE /api/owner/complexes/:id
func (h *CatalogHandler) DeleteComplexe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteComplexe(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/owner/complexes/:id/terrains
func (h *CatalogHandler) CreateTerrain(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.TerrainInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.svc.CreateTerrain(c.Request.Context(), p, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// PUT /api/owner/terrains/:id
func (h *CatalogHandler) UpdateTerrain(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.TerrainPatch
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.svc.UpdateTerrain(c.Request.Context(), p, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /api/owner/terrains/:id/status, тело: {"status": "OUVERT"|"FERME"}
func (h *CatalogHandler) SetTerrainStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	st := model.TerrainStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	res, err := h.svc.SetTerrainStatus(c.Request.Context(), p, id, st)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

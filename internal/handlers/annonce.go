package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reservaterrain/core/internal/service"
)

type AnnonceHandler struct {
	svc *service.AnnonceService
}

func NewAnnonceHandler(svc *service.AnnonceService) *AnnonceHandler {
	return &AnnonceHandler{svc: svc}
}

type annonceRequest struct {
	TerrainID   string `json:"terrainId" binding:"required"`
	PlayerCount int    `json:"playerCount" binding:"required"`
}

// POST /api/annonces (CLIENT)
func (h *AnnonceHandler) Create(c *gin.Context) {
	var in annonceRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	terrainID, err := uuid.Parse(in.TerrainID)
	if err != nil {
		badRequest(c, "invalid terrainId")
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.svc.Create(c.Request.Context(), p, service.AnnonceInput{
		TerrainID:   terrainID,
		PlayerCount: in.PlayerCount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/annonces?city=&terrainId=
func (h *AnnonceHandler) List(c *gin.Context) {
	terrainID, err := optUUID(c, "terrainId")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	page, size := pageParams(c)
	res, err := h.svc.List(c.Request.Context(), service.AnnonceQuery{
		City:      c.Query("city"),
		TerrainID: terrainID,
	}, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /api/annonces/:id (автор или ADMIN)
func (h *AnnonceHandler) Delete(c *gin.Context) {
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

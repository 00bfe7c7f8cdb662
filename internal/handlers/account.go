package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reservaterrain/core/internal/service"
)

// AccountHandler — профиль клиента и сводка владельца.
type AccountHandler struct {
	directory *service.DirectoryService
	dashboard *service.DashboardService
}

func NewAccountHandler(directory *service.DirectoryService, dashboard *service.DashboardService) *AccountHandler {
	return &AccountHandler{directory: directory, dashboard: dashboard}
}

// GET /api/client/profile
func (h *AccountHandler) Profile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.directory.Profile(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /api/client/profile
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var in service.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.directory.UpdateProfile(c.Request.Context(), p, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/owner/dashboard
func (h *AccountHandler) Dashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	res, err := h.dashboard.OwnerStats(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

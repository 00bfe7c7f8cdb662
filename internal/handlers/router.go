package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reservaterrain/core/internal/middlewares"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/service"
)

// Deps — всё, что нужно HTTP-слою.
type Deps struct {
	Reservations *service.ReservationService
	Catalog      *service.CatalogService
	Directory    *service.DirectoryService
	Dashboard    *service.DashboardService
	Annonces     *service.AnnonceService
	Verifier     middlewares.TokenVerifier
	Log          *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(d.Log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rh := NewReservationHandler(d.Reservations)
	ch := NewCatalogHandler(d.Catalog)
	ah := NewAccountHandler(d.Directory, d.Dashboard)
	nh := NewAnnonceHandler(d.Annonces)

	client := middlewares.RequireRole(model.RoleClient)
	owner := middlewares.RequireRole(model.RoleOwner)
	manager := middlewares.RequireRole(model.RoleOwner, model.RoleAdmin)
	admin := middlewares.RequireRole(model.RoleAdmin)
	author := middlewares.RequireRole(model.RoleClient, model.RoleAdmin)

	api := r.Group("/api")
	api.Use(middlewares.JWTAuth(d.Verifier))
	{
		api.POST("/reservations", client, rh.Create)
		api.GET("/reservations", rh.List)
		api.DELETE("/reservations", admin, rh.DeleteMany)
		api.GET("/reservations/count", manager, rh.Count)
		api.GET("/reservations/filter", manager, rh.Filter)
		api.GET("/reservations/filter/count", manager, rh.FilterCount)
		api.GET("/reservations/:id", rh.Get)
		api.PUT("/reservations/:id", manager, rh.Update)
		api.DELETE("/reservations/:id", admin, rh.Delete)
		api.PUT("/reservations/:id/validate", owner, rh.Validate)
		api.PUT("/reservations/:id/cancel", owner, rh.OwnerCancel)
		api.POST("/reservations/:id/cancel", client, rh.ClientCancel)

		api.POST("/annonces", client, nh.Create)
		api.GET("/annonces", nh.List)
		api.DELETE("/annonces/:id", author, nh.Delete)

		api.GET("/my-reservations", client, rh.Mine)
		api.GET("/client/profile", client, ah.Profile)
		api.PUT("/client/profile", client, ah.UpdateProfile)

		api.GET("/terrains/active/count", ch.ActiveCount)
		api.GET("/terrains/:id", ch.GetTerrain)
		api.GET("/terrains/:id/availability", ch.Availability)
		api.GET("/complexes", ch.ListComplexes)
		api.GET("/complexes/:id/terrains", ch.ComplexeTerrains)

		own := api.Group("/owner", owner)
		own.GET("/complexes", ch.MyComplexes)
		own.POST("/complexes", ch.CreateComplexe)
		own.DELETE("/complexes/:id", ch.DeleteComplexe)
		own.POST("/complexes/:id/terrains", ch.CreateTerrain)
		own.PUT("/terrains/:id", ch.UpdateTerrain)
		own.PUT("/terrains/:id/status", ch.SetTerrainStatus)
		own.GET("/reservations", rh.ForOwner)
		own.GET("/dashboard", ah.Dashboard)
	}
	return r
}

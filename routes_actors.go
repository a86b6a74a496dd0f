package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"red-subcontinent/models"
	"red-subcontinent/services"
)

func setupActorRoutes(api *gin.RouterGroup, svc *services.ConflictService, log *zap.Logger) {
	rg := api.Group("/actors")

	rg.GET("", func(c *gin.Context) {
		limit, err := queryInt(c, "limit", services.DefaultActorLimit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		actors, err := svc.ListActors(c.Request.Context(), limit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, actors)
	})

	rg.GET("/search", func(c *gin.Context) {
		limit, err := queryInt(c, "limit", services.DefaultSearchLimit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		actors, err := svc.SearchActors(c.Request.Context(), c.Query("q"), limit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, actors)
	})

	rg.GET("/by-role/:role", func(c *gin.Context) {
		limit, err := queryInt(c, "limit", services.DefaultRoleLimit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		actors, err := svc.ActorsByRole(c.Request.Context(), models.ActorRole(c.Param("role")), limit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, actors)
	})
}

package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"red-subcontinent/services"
)

func setupStatsRoutes(api *gin.RouterGroup, svc *services.ConflictService, log *zap.Logger) {
	rg := api.Group("/stats")

	rg.GET("/summary", func(c *gin.Context) {
		summary, err := svc.StatsSummary(c.Request.Context())
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	rg.GET("/by-region", func(c *gin.Context) {
		limit, err := queryInt(c, "limit", services.DefaultRegionLimit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		stats, err := svc.StatsByRegion(c.Request.Context(), limit)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	rg.GET("/by-decade", func(c *gin.Context) {
		century, err := queryInt(c, "century", services.DefaultCentury)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		stats, err := svc.StatsByDecade(c.Request.Context(), century)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})
}

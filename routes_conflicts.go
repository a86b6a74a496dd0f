package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"red-subcontinent/models"
	"red-subcontinent/services"
)

func setupConflictRoutes(api *gin.RouterGroup, svc *services.ConflictService, defaultPageSize int, log *zap.Logger) {
	rg := api.Group("/conflicts")

	// Gefilterte, paginierte Liste
	rg.GET("", func(c *gin.Context) {
		page, err := queryInt(c, "page", 1)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		pageSize, err := queryInt(c, "page_size", defaultPageSize)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		filters, err := conflictFilters(c)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		result, err := svc.ListConflicts(c.Request.Context(), filters, page, pageSize)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/geojson", func(c *gin.Context) {
		ys, err := queryOptInt(c, "year_start")
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		ye, err := queryOptInt(c, "year_end")
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		fc, err := svc.GeoJSON(c.Request.Context(), ys, ye)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, fc)
	})

	rg.GET("/timeline", func(c *gin.Context) {
		ys, err := queryOptInt(c, "year_start")
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		ye, err := queryOptInt(c, "year_end")
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		granularity := models.Granularity(c.DefaultQuery("granularity", string(models.GranularityDecade)))
		points, err := svc.Timeline(c.Request.Context(), ys, ye, granularity)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, points)
	})

	rg.GET("/by-slug/:slug", func(c *gin.Context) {
		detail, err := svc.GetConflictBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	rg.GET("/:id", func(c *gin.Context) {
		detail, err := svc.GetConflictByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	})
}

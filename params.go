package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"red-subcontinent/models"
	"red-subcontinent/services"
)

// writeServiceError übersetzt Service-Fehler in Statuscodes mit {"detail": ...}.
func writeServiceError(c *gin.Context, log *zap.Logger, err error) {
	var ipe *services.InvalidParameterError
	switch {
	case errors.As(err, &ipe):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Detail: ipe.Error()})
	case errors.Is(err, services.ErrInvalidParameter):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Detail: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Conflict not found"})
	case errors.Is(err, services.ErrStore):
		log.Error("Conflict store query failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Detail: "Conflict store unavailable"})
	default:
		log.Error("Unhandled service error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "Internal server error"})
	}
}

func invalidQuery(param, detail string) error {
	return &services.InvalidParameterError{Param: param, Detail: detail}
}

// queryInt liest einen ganzzahligen Parameter; fehlt er, gilt def.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalidQuery(name, "must be an integer")
	}
	return v, nil
}

// queryOptInt liefert nil, wenn der Parameter fehlt.
func queryOptInt(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, invalidQuery(name, "must be an integer")
	}
	return &v, nil
}

func queryOptInt64(c *gin.Context, name string) (*int64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, invalidQuery(name, "must be an integer")
	}
	return &v, nil
}

// queryList sammelt wiederholte Parameter; kommagetrennte Werte werden zusätzlich aufgeteilt.
func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// conflictFilters baut die Listenfilter aus der Query.
func conflictFilters(c *gin.Context) (services.ConflictFilters, error) {
	var (
		f   services.ConflictFilters
		err error
	)
	if f.YearStart, err = queryOptInt(c, "year_start"); err != nil {
		return f, err
	}
	if f.YearEnd, err = queryOptInt(c, "year_end"); err != nil {
		return f, err
	}
	if f.MinCasualties, err = queryOptInt64(c, "min_casualties"); err != nil {
		return f, err
	}
	if f.MaxCasualties, err = queryOptInt64(c, "max_casualties"); err != nil {
		return f, err
	}
	for _, t := range queryList(c, "conflict_type") {
		f.Types = append(f.Types, models.ConflictType(t))
	}
	f.Region = c.Query("region")
	f.Search = c.Query("search")
	return f, nil
}

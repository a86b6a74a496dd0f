package client

import (
	"context"
	"net/http"
	"net/url"

	"red-subcontinent/models"
)

// HealthStatus ist die Antwort von /health.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// invalidShape meldet Antworten, die die Datensatz-Invarianten verletzen.
func (c *Client) invalidShape(path string, err error) error {
	return c.fail(http.MethodGet, path, &APIError{Kind: KindServer, Status: http.StatusOK, Detail: "invalid response data", Err: err})
}

// ListConflicts liefert eine Seite der gefilterten Konfliktliste.
func (c *Client) ListConflicts(ctx context.Context, p ListParams) (*models.PaginatedConflicts, error) {
	const path = "/api/conflicts"
	var out models.PaginatedConflicts
	err := c.get(ctx, path, p.Query(), &out, func() error {
		for i := range out.Items {
			if err := out.Items[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConflict lädt einen Datensatz über seine UUID.
func (c *Client) GetConflict(ctx context.Context, id string) (*models.ConflictDetail, error) {
	return c.detail(ctx, "/api/conflicts/"+url.PathEscape(id))
}

// GetConflictBySlug lädt einen Datensatz über seinen Slug.
func (c *Client) GetConflictBySlug(ctx context.Context, slug string) (*models.ConflictDetail, error) {
	return c.detail(ctx, "/api/conflicts/by-slug/"+url.PathEscape(slug))
}

func (c *Client) detail(ctx context.Context, path string) (*models.ConflictDetail, error) {
	var out models.ConflictDetail
	if err := c.get(ctx, path, nil, &out, out.Validate); err != nil {
		return nil, err
	}
	return &out, nil
}

// GeoJSON liefert die Kartenpunkte im Jahresbereich.
func (c *Client) GeoJSON(ctx context.Context, yearStart, yearEnd *int) (*models.FeatureCollection, error) {
	q := NewQuery().Set("year_start", yearStart).Set("year_end", yearEnd)
	var out models.FeatureCollection
	if err := c.Get(ctx, "/api/conflicts/geojson", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Timeline liefert die Zeitleisten-Buckets.
func (c *Client) Timeline(ctx context.Context, p TimelineParams) ([]models.TimelinePoint, error) {
	var out []models.TimelinePoint
	if err := c.Get(ctx, "/api/conflicts/timeline", p.Query(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StatsSummary(ctx context.Context) (*models.StatsSummary, error) {
	var out models.StatsSummary
	if err := c.Get(ctx, "/api/stats/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StatsByRegion liefert die Regionen mit den meisten Konflikten; limit 0 nutzt den Serverstandard.
func (c *Client) StatsByRegion(ctx context.Context, limit int) ([]models.RegionStat, error) {
	var out []models.RegionStat
	if err := c.Get(ctx, "/api/stats/by-region", limitQuery(limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StatsByDecade liefert die Dekaden eines Jahrhunderts; century 0 nutzt den Serverstandard.
func (c *Client) StatsByDecade(ctx context.Context, century int) ([]models.DecadeStat, error) {
	q := NewQuery()
	if century != 0 {
		q.Set("century", century)
	}
	var out []models.DecadeStat
	if err := c.Get(ctx, "/api/stats/by-decade", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListActors(ctx context.Context, limit int) ([]models.ActorSummary, error) {
	return c.actors(ctx, "/api/actors", limitQuery(limit))
}

// SearchActors sucht Akteure per Teilstring; q braucht mindestens zwei Zeichen.
func (c *Client) SearchActors(ctx context.Context, q string, limit int) ([]models.ActorSummary, error) {
	return c.actors(ctx, "/api/actors/search", limitQuery(limit).Set("q", q))
}

func (c *Client) ActorsByRole(ctx context.Context, role models.ActorRole, limit int) ([]models.ActorSummary, error) {
	return c.actors(ctx, "/api/actors/by-role/"+url.PathEscape(string(role)), limitQuery(limit))
}

func (c *Client) actors(ctx context.Context, path string, q *Query) ([]models.ActorSummary, error) {
	var out []models.ActorSummary
	if err := c.Get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health fragt den Dienststatus ab. Ein 503 kommt als *APIError zurück.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	body, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := c.decode(http.MethodGet, "/health", http.StatusOK, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func limitQuery(limit int) *Query {
	q := NewQuery()
	if limit > 0 {
		q.Set("limit", limit)
	}
	return q
}

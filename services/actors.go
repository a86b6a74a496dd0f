package services

import (
	"context"
	"strings"

	"red-subcontinent/models"
)

const (
	DefaultActorLimit  = 100
	MaxActorLimit      = 500
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	DefaultRoleLimit   = 50
	MaxRoleLimit       = 200
	minSearchLength    = 2
)

// Auftritte zählen Datensätze, nicht Zeilen.
const actorSelect = "name, role, COUNT(DISTINCT conflict_id) AS appearance_count"

// ListActors liefert die häufigsten Akteure.
func (s *ConflictService) ListActors(ctx context.Context, limit int) ([]models.ActorSummary, error) {
	if limit < 1 || limit > MaxActorLimit {
		return nil, invalidParam("limit", "must be between 1 and %d", MaxActorLimit)
	}
	return s.actors(ctx, "list actors", limit, "", nil)
}

// SearchActors sucht case-insensitiv nach Namensbestandteilen.
func (s *ConflictService) SearchActors(ctx context.Context, q string, limit int) ([]models.ActorSummary, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchLength {
		return nil, invalidParam("q", "must be at least %d characters", minSearchLength)
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, invalidParam("limit", "must be between 1 and %d", MaxSearchLimit)
	}
	return s.actors(ctx, "search actors", limit, "LOWER(name) LIKE ? ESCAPE '\\'", likePattern(q))
}

// ActorsByRole filtert auf eine Rolle.
func (s *ConflictService) ActorsByRole(ctx context.Context, role models.ActorRole, limit int) ([]models.ActorSummary, error) {
	if !role.Valid() {
		return nil, invalidParam("role", "unknown actor role %q", role)
	}
	if limit < 1 || limit > MaxRoleLimit {
		return nil, invalidParam("limit", "must be between 1 and %d", MaxRoleLimit)
	}
	return s.actors(ctx, "actors by role", limit, "role = ?", role)
}

func (s *ConflictService) actors(ctx context.Context, op string, limit int, cond string, arg interface{}) ([]models.ActorSummary, error) {
	q := s.DB.WithContext(ctx).Model(&models.ConflictActor{}).Select(actorSelect)
	if cond != "" {
		q = q.Where(cond, arg)
	}
	out := []models.ActorSummary{}
	err := q.Group("name, role").
		Order("appearance_count DESC, name").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

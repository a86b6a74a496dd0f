package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"red-subcontinent/models"
	"red-subcontinent/providers"
)

const (
	RawFileName     = "raw_conflicts.json"
	CleanedFileName = "cleaned_conflicts.json"

	maxLocations  = 5
	maxReferences = 5
)

// ErrSkipped markiert Rohdatensätze, die zu unvollständig für einen Eintrag sind.
var ErrSkipped = errors.New("record skipped")

// Archiver legt Dateien extern ab, z.B. in S3.
type Archiver interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Pipeline orchestriert Scrapen, Bereinigen, Laden und Archivieren.
type Pipeline struct {
	Providers  []providers.Provider
	Geocoder   *Geocoder
	Casualties *CasualtyParser
	DB         *gorm.DB
	Archive    Archiver
	OutputDir  string
	Logger     *zap.Logger
	Now        func() time.Time
}

// RunResult fasst einen Lauf zusammen.
type RunResult struct {
	Scraped    int      `json:"scraped" yaml:"scraped"`
	Cleaned    int      `json:"cleaned" yaml:"cleaned"`
	Skipped    int      `json:"skipped" yaml:"skipped"`
	Duplicates int      `json:"duplicates" yaml:"duplicates"`
	Loaded     int      `json:"loaded" yaml:"loaded"`
	Files      []string `json:"files" yaml:"files"`
	Archived   []string `json:"archived,omitempty" yaml:"archived,omitempty"`
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// Scrape fragt alle Provider ab. Ein fehlschlagender Provider bricht den Lauf
// nicht ab; ein Fehler wird nur geliefert, wenn kein Provider Daten lieferte.
func (p *Pipeline) Scrape(ctx context.Context) ([]models.RawConflict, error) {
	var (
		all  []models.RawConflict
		errs []error
	)
	for _, prov := range p.Providers {
		log := p.Logger.With(zap.String("provider", prov.Name()))
		raws, err := prov.Fetch(ctx)
		if err != nil {
			log.Error("Provider fetch failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", prov.Name(), err))
		}
		log.Info("Provider fetch finished", zap.Int("records", len(raws)))
		all = append(all, raws...)
	}
	recordsCounter.WithLabelValues(stageScraped).Add(float64(len(all)))
	if len(all) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// Clean bereinigt Rohdatensätze, entfernt Slug-Duplikate (der erste gewinnt)
// und verwirft Datensätze, die die Invarianten verletzen.
func (p *Pipeline) Clean(ctx context.Context, raws []models.RawConflict) ([]models.Conflict, RunResult) {
	res := RunResult{Scraped: len(raws)}
	seen := make(map[string]bool, len(raws))
	out := make([]models.Conflict, 0, len(raws))
	for _, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		c, err := p.CleanOne(ctx, raw)
		if err != nil {
			p.Logger.Debug("Skipping raw conflict", zap.String("title", raw.Title), zap.Error(err))
			res.Skipped++
			continue
		}
		if seen[c.Slug] {
			res.Duplicates++
			continue
		}
		seen[c.Slug] = true
		out = append(out, *c)
	}
	res.Cleaned = len(out)
	recordsCounter.WithLabelValues(stageCleaned).Add(float64(res.Cleaned))
	recordsCounter.WithLabelValues(stageSkipped).Add(float64(res.Skipped))
	recordsCounter.WithLabelValues(stageDuplicates).Add(float64(res.Duplicates))
	p.Logger.Info("Cleaning finished",
		zap.Int("input", len(raws)),
		zap.Int("cleaned", res.Cleaned),
		zap.Int("skipped", res.Skipped),
		zap.Int("duplicates", res.Duplicates))
	return out, res
}

// CleanOne wandelt einen Rohdatensatz in einen validierten Datensatz um.
func (p *Pipeline) CleanOne(ctx context.Context, raw models.RawConflict) (*models.Conflict, error) {
	title := CleanText(raw.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: no title", ErrSkipped)
	}
	slug := Slugify(title)
	if slug == "" {
		return nil, fmt.Errorf("%w: empty slug for %q", ErrSkipped, title)
	}

	dateText := raw.DateText
	if dateText == "" {
		dateText = raw.StartDateText
	}
	date := ParseDate(dateText)
	if raw.EndDateText != "" {
		if end := ParseDate(raw.EndDateText); end.End != nil && (date.Start == nil || !end.End.Before(*date.Start)) {
			date.End = end.End
		}
	}

	parser := p.Casualties
	if parser == nil {
		parser = defaultCasualtyParser
	}
	cas := parser.Parse(raw.CasualtiesText)

	locations := p.locations(ctx, raw.LocationText)
	names := make([]string, len(locations))
	for i, l := range locations {
		names[i] = l.Name
	}

	description := CleanText(raw.Description)
	c := &models.Conflict{
		Slug:                       slug,
		Title:                      Truncate(title, 500),
		ConflictType:               InferType(title, description),
		ConflictScale:              InferScale(names, cas.Best),
		StartDate:                  date.Start,
		EndDate:                    date.End,
		DatePrecision:              date.Precision,
		CasualtiesLow:              cas.Low,
		CasualtiesHigh:             cas.High,
		CasualtiesBest:             cas.Best,
		CasualtiesIncludesInjuries: cas.IncludesInjuries,
		DescriptionShort:           Truncate(description, 500),
		DescriptionLong:            description,
		Notes:                      joinNotes(CleanText(raw.Notes), resultNote(raw.ResultText)),
		Locations:                  locations,
		Actors:                     ParseActors(raw.BelligerentsText),
		Sources:                    p.sources(raw),
	}
	if cas.Valid() && cas.Notes != "" {
		c.UncertaintyNotes = cas.Notes
	}
	if len(locations) > 0 {
		c.PrimaryRegion = locations[0].Name
	}
	if prov, err := json.Marshal(raw); err == nil {
		c.Provenance = datatypes.JSON(prov)
	}
	c.SyncYears()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Pipeline) locations(ctx context.Context, text string) []models.ConflictLocation {
	text = CleanText(text)
	if text == "" {
		return nil
	}
	var out []models.ConflictLocation
	for _, part := range strings.Split(strings.ReplaceAll(text, ";", ","), ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		loc := models.ConflictLocation{Name: Truncate(name, 200), IsPrimary: len(out) == 0}
		if p.Geocoder != nil {
			if g := p.Geocoder.Geocode(ctx, name); g.Valid() {
				loc.Latitude, loc.Longitude = g.Latitude, g.Longitude
				loc.Notes = "geocoded via " + g.Source
			}
		}
		out = append(out, loc)
		if len(out) == maxLocations {
			break
		}
	}
	return out
}

func (p *Pipeline) sources(raw models.RawConflict) []models.ConflictSource {
	accessed := models.DateOf(p.now())
	st := models.SourceType(raw.SourceType)
	if !st.Valid() {
		st = models.SourceOther
		if strings.Contains(raw.SourceURL, "wikipedia.org") {
			st = models.SourceWikipedia
		}
	}
	out := []models.ConflictSource{{
		SourceType:   st,
		Title:        raw.SourceName,
		URL:          raw.SourceURL,
		CitationText: raw.Citation,
		AccessedDate: &accessed,
	}}
	if raw.SourceURL == "" && raw.Citation == "" && raw.SourceName == "" {
		out = nil
	}
	for i, ref := range raw.References {
		if i == maxReferences {
			break
		}
		out = append(out, models.ConflictSource{
			SourceType: models.SourceWikipedia,
			Title:      "Related Wikipedia article",
			URL:        ref,
		})
	}
	return out
}

func resultNote(result string) string {
	if r := CleanText(result); r != "" {
		return "Result: " + r
	}
	return ""
}

func joinNotes(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

var upsertColumns = []string{
	"title", "conflict_type", "conflict_scale",
	"start_date", "end_date", "date_precision", "start_year", "end_year",
	"casualties_low", "casualties_high", "casualties_best", "casualties_includes_injuries",
	"uncertainty_notes", "primary_region", "description_short", "description_long",
	"content_warning", "notes", "provenance", "updated_at",
}

// Load schreibt die Datensätze in einer Transaktion. Bestehende Slugs werden
// aktualisiert und behalten ihre ID; Orte, Akteure und Quellen werden ersetzt.
func (p *Pipeline) Load(ctx context.Context, conflicts []models.Conflict) (int, error) {
	if p.DB == nil {
		return 0, errors.New("no database configured")
	}
	if len(conflicts) == 0 {
		return 0, nil
	}
	slugs := make([]string, len(conflicts))
	for i := range conflicts {
		slugs[i] = conflicts[i].Slug
	}

	loaded := 0
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Conflict
		if err := tx.Select("id", "slug").Where("slug IN ?", slugs).Find(&existing).Error; err != nil {
			return fmt.Errorf("lookup existing slugs: %w", err)
		}
		ids := make(map[string]uuid.UUID, len(existing))
		for _, e := range existing {
			ids[e.Slug] = e.ID
		}

		done := make(map[string]bool, len(conflicts))
		for i := range conflicts {
			c := conflicts[i]
			if done[c.Slug] {
				continue
			}
			done[c.Slug] = true
			if err := c.Validate(); err != nil {
				return err
			}
			id, known := ids[c.Slug]
			if known {
				// Konfliktziel ist der Slug; die bestehende ID bleibt erhalten
				c.ID = uuid.Nil
			}
			err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			}).Create(&c).Error
			if err != nil {
				return fmt.Errorf("upsert %s: %w", c.Slug, err)
			}
			if known {
				c.ID = id
			}
			if err := replaceChildren(tx, &c); err != nil {
				return fmt.Errorf("children of %s: %w", c.Slug, err)
			}
			loaded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	recordsCounter.WithLabelValues(stageLoaded).Add(float64(loaded))
	p.Logger.Info("Conflicts loaded", zap.Int("count", loaded))
	return loaded, nil
}

func replaceChildren(tx *gorm.DB, c *models.Conflict) error {
	for _, m := range []interface{}{&models.ConflictLocation{}, &models.ConflictActor{}, &models.ConflictSource{}} {
		if err := tx.Where("conflict_id = ?", c.ID).Delete(m).Error; err != nil {
			return err
		}
	}
	for i := range c.Locations {
		c.Locations[i].ID, c.Locations[i].ConflictID = uuid.Nil, c.ID
	}
	for i := range c.Actors {
		c.Actors[i].ID, c.Actors[i].ConflictID = uuid.Nil, c.ID
	}
	for i := range c.Sources {
		c.Sources[i].ID, c.Sources[i].ConflictID = uuid.Nil, c.ID
	}
	if len(c.Locations) > 0 {
		if err := tx.Create(&c.Locations).Error; err != nil {
			return err
		}
	}
	if len(c.Actors) > 0 {
		if err := tx.Create(&c.Actors).Error; err != nil {
			return err
		}
	}
	if len(c.Sources) > 0 {
		if err := tx.Create(&c.Sources).Error; err != nil {
			return err
		}
	}
	return nil
}

// Run führt alle Schritte aus. Ohne DB wird nicht geladen, ohne Archiver
// nicht archiviert.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	started := time.Now()
	defer func() { runDuration.Observe(time.Since(started).Seconds()) }()

	raws, err := p.Scrape(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("scrape: %w", err)
	}
	rawPath, err := p.WriteJSON(RawFileName, raws)
	if err != nil {
		return RunResult{}, err
	}

	conflicts, res := p.Clean(ctx, raws)
	res.Files = append(res.Files, rawPath)
	cleanedPath, err := p.WriteJSON(CleanedFileName, conflicts)
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, cleanedPath)

	if p.Geocoder != nil {
		if err := p.Geocoder.SaveCache(); err != nil {
			p.Logger.Warn("Failed to save geocode cache", zap.Error(err))
		}
	}

	if p.DB != nil {
		loaded, err := p.Load(ctx, conflicts)
		if err != nil {
			return res, fmt.Errorf("load: %w", err)
		}
		res.Loaded = loaded
	}

	if p.Archive != nil {
		links, err := p.ArchiveFiles(ctx, res.Files)
		if err != nil {
			// Archivierung ist nachrangig, der Lauf gilt trotzdem
			p.Logger.Error("Archiving ETL output failed", zap.Error(err))
		}
		res.Archived = links
	}
	return res, nil
}

// ArchiveFiles lädt die Dateien unter einem Zeitstempel-Präfix hoch.
func (p *Pipeline) ArchiveFiles(ctx context.Context, paths []string) ([]string, error) {
	stamp := p.now().Format("20060102T150405Z")
	var links []string
	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return links, err
		}
		key := stamp + "/" + filepath.Base(path)
		link, err := p.Archive.Upload(ctx, key, body, "application/json")
		if err != nil {
			return links, fmt.Errorf("upload %s: %w", key, err)
		}
		p.Logger.Info("Archived ETL output", zap.String("key", key))
		links = append(links, link)
	}
	return links, nil
}

// WriteJSON schreibt v formatiert nach OutputDir/name.
func (p *Pipeline) WriteJSON(name string, v interface{}) (string, error) {
	dir := p.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	p.Logger.Info("Wrote ETL output", zap.String("path", path))
	return path, nil
}

// ReadRaw liest eine mit WriteJSON geschriebene Rohdatei.
func ReadRaw(path string) ([]models.RawConflict, error) {
	var out []models.RawConflict
	return out, readJSON(path, &out)
}

// ReadCleaned liest eine bereinigte Datei.
func ReadCleaned(path string) ([]models.Conflict, error) {
	var out []models.Conflict
	return out, readJSON(path, &out)
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

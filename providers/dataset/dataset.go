// Package dataset liest Rohdatensätze aus akademischen Datensatz-Dateien
// (.json als Liste von Rohdatensätzen, .csv mit Kopfzeile).
package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"red-subcontinent/models"
	"red-subcontinent/providers"
)

// ErrUnsupportedFormat wird für unbekannte Dateiendungen geliefert.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Spalten, die unter ihrem Feldnamen direkt übernommen werden
var exactColumns = map[string]bool{
	"title": true, "date_text": true, "start_date_text": true, "end_date_text": true,
	"location_text": true, "casualties_text": true, "belligerents_text": true,
	"result_text": true, "description": true, "notes": true, "source_url": true,
	"source_name": true, "source_type": true, "citation": true,
}

// DatasetProvider implementiert providers.Provider für lokale Dateien.
type DatasetProvider struct {
	paths  []string
	logger *zap.Logger
}

func NewDatasetProvider(paths []string, logger *zap.Logger) *DatasetProvider {
	return &DatasetProvider{paths: paths, logger: logger}
}

func (p *DatasetProvider) Name() string {
	return "dataset"
}

// Fetch lädt alle Dateien. Eine unlesbare Datei bricht den Lauf ab.
func (p *DatasetProvider) Fetch(ctx context.Context) ([]models.RawConflict, error) {
	var all []models.RawConflict
	for _, path := range p.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raws, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		p.logger.Info("Loaded dataset", zap.String("path", path), zap.Int("records", len(raws)))
		all = append(all, raws...)
	}
	return all, nil
}

// LoadFile liest eine Datei anhand ihrer Endung. Fehlende Quellenangaben
// werden mit dem Dateinamen und dem Typ "database" ergänzt.
func LoadFile(path string) ([]models.RawConflict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var raws []models.RawConflict
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		raws, err = ParseJSON(f)
	case ".csv":
		raws, err = ParseCSV(f)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := range raws {
		if raws[i].SourceName == "" {
			raws[i].SourceName = name
		}
		if raws[i].SourceType == "" {
			raws[i].SourceType = string(models.SourceDatabase)
		}
	}
	return raws, nil
}

// ParseJSON liest eine Liste von Rohdatensätzen.
func ParseJSON(r io.Reader) ([]models.RawConflict, error) {
	var raws []models.RawConflict
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return raws, nil
}

// ParseCSV liest eine CSV-Datei mit Kopfzeile. Spalten mit Feldnamen werden
// direkt übernommen, übrige über dieselben Schlüsselwörter wie Wikipedia-Tabellen.
// Die Spalte "references" enthält durch "|" getrennte URLs.
func ParseCSV(r io.Reader) ([]models.RawConflict, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	columns, refCol := csvColumns(header)

	var raws []models.RawConflict
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var raw models.RawConflict
		for field, idx := range columns {
			if idx < len(record) {
				raw.RawField(field, strings.TrimSpace(record[idx]))
			}
		}
		if refCol >= 0 && refCol < len(record) {
			for _, ref := range strings.Split(record[refCol], "|") {
				if ref = strings.TrimSpace(ref); ref != "" {
					raw.References = append(raw.References, ref)
				}
			}
		}
		if raw.Title == "" {
			continue
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// csvColumns liefert die Feldzuordnung und die Spalte der Referenzen (-1 ohne).
func csvColumns(header []string) (map[string]int, int) {
	columns := map[string]int{}
	refCol := -1
	rest := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		switch {
		case key == "references":
			refCol = i
		case exactColumns[key]:
			columns[key] = i
		default:
			rest[i] = key
		}
	}
	// Die Titel-Rückfallspalte von MapColumns gilt nur, wenn sie frei ist
	for field, idx := range providers.MapColumns(rest) {
		if _, ok := columns[field]; ok || rest[idx] == "" {
			continue
		}
		columns[field] = idx
	}
	return columns, refCol
}

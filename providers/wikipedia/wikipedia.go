// Package wikipedia liest Konfliktlisten aus Wikipedia-Tabellen.
package wikipedia

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"red-subcontinent/models"
)

// DefaultPages sind die Listenseiten, die standardmäßig gelesen werden.
var DefaultPages = []string{
	// Kriege nach Land
	"https://en.wikipedia.org/wiki/List_of_wars_involving_India",
	"https://en.wikipedia.org/wiki/List_of_wars_involving_Pakistan",
	"https://en.wikipedia.org/wiki/List_of_wars_involving_Bangladesh",
	"https://en.wikipedia.org/wiki/List_of_wars_involving_Afghanistan",

	// Massaker
	"https://en.wikipedia.org/wiki/List_of_massacres_in_India",
	"https://en.wikipedia.org/wiki/List_of_massacres_in_Pakistan",
	"https://en.wikipedia.org/wiki/List_of_massacres_in_Bangladesh",

	"https://en.wikipedia.org/wiki/Indo-Pakistani_wars_and_conflicts",
	"https://en.wikipedia.org/wiki/List_of_modern_conflicts_in_South_Asia",
	"https://en.wikipedia.org/wiki/Rebellions_in_British_India",
	"https://en.wikipedia.org/wiki/Partition_of_India",
}

// WikipediaProvider implementiert providers.Provider für eine Seitenliste.
type WikipediaProvider struct {
	pages   []string
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewWikipediaProvider erstellt einen Provider; ohne Seiten gilt DefaultPages.
func NewWikipediaProvider(pages []string, cfg Config, logger *zap.Logger) *WikipediaProvider {
	if len(pages) == 0 {
		pages = DefaultPages
	}
	return &WikipediaProvider{
		pages:   pages,
		fetcher: NewFetcher(cfg, logger),
		logger:  logger,
	}
}

func (p *WikipediaProvider) Name() string {
	return "wikipedia"
}

// Fetch liest alle Seiten. Einzelne Fehlschläge werden protokolliert und
// übersprungen; ein Fehler kommt nur, wenn keine Seite gelesen werden konnte.
func (p *WikipediaProvider) Fetch(ctx context.Context) ([]models.RawConflict, error) {
	var (
		all  []models.RawConflict
		errs []error
		ok   int
	)
	for _, page := range p.pages {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		log := p.logger.With(zap.String("url", page))
		doc, err := p.fetcher.Fetch(ctx, page)
		if err != nil {
			log.Error("Failed to scrape page", zap.Error(err))
			errs = append(errs, err)
			continue
		}
		raws, err := ParsePage(doc, page)
		if err != nil {
			log.Error("Failed to parse page", zap.Error(err))
			errs = append(errs, err)
			continue
		}
		ok++
		log.Info("Scraped page", zap.Int("records", len(raws)))
		all = append(all, raws...)
	}
	if ok == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("no page could be scraped: %w", errors.Join(errs...))
	}
	return all, nil
}

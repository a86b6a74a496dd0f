package providers

import (
	"context"

	"red-subcontinent/models"
)

// Provider ist das Interface, das jede Rohdatenquelle (z.B. Wikipedia, Datensatz-Dateien) implementieren muss.
type Provider interface {
	// Fetch lädt alle Rohdatensätze der Quelle.
	Fetch(ctx context.Context) ([]models.RawConflict, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "wikipedia").
	Name() string
}

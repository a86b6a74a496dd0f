package etl

import (
	"strings"

	"red-subcontinent/models"
)

// Reihenfolge ist relevant: spezifischere Typen zuerst.
var typeKeywords = []struct {
	t     models.ConflictType
	words []string
}{
	{models.ConflictMassacre, []string{"massacre", "pogrom", "slaughter"}},
	{models.ConflictRiot, []string{"riot"}},
	{models.ConflictFamine, []string{"famine", "starvation"}},
	{models.ConflictPartitionEvent, []string{"partition"}},
	{models.ConflictUprising, []string{"uprising", "revolt", "rebellion", "mutiny", "insurgency"}},
	{models.ConflictInvasion, []string{"invasion", "invaded"}},
	{models.ConflictImperialCampaign, []string{"campaign", "conquest", "expedition"}},
	{models.ConflictCivilConflict, []string{"civil war"}},
	{models.ConflictCommunalViolence, []string{"communal", "sectarian"}},
	{models.ConflictWar, []string{"war", "battle", "siege"}},
}

// InferType leitet den Ereignistyp aus Titel und Beschreibung ab.
func InferType(title, description string) models.ConflictType {
	text := strings.ToLower(title + " " + description)
	for _, k := range typeKeywords {
		for _, w := range k.words {
			if strings.Contains(text, w) {
				return k.t
			}
		}
	}
	return models.ConflictOther
}

// InferScale leitet die Ausdehnung aus Opferzahl und Anzahl der Orte ab.
func InferScale(locations []string, bestCasualties *int64) models.ConflictScale {
	if bestCasualties != nil {
		switch {
		case *bestCasualties > 100000:
			return models.ScaleSubcontinental
		case *bestCasualties > 1000:
			return models.ScaleRegional
		}
	}
	if len(locations) > 3 {
		return models.ScaleRegional
	}
	return models.ScaleLocal
}

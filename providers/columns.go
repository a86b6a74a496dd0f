package providers

import "strings"

// fieldPatterns ordnet Rohfelder den Schlüsselwörtern zu, an denen eine
// Tabellen- oder CSV-Spalte erkannt wird. Die Reihenfolge ist verbindlich.
var fieldPatterns = []struct {
	field    string
	patterns []string
}{
	{"title", []string{"conflict", "war", "name", "event", "battle", "massacre", "incident", "uprising"}},
	{"date_text", []string{"date", "year", "period", "time"}},
	{"location_text", []string{"location", "place", "region", "area", "where"}},
	{"casualties_text", []string{"casualties", "deaths", "killed", "fatalities", "victims", "dead"}},
	{"belligerents_text", []string{"belligerents", "combatants", "parties", "sides", "forces", "participants"}},
	{"result_text", []string{"result", "outcome", "status"}},
	{"description", []string{"description", "summary", "notes", "details"}},
}

// MapColumns ordnet normalisierte Spaltenköpfe den Rohfeldern zu. Jedes Feld
// nimmt die erste passende Spalte; eine Spalte kann mehrere Felder bedienen.
// Ohne erkannte Titelspalte gilt die erste Spalte als Titel. Leere Köpfe
// liefern eine leere Zuordnung.
func MapColumns(headers []string) map[string]int {
	if len(headers) == 0 {
		return map[string]int{}
	}
	columns := map[string]int{}
	for i, h := range headers {
		h = strings.ToLower(h)
		for _, fp := range fieldPatterns {
			if _, ok := columns[fp.field]; ok {
				continue
			}
			for _, p := range fp.patterns {
				if strings.Contains(h, p) {
					columns[fp.field] = i
					break
				}
			}
		}
	}
	if _, ok := columns["title"]; !ok {
		columns["title"] = 0
	}
	return columns
}

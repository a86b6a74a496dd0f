package etl

import (
	"regexp"
	"strings"

	"red-subcontinent/models"
)

var (
	reSides   = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|v\.)\s+|\s*;\s*|\n+`)
	reParties = regexp.MustCompile(`\s*,\s*|\s*/\s*`)
)

var roleKeywords = []struct {
	role  models.ActorRole
	words []string
}{
	{models.RoleColonialPower, []string{"east india company", "british", "portuguese", "dutch", "french", "danish", "crown rule"}},
	{models.RoleRebelGroup, []string{"rebel", "insurgent", "mutineer", "militant", "separatist", "guerrilla", "liberation"}},
	{models.RoleEmpire, []string{"empire", "sultanate", "caliphate", "dynasty"}},
	{models.RoleKingdom, []string{"kingdom", "principality", "confederacy", "state of", "nawab", "rajput"}},
	{models.RoleState, []string{"india", "pakistan", "bangladesh", "afghanistan", "sri lanka", "nepal", "republic", "government", "army"}},
}

// ParseActors zerlegt eine Kriegsparteien-Angabe in Akteure. Seiten werden
// an "vs", Semikolon und Zeilenumbruch getrennt, Parteien einer Seite am
// Komma. Ohne Schlüsselwort wird die erste Seite als Angreifer und die
// zweite als Verteidiger eingestuft.
func ParseActors(text string) []models.ConflictActor {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	if text == "" {
		return nil
	}
	sides := reSides.Split(text, -1)
	seen := make(map[string]bool)
	var out []models.ConflictActor
	for i, side := range sides {
		for _, name := range reParties.Split(side, -1) {
			name = strings.Trim(CleanText(name), " .:-()")
			key := strings.ToLower(name)
			if len(name) < 2 || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, models.ConflictActor{Name: Truncate(name, 300), Role: actorRole(key, i, len(sides))})
		}
	}
	return out
}

func actorRole(lowerName string, side, sides int) models.ActorRole {
	for _, k := range roleKeywords {
		for _, w := range k.words {
			if strings.Contains(lowerName, w) {
				return k.role
			}
		}
	}
	if sides == 2 {
		if side == 0 {
			return models.RoleAggressor
		}
		return models.RoleDefender
	}
	return models.RoleOther
}

package etl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"red-subcontinent/models"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "first-battle-of-panipat", Slugify("First Battle of Panipat"))
	assert.Equal(t, "panipat-1526", Slugify("Pānīpat (1526)"))
	assert.Equal(t, "indo-pakistani-war-of-1971", Slugify("Indo-Pakistani War of 1971"))
	assert.Equal(t, "nadir-shahs-invasion", Slugify("Nadir Shah's  invasion"))
	assert.Equal(t, "", Slugify("—"))

	long := Slugify(strings.Repeat("siege of delhi ", 20))
	assert.LessOrEqual(t, len(long), MaxSlugLength)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Battle of Plassey", CleanText("  Battle of Plassey[1] "))
	assert.Equal(t, "Siege of Delhi", CleanText("Siege of Delhi[citation needed]"))
	assert.Equal(t, "a b", CleanText("a\n\t b"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "Pān", Truncate("Pānīpat", 3))
}

func TestInferType(t *testing.T) {
	tests := map[string]models.ConflictType{
		"Jallianwala Bagh massacre":   models.ConflictMassacre,
		"1984 anti-Sikh riots":        models.ConflictRiot,
		"Bengal famine of 1943":       models.ConflictFamine,
		"Partition of India":          models.ConflictPartitionEvent,
		"Indian Rebellion of 1857":    models.ConflictUprising,
		"Timur's invasion of India":   models.ConflictInvasion,
		"Deccan campaign of Aurangzeb": models.ConflictImperialCampaign,
		"Sri Lankan Civil War":        models.ConflictCivilConflict,
		"Communal violence in Gujarat": models.ConflictCommunalViolence,
		"Third Battle of Panipat":     models.ConflictWar,
		"Treaty of Amritsar":          models.ConflictOther,
	}
	for title, want := range tests {
		assert.Equal(t, want, InferType(title, ""), title)
	}
	assert.Equal(t, models.ConflictMassacre, InferType("Events at Amritsar", "a massacre of civilians"))
}

func TestInferScale(t *testing.T) {
	assert.Equal(t, models.ScaleSubcontinental, InferScale(nil, n(1000000)))
	assert.Equal(t, models.ScaleRegional, InferScale(nil, n(5000)))
	assert.Equal(t, models.ScaleRegional, InferScale([]string{"a", "b", "c", "d"}, n(10)))
	assert.Equal(t, models.ScaleLocal, InferScale([]string{"a"}, nil))
}

func TestParseActors(t *testing.T) {
	actors := ParseActors("Mughal Empire vs Lodi dynasty, Rajput allies")
	if assert.Len(t, actors, 3) {
		assert.Equal(t, "Mughal Empire", actors[0].Name)
		assert.Equal(t, models.RoleEmpire, actors[0].Role)
		assert.Equal(t, "Lodi dynasty", actors[1].Name)
		assert.Equal(t, models.RoleEmpire, actors[1].Role)
		assert.Equal(t, models.RoleKingdom, actors[2].Role)
	}

	actors = ParseActors("Maratha forces\nAfghan invaders")
	if assert.Len(t, actors, 2) {
		assert.Equal(t, models.RoleAggressor, actors[0].Role)
		assert.Equal(t, models.RoleDefender, actors[1].Role)
	}

	actors = ParseActors("East India Company; Indian rebels; British East India Company")
	if assert.Len(t, actors, 3) {
		assert.Equal(t, models.RoleColonialPower, actors[0].Role)
		assert.Equal(t, models.RoleRebelGroup, actors[1].Role)
	}

	assert.Empty(t, ParseActors("   "))
	assert.Len(t, ParseActors("India, india"), 1)
}

package dbtest

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"red-subcontinent/models"
)

func i64(v int64) *int64 { return &v }
func f64(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) *models.Date {
	v := models.NewDate(y, m, d)
	return &v
}

func wiki(page string) []models.ConflictSource {
	return []models.ConflictSource{{
		SourceType: models.SourceWikipedia,
		Title:      page,
		URL:        "https://en.wikipedia.org/wiki/" + page,
	}}
}

// Conflicts ist der Standard-Testbestand: sieben Datensätze, davon einer
// undatiert und zwei ohne Koordinaten.
func Conflicts() []models.Conflict {
	return []models.Conflict{
		{
			Slug: "partition-of-india", Title: "Partition of India",
			ConflictType: models.ConflictPartitionEvent, ConflictScale: models.ScaleSubcontinental,
			StartDate: date(1947, time.August, 14), EndDate: date(1948, time.January, 1),
			DatePrecision: models.PrecisionExact,
			CasualtiesLow: i64(200000), CasualtiesBest: i64(1000000), CasualtiesHigh: i64(2000000),
			PrimaryRegion: "Punjab", DescriptionShort: "Division of British India into two dominions.",
			Locations: []models.ConflictLocation{
				{Name: "Punjab", Latitude: f64(31.1471), Longitude: f64(75.3412), IsPrimary: true},
				{Name: "Bengal"},
			},
			Actors:  []models.ConflictActor{{Name: "British Empire", Role: models.RoleColonialPower}},
			Sources: wiki("Partition_of_India"),
		},
		{
			Slug: "first-battle-of-panipat", Title: "First Battle of Panipat",
			ConflictType: models.ConflictWar, ConflictScale: models.ScaleRegional,
			StartDate: date(1526, time.April, 21), EndDate: date(1526, time.April, 21),
			DatePrecision: models.PrecisionExact,
			CasualtiesLow: i64(20000), CasualtiesBest: i64(35000), CasualtiesHigh: i64(50000),
			PrimaryRegion: "Panipat", DescriptionShort: "Babur defeats Ibrahim Lodi.",
			Locations: []models.ConflictLocation{{Name: "Panipat", Latitude: f64(29.3909), Longitude: f64(76.9635), IsPrimary: true}},
			Actors: []models.ConflictActor{
				{Name: "Mughal Empire", Role: models.RoleEmpire},
				{Name: "Lodi dynasty", Role: models.RoleEmpire},
			},
			Sources: wiki("First_Battle_of_Panipat"),
		},
		{
			Slug: "third-battle-of-panipat", Title: "Third Battle of Panipat",
			ConflictType: models.ConflictWar, ConflictScale: models.ScaleSubcontinental,
			StartDate: date(1761, time.January, 14), DatePrecision: models.PrecisionExact,
			CasualtiesLow: i64(60000), CasualtiesBest: i64(100000), CasualtiesHigh: i64(120000),
			PrimaryRegion: "Panipat",
			Locations:     []models.ConflictLocation{{Name: "Panipat", Latitude: f64(29.3909), Longitude: f64(76.9635), IsPrimary: true}},
			Actors: []models.ConflictActor{
				{Name: "Maratha Empire", Role: models.RoleEmpire},
				{Name: "Durrani Empire", Role: models.RoleEmpire},
			},
			Sources: wiki("Third_Battle_of_Panipat"),
		},
		{
			Slug: "bengal-famine-of-1943", Title: "Bengal famine of 1943",
			ConflictType: models.ConflictFamine, ConflictScale: models.ScaleRegional,
			StartDate: date(1943, time.January, 1), EndDate: date(1944, time.December, 31),
			DatePrecision: models.PrecisionYear,
			CasualtiesLow: i64(800000), CasualtiesBest: i64(3000000), CasualtiesHigh: i64(3800000),
			PrimaryRegion: "Bengal",
			Locations:     []models.ConflictLocation{{Name: "Bengal", IsPrimary: true}},
			Sources:       wiki("Bengal_famine_of_1943"),
		},
		{
			Slug: "jallianwala-bagh-massacre", Title: "Jallianwala Bagh massacre",
			ConflictType: models.ConflictMassacre, ConflictScale: models.ScaleLocal,
			StartDate: date(1919, time.April, 13), DatePrecision: models.PrecisionExact,
			CasualtiesLow: i64(379), CasualtiesBest: i64(1000), CasualtiesHigh: i64(1500),
			PrimaryRegion: "Amritsar", ContentWarning: "Mass killing of civilians",
			Locations: []models.ConflictLocation{{Name: "Amritsar", Latitude: f64(31.6340), Longitude: f64(74.8723), IsPrimary: true}},
			Actors:    []models.ConflictActor{{Name: "British Empire", Role: models.RoleColonialPower}},
			Sources:   wiki("Jallianwala_Bagh_massacre"),
		},
		{
			Slug: "indo-pakistani-war-of-1947", Title: "Indo-Pakistani War of 1947",
			ConflictType: models.ConflictWar, ConflictScale: models.ScaleInternational,
			StartDate: date(1947, time.October, 22), EndDate: date(1949, time.January, 1),
			DatePrecision: models.PrecisionExact,
			CasualtiesBest: i64(7000),
			PrimaryRegion:  "Kashmir",
			Locations:      []models.ConflictLocation{{Name: "Kashmir", Latitude: f64(34.0837), Longitude: f64(74.7973), IsPrimary: true}},
			Actors: []models.ConflictActor{
				{Name: "Dominion of India", Role: models.RoleState},
				{Name: "Dominion of Pakistan", Role: models.RoleState},
			},
			Sources: wiki("Indo-Pakistani_war_of_1947–1948"),
		},
		{
			Slug: "undated-border-skirmish", Title: "Border skirmish of unknown date",
			ConflictType: models.ConflictOther, ConflictScale: models.ScaleLocal,
			DatePrecision: models.PrecisionCentury,
			Sources:       []models.ConflictSource{{SourceType: models.SourceOther, CitationText: "Oral history"}},
		},
	}
}

// Seed schreibt Conflicts() in die Datenbank und liefert die gespeicherten
// Datensätze mit vergebenen IDs.
func Seed(t testing.TB, db *gorm.DB) []models.Conflict {
	t.Helper()
	conflicts := Conflicts()
	for i := range conflicts {
		if err := conflicts[i].Validate(); err != nil {
			t.Fatalf("fixture %s: %v", conflicts[i].Slug, err)
		}
		if err := db.Create(&conflicts[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", conflicts[i].Slug, err)
		}
	}
	return conflicts
}

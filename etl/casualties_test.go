package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertFigures(t *testing.T, got ParsedCasualties, low, high, best int64) {
	t.Helper()
	require.True(t, got.Valid(), "expected figures for %q", got.Text)
	require.NotNil(t, got.Low)
	require.NotNil(t, got.High)
	require.NotNil(t, got.Best)
	assert.Equal(t, low, *got.Low, "low")
	assert.Equal(t, high, *got.High, "high")
	assert.Equal(t, best, *got.Best, "best")
}

func TestParseCasualtiesNumeric(t *testing.T) {
	tests := []struct {
		in              string
		low, high, best int64
	}{
		{"50,000", 50000, 50000, 50000},
		{"20,000-50,000", 20000, 50000, 35000},
		{"20000 to 50000", 20000, 50000, 35000},
		{"10,000–100,000 killed", 10000, 100000, 31622},
		{"1-2 million", 1000000, 2000000, 1500000},
		{"over 5,000 killed", 5000, 7500, 6000},
		{"more than 10,000", 10000, 15000, 12000},
		{"about 3,000", 2400, 3600, 3000},
		{"~50000 dead", 40000, 60000, 50000},
		{"3 lakh", 300000, 300000, 300000},
		{"2.5 million", 2500000, 2500000, 2500000},
		{"In 1857, 2,000 dead", 2000, 2000, 2000},
		{"1857-1858: 800 killed", 800, 800, 800},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assertFigures(t, ParseCasualties(tt.in), tt.low, tt.high, tt.best)
		})
	}
}

func TestParseCasualtiesPhrases(t *testing.T) {
	got := ParseCasualties("tens of thousands")
	assertFigures(t, got, 10000, 99000, 30000)
	assert.Equal(t, "Interpreted from 'tens of thousands'", got.Notes)

	// die längere Formulierung gewinnt
	assertFigures(t, ParseCasualties("several hundred"), 200, 900, 500)
	assertFigures(t, ParseCasualties("several hundred thousand"), 200000, 900000, 500000)
	assertFigures(t, ParseCasualties("Hundreds of thousands"), 100000, 900000, 300000)

	vague := ParseCasualties("heavy casualties")
	assert.False(t, vague.Valid())
	assert.Equal(t, "Interpreted from 'heavy casualties'", vague.Notes)
}

func TestParseCasualtiesInjuries(t *testing.T) {
	assert.True(t, ParseCasualties("500 wounded").IncludesInjuries)
	assert.True(t, ParseCasualties("2,000 casualties").IncludesInjuries)
	assert.False(t, ParseCasualties("500 killed and 200 wounded").IncludesInjuries)
	assert.False(t, ParseCasualties("500").IncludesInjuries)
}

func TestParseCasualtiesUnparseable(t *testing.T) {
	got := ParseCasualties("no reliable figures")
	assert.False(t, got.Valid())
	assert.Equal(t, "Could not parse numeric value", got.Notes)

	empty := ParseCasualties("")
	assert.False(t, empty.Valid())
	assert.Empty(t, empty.Notes)
}

func TestParseCasualtiesOutOfRangeFigures(t *testing.T) {
	assert.False(t, ParseCasualties("99999999999999999999 killed").Valid())
	assert.False(t, ParseCasualties("about 99999999999999999999").Valid())
	assert.False(t, ParseCasualties("over 5000000 crore").Valid())

	// die Zahl fällt weg, die Formulierungstabelle greift weiterhin
	got := ParseCasualties("20000000000000 million dead")
	assertFigures(t, got, 1000000, 1000000, 1000000)

	for _, in := range []string{
		"1-99999999999999999999",
		"99999999999999999999 to 5",
		"10 to 2000000 crore",
	} {
		got := ParseCasualties(in)
		for _, v := range []*int64{got.Low, got.High, got.Best} {
			if v != nil {
				assert.GreaterOrEqual(t, *v, int64(0), in)
				assert.LessOrEqual(t, *v, int64(maxFigure), in)
			}
		}
	}
}

type fixedHeuristic struct{}

func (fixedHeuristic) Estimate(text string) (Estimate, bool) {
	if text == "a great many" {
		return Estimate{Low: n(1), High: n(3), Best: n(2), Phrase: "a great many"}, true
	}
	return Estimate{}, false
}

func TestCasualtyParserPluggableHeuristic(t *testing.T) {
	p := NewCasualtyParser(fixedHeuristic{})
	assertFigures(t, p.Parse("a great many"), 1, 3, 2)

	// Zahlen werden weiter ohne Heuristik erkannt
	assertFigures(t, p.Parse("1,200"), 1200, 1200, 1200)

	// die Standardtabelle ist nicht aktiv
	assert.False(t, p.Parse("tens of thousands").Valid())
}

func TestParsedCasualtiesRespectOrdering(t *testing.T) {
	inputs := []string{"20,000-50,000", "10-1,000,000", "over 7", "about 9", "few", "millions"}
	for _, in := range inputs {
		got := ParseCasualties(in)
		require.True(t, got.Valid(), in)
		assert.LessOrEqual(t, *got.Low, *got.Best, in)
		assert.LessOrEqual(t, *got.Best, *got.High, in)
	}
}

func TestBestFromRange(t *testing.T) {
	assert.Equal(t, int64(150), BestFromRange(100, 200))
	assert.Equal(t, int64(1000), BestFromRange(100, 10000))
	assert.Equal(t, int64(50), BestFromRange(0, 100))
}

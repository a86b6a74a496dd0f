package services

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"red-subcontinent/database/dbtest"
	"red-subcontinent/models"
)

func newSeededService(t *testing.T) (*ConflictService, []models.Conflict) {
	t.Helper()
	db := dbtest.Open(t)
	seeded := dbtest.Seed(t, db)
	svc := NewConflictService(db, zap.NewNop(), 0)
	svc.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc, seeded
}

func intp(v int) *int     { return &v }
func i64p(v int64) *int64 { return &v }

func slugs(items []models.ConflictListItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Slug
	}
	return out
}

func TestListConflictsChronological(t *testing.T) {
	svc, _ := newSeededService(t)
	page, err := svc.ListConflicts(context.Background(), ConflictFilters{}, 1, 50)
	require.NoError(t, err)

	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{
		"first-battle-of-panipat",
		"third-battle-of-panipat",
		"jallianwala-bagh-massacre",
		"bengal-famine-of-1943",
		"partition-of-india",
		"indo-pakistani-war-of-1947",
		"undated-border-skirmish",
	}, slugs(page.Items))

	require.NotNil(t, page.Items[0].PrimaryLocation)
	assert.Equal(t, "Panipat", page.Items[0].PrimaryLocation.Name)
	assert.Nil(t, page.Items[6].PrimaryLocation)
}

func TestListConflictsPartitionScenario(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	page, err := svc.ListConflicts(ctx, ConflictFilters{
		YearStart: intp(1947),
		YearEnd:   intp(1947),
		Types:     []models.ConflictType{models.ConflictPartitionEvent},
	}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"partition-of-india"}, slugs(page.Items))
	assert.Equal(t, int64(1), page.Total)

	summary, err := svc.StatsSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.TotalConflicts)
}

func TestListConflictsFilters(t *testing.T) {
	svc, _ := newSeededService(t)
	tests := []struct {
		name    string
		filters ConflictFilters
		want    []string
	}{
		{"year overlap", ConflictFilters{YearStart: intp(1947), YearEnd: intp(1947)},
			[]string{"partition-of-india", "indo-pakistani-war-of-1947"}},
		{"end year counts", ConflictFilters{YearStart: intp(1944), YearEnd: intp(1944)},
			[]string{"bengal-famine-of-1943"}},
		{"open end", ConflictFilters{YearStart: intp(1948)},
			[]string{"partition-of-india", "indo-pakistani-war-of-1947"}},
		{"open start", ConflictFilters{YearEnd: intp(1600)},
			[]string{"first-battle-of-panipat"}},
		{"types are OR", ConflictFilters{Types: []models.ConflictType{models.ConflictFamine, models.ConflictMassacre}},
			[]string{"jallianwala-bagh-massacre", "bengal-famine-of-1943"}},
		{"min casualties", ConflictFilters{MinCasualties: i64p(100000)},
			[]string{"third-battle-of-panipat", "bengal-famine-of-1943", "partition-of-india"}},
		{"casualty window", ConflictFilters{MinCasualties: i64p(1000), MaxCasualties: i64p(35000)},
			[]string{"first-battle-of-panipat", "jallianwala-bagh-massacre", "indo-pakistani-war-of-1947"}},
		{"region substring", ConflictFilters{Region: "PANI"},
			[]string{"first-battle-of-panipat", "third-battle-of-panipat"}},
		{"search title", ConflictFilters{Search: "battle"},
			[]string{"first-battle-of-panipat", "third-battle-of-panipat"}},
		{"search description", ConflictFilters{Search: "ibrahim"},
			[]string{"first-battle-of-panipat"}},
		{"wildcards are literal", ConflictFilters{Search: "%"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListConflicts(context.Background(), tt.filters, 1, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.want, slugs(page.Items))
			assert.Equal(t, int64(len(tt.want)), page.Total)
		})
	}
}

func TestListConflictsItemsSatisfyFilters(t *testing.T) {
	svc, seeded := newSeededService(t)
	bySlug := make(map[string]models.Conflict, len(seeded))
	for _, c := range seeded {
		bySlug[c.Slug] = c
	}

	years := [][2]*int{{nil, nil}, {intp(1500), intp(1800)}, {intp(1940), nil}, {nil, intp(1920)}}
	typeSets := [][]models.ConflictType{nil, {models.ConflictWar}, {models.ConflictWar, models.ConflictFamine}}
	bounds := [][2]*int64{{nil, nil}, {i64p(5000), nil}, {nil, i64p(50000)}}
	regions := []string{"", "panipat", "bengal"}

	for _, y := range years {
		for _, ts := range typeSets {
			for _, b := range bounds {
				for _, region := range regions {
					f := ConflictFilters{YearStart: y[0], YearEnd: y[1], Types: ts, MinCasualties: b[0], MaxCasualties: b[1], Region: region}
					page, err := svc.ListConflicts(context.Background(), f, 1, 50)
					require.NoError(t, err)
					for _, item := range page.Items {
						c := bySlug[item.Slug]
						if f.YearStart != nil || f.YearEnd != nil {
							require.NotNil(t, c.StartYear, item.Slug)
							end := *c.StartYear
							if c.EndYear != nil {
								end = *c.EndYear
							}
							if f.YearStart != nil {
								assert.GreaterOrEqual(t, end, *f.YearStart, item.Slug)
							}
							if f.YearEnd != nil {
								assert.LessOrEqual(t, *c.StartYear, *f.YearEnd, item.Slug)
							}
						}
						if len(ts) > 0 {
							assert.Contains(t, ts, item.ConflictType)
						}
						if b[0] != nil {
							require.NotNil(t, item.CasualtiesBest)
							assert.GreaterOrEqual(t, *item.CasualtiesBest, *b[0])
						}
						if b[1] != nil {
							require.NotNil(t, item.CasualtiesBest)
							assert.LessOrEqual(t, *item.CasualtiesBest, *b[1])
						}
						if region != "" {
							assert.Contains(t, strings.ToLower(item.PrimaryRegion), region)
						}
					}
				}
			}
		}
	}
}

func TestListConflictsPagination(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	first, err := svc.ListConflicts(ctx, ConflictFilters{}, 1, 2)
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, 4, first.TotalPages)

	last, err := svc.ListConflicts(ctx, ConflictFilters{}, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"undated-border-skirmish"}, slugs(last.Items))

	beyond, err := svc.ListConflicts(ctx, ConflictFilters{}, 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(7), beyond.Total)
}

func TestListConflictsPageOffsetOverflow(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	for _, page := range []int{1<<62 + 1, math.MaxInt, math.MaxInt/3 + 1} {
		res, err := svc.ListConflicts(ctx, ConflictFilters{}, page, 4)
		require.NoError(t, err)
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items, "page %d", page)
		assert.Equal(t, int64(7), res.Total)
		assert.Equal(t, 2, res.TotalPages)
	}

	empty, err := svc.ListConflicts(ctx, ConflictFilters{Search: "no such conflict"}, 1, 4)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Zero(t, empty.TotalPages)
}

func TestListConflictsInvalidParameters(t *testing.T) {
	svc, _ := newSeededService(t)
	tests := []struct {
		name     string
		filters  ConflictFilters
		page     int
		pageSize int
		param    string
	}{
		{"page zero", ConflictFilters{}, 0, 50, "page"},
		{"page size too large", ConflictFilters{}, 1, 501, "page_size"},
		{"page size zero", ConflictFilters{}, 1, 0, "page_size"},
		{"year too early", ConflictFilters{YearStart: intp(999)}, 1, 50, "year_start"},
		{"year too late", ConflictFilters{YearEnd: intp(2101)}, 1, 50, "year_end"},
		{"reversed years", ConflictFilters{YearStart: intp(1900), YearEnd: intp(1800)}, 1, 50, "year_start"},
		{"reversed casualties", ConflictFilters{MinCasualties: i64p(10), MaxCasualties: i64p(5)}, 1, 50, "min_casualties"},
		{"negative casualties", ConflictFilters{MinCasualties: i64p(-1)}, 1, 50, "min_casualties"},
		{"unknown type", ConflictFilters{Types: []models.ConflictType{"skirmish"}}, 1, 50, "conflict_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListConflicts(context.Background(), tt.filters, tt.page, tt.pageSize)
			require.ErrorIs(t, err, ErrInvalidParameter)
			var ipe *InvalidParameterError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, tt.param, ipe.Param)
		})
	}
}

func TestGetConflict(t *testing.T) {
	svc, seeded := newSeededService(t)
	ctx := context.Background()

	byID, err := svc.GetConflictByID(ctx, seeded[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, "partition-of-india", byID.Slug)
	assert.Len(t, byID.Locations, 2)
	assert.Len(t, byID.Actors, 1)
	assert.Len(t, byID.Sources, 1)
	assert.Equal(t, "1947-08-14", byID.StartDate.String())

	bySlug, err := svc.GetConflictBySlug(ctx, "partition-of-india")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, bySlug.ID)

	_, err = svc.GetConflictBySlug(ctx, "Partition-Of-India")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetConflictByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetConflictByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestGeoJSON(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	fc, err := svc.GeoJSON(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 5)

	first := fc.Features[0]
	assert.Equal(t, "Feature", first.Type)
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{76.9635, 29.3909}, first.Geometry.Coordinates)
	assert.Equal(t, "first-battle-of-panipat", first.Properties.Slug)
	assert.Equal(t, "Panipat", first.Properties.LocationName)

	for _, y := range [][2]*int{{nil, nil}, {intp(1947), intp(1947)}, {intp(1900), intp(1950)}} {
		fc, err := svc.GeoJSON(ctx, y[0], y[1])
		require.NoError(t, err)
		list, err := svc.ListConflicts(ctx, ConflictFilters{YearStart: y[0], YearEnd: y[1]}, 1, 500)
		require.NoError(t, err)
		assert.LessOrEqual(t, int64(len(fc.Features)), list.Total)
	}

	_, err = svc.GeoJSON(ctx, intp(500), nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestTimelineDecades(t *testing.T) {
	svc, _ := newSeededService(t)
	points, err := svc.Timeline(context.Background(), intp(1900), intp(1949), models.GranularityDecade)
	require.NoError(t, err)

	require.Len(t, points, 5)
	years := []int{}
	for _, p := range points {
		years = append(years, p.Year)
	}
	assert.Equal(t, []int{1900, 1910, 1920, 1930, 1940}, years)
	assert.Equal(t, int64(1), points[1].Count)
	assert.Equal(t, int64(1000), points[1].Casualties)
	assert.Equal(t, int64(3), points[4].Count)
	assert.Equal(t, int64(3000000+1000000+7000), points[4].Casualties)
	assert.Len(t, points[4].Conflicts, 3)
	assert.Empty(t, points[0].Conflicts)
	assert.NotNil(t, points[0].Conflicts)
}

func TestTimelineDefaultsAscendingAndComplete(t *testing.T) {
	svc, _ := newSeededService(t)
	points, err := svc.Timeline(context.Background(), nil, nil, "")
	require.NoError(t, err)

	var total int64
	for i, p := range points {
		total += p.Count
		if i > 0 {
			assert.Greater(t, p.Year, points[i-1].Year)
		}
	}
	// alle datierten Datensätze zwischen 1000 und 2024
	assert.Equal(t, int64(6), total)
	assert.Equal(t, 1000, points[0].Year)
	assert.Equal(t, 2010, points[len(points)-1].Year)
}

func TestTimelineCenturyAndYear(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	centuries, err := svc.Timeline(ctx, intp(1500), intp(1999), models.GranularityCentury)
	require.NoError(t, err)
	require.Len(t, centuries, 5)
	assert.Equal(t, int64(1), centuries[0].Count)
	assert.Equal(t, int64(0), centuries[1].Count)
	assert.Equal(t, int64(4), centuries[4].Count)
	assert.Empty(t, centuries[4].Conflicts)

	years, err := svc.Timeline(ctx, intp(1947), intp(1947), models.GranularityYear)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, int64(2), years[0].Count)
	assert.Len(t, years[0].Conflicts, 2)

	// ohne year_end nach dem aktuellen Jahr
	future, err := svc.Timeline(ctx, intp(2050), nil, models.GranularityYear)
	require.NoError(t, err)
	require.Len(t, future, 1)
	assert.Equal(t, 2050, future[0].Year)
	assert.Zero(t, future[0].Count)

	_, err = svc.Timeline(ctx, nil, nil, "week")
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = svc.Timeline(ctx, intp(1900), intp(1800), models.GranularityDecade)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestStatsSummary(t *testing.T) {
	svc, _ := newSeededService(t)
	s, err := svc.StatsSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), s.TotalConflicts)
	assert.Equal(t, int64(1000000+35000+100000+3000000+1000+7000), s.TotalCasualtiesBest)
	assert.Equal(t, int64(200000+20000+60000+800000+379), s.TotalCasualtiesLow)
	require.NotNil(t, s.EarliestYear)
	require.NotNil(t, s.LatestYear)
	assert.Equal(t, 1526, *s.EarliestYear)
	assert.Equal(t, 1949, *s.LatestYear)
	assert.Equal(t, map[string]int64{
		"war": 3, "famine": 1, "partition_event": 1, "massacre": 1, "other": 1,
	}, s.ByType)
	assert.Equal(t, map[string]int64{"1500s": 1, "1700s": 1, "1900s": 4}, s.ByCentury)
}

func TestStatsSummaryEmptyStore(t *testing.T) {
	svc := NewConflictService(dbtest.Open(t), zap.NewNop(), 0)
	s, err := svc.StatsSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.TotalConflicts)
	assert.Nil(t, s.EarliestYear)
	assert.Empty(t, s.ByType)
}

func TestStatsByRegionAndDecade(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	regions, err := svc.StatsByRegion(ctx, DefaultRegionLimit)
	require.NoError(t, err)
	require.Len(t, regions, 5)
	assert.Equal(t, models.RegionStat{Region: "Panipat", ConflictCount: 2, TotalCasualties: 135000}, regions[0])
	assert.Equal(t, "Amritsar", regions[1].Region)

	top, err := svc.StatsByRegion(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	decades, err := svc.StatsByDecade(ctx, 1900)
	require.NoError(t, err)
	assert.Equal(t, []models.DecadeStat{
		{Decade: 1910, ConflictCount: 1, TotalCasualties: 1000},
		{Decade: 1940, ConflictCount: 3, TotalCasualties: 4007000},
	}, decades)

	empty, err := svc.StatsByDecade(ctx, 1000)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.StatsByDecade(ctx, 1950)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = svc.StatsByRegion(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestActors(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	all, err := svc.ListActors(ctx, DefaultActorLimit)
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, models.ActorSummary{Name: "British Empire", Role: models.RoleColonialPower, AppearanceCount: 2}, all[0])

	found, err := svc.SearchActors(ctx, "EMPIRE", DefaultSearchLimit)
	require.NoError(t, err)
	names := []string{}
	for _, a := range found {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"British Empire", "Durrani Empire", "Maratha Empire", "Mughal Empire"}, names)

	empires, err := svc.ActorsByRole(ctx, models.RoleEmpire, DefaultRoleLimit)
	require.NoError(t, err)
	assert.Len(t, empires, 4)
	for _, a := range empires {
		assert.Equal(t, models.RoleEmpire, a.Role)
	}

	_, err = svc.SearchActors(ctx, "e", DefaultSearchLimit)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = svc.ActorsByRole(ctx, "villain", DefaultRoleLimit)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = svc.ListActors(ctx, MaxActorLimit+1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestStoreFailureIsWrapped(t *testing.T) {
	db := dbtest.Open(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc := NewConflictService(db, zap.NewNop(), 0)
	_, err = svc.ListConflicts(context.Background(), ConflictFilters{}, 1, 10)
	assert.ErrorIs(t, err, ErrStore)
	_, err = svc.StatsSummary(context.Background())
	assert.ErrorIs(t, err, ErrStore)
}

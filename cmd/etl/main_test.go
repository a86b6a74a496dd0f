package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"red-subcontinent/config"
	"red-subcontinent/etl"
)

const battlesJSON = `[
  {"title": "Third Battle of Panipat", "date_text": "14 January 1761", "location_text": "Panipat",
   "casualties_text": "60,000-70,000 killed", "belligerents_text": "Maratha Empire vs Durrani Empire"},
  {"title": "Battle of Plassey", "date_text": "23 June 1757", "location_text": "Plassey",
   "belligerents_text": "East India Company vs Nawab of Bengal"},
  {"title": "", "date_text": "1800"}
]`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// datasetOnly legt eine Quellenliste ohne Wikipedia an.
func datasetOnly(t *testing.T) (dir, sources string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "battles.json"), battlesJSON)
	sources = filepath.Join(dir, "sources.yaml")
	writeFile(t, sources, "wikipedia:\n  enabled: false\ndatasets:\n  - data/battles.json\n")
	return dir, sources
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NOMINATIM_URL", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoadSourcesDefaults(t *testing.T) {
	s, err := LoadSources("")
	require.NoError(t, err)
	assert.True(t, s.WikipediaEnabled())
	assert.Empty(t, s.Datasets)
}

func TestLoadSourcesResolvesRelativeDatasets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	writeFile(t, path, `
wikipedia:
  pages:
    - https://en.wikipedia.org/wiki/List_of_wars_involving_Nepal
datasets:
  - academic/ucdp.csv
  - /srv/data/extra.json
`)

	s, err := LoadSources(path)
	require.NoError(t, err)
	assert.True(t, s.WikipediaEnabled())
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/List_of_wars_involving_Nepal"}, s.Wikipedia.Pages)
	assert.Equal(t, []string{filepath.Join(dir, "academic", "ucdp.csv"), "/srv/data/extra.json"}, s.Datasets)
}

func TestLoadSourcesErrors(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read sources file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "datasets: [unclosed")
	_, err = LoadSources(path)
	assert.ErrorContains(t, err, "parse sources file")
}

func TestSourcesProviders(t *testing.T) {
	_, path := datasetOnly(t)
	s, err := LoadSources(path)
	require.NoError(t, err)

	got := s.Providers(&config.Config{}, zap.NewNop())
	require.Len(t, got, 1)
	assert.Equal(t, "dataset", got[0].Name())

	all := (&Sources{Datasets: []string{"x.csv"}}).Providers(&config.Config{}, zap.NewNop())
	require.Len(t, all, 2)
	assert.Equal(t, "wikipedia", all[0].Name())
}

func TestScrapeThenClean(t *testing.T) {
	dir, sources := datasetOnly(t)
	outDir := filepath.Join(dir, "out")
	flags := []string{"--sources", sources, "--output-dir", outDir, "--cache-dir", filepath.Join(dir, "cache")}

	out, err := execute(t, append([]string{"scrape"}, flags...)...)
	require.NoError(t, err)
	var scraped etl.RunResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &scraped))
	assert.Equal(t, 3, scraped.Scraped)
	assert.FileExists(t, filepath.Join(outDir, etl.RawFileName))

	out, err = execute(t, append([]string{"clean"}, flags...)...)
	require.NoError(t, err)
	var cleaned etl.RunResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &cleaned))
	assert.Equal(t, 3, cleaned.Scraped)
	assert.Equal(t, 2, cleaned.Cleaned)
	assert.Equal(t, 1, cleaned.Skipped)
	assert.Equal(t, []string{filepath.Join(outDir, etl.CleanedFileName)}, cleaned.Files)

	conflicts, err := etl.ReadCleaned(filepath.Join(outDir, etl.CleanedFileName))
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "third-battle-of-panipat", conflicts[0].Slug)
	assert.FileExists(t, filepath.Join(dir, "cache", geocodeCacheFile))
}

func TestCleanMissingInput(t *testing.T) {
	dir, sources := datasetOnly(t)
	_, err := execute(t, "clean", "--sources", sources, filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}

func TestSeedRequiresDatabase(t *testing.T) {
	for _, k := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	_, sources := datasetOnly(t)

	_, err := execute(t, "seed", "--sources", sources)
	assert.ErrorContains(t, err, "DB_HOST")
}

func TestScheduleRejectsInvalidCron(t *testing.T) {
	_, sources := datasetOnly(t)
	_, err := execute(t, "schedule", "--sources", sources, "--cron", "every tuesday")
	assert.ErrorContains(t, err, "invalid cron schedule")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	assert.Error(t, err)
}

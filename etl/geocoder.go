package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// GeoResult ist das Ergebnis einer Ortsauflösung.
type GeoResult struct {
	Latitude    *float64 `json:"lat"`
	Longitude   *float64 `json:"lon"`
	DisplayName string   `json:"display_name,omitempty"`
	Source      string   `json:"source"`
}

func (r GeoResult) Valid() bool {
	return r.Latitude != nil && r.Longitude != nil
}

type gazetteerEntry struct {
	lat, lon float64
	display  string
}

// Historische Orte, die eine Geokodierung oft nicht oder falsch auflöst.
var historicalGazetteer = map[string]gazetteerEntry{
	"delhi":     {28.6139, 77.2090, "Delhi, India"},
	"agra":      {27.1767, 78.0081, "Agra, India"},
	"lahore":    {31.5497, 74.3436, "Lahore, Pakistan"},
	"dhaka":     {23.8103, 90.4125, "Dhaka, Bangladesh"},
	"dacca":     {23.8103, 90.4125, "Dacca (Dhaka), Bangladesh"},
	"kabul":     {34.5553, 69.2075, "Kabul, Afghanistan"},
	"mumbai":    {19.0760, 72.8777, "Mumbai, India"},
	"bombay":    {19.0760, 72.8777, "Bombay (Mumbai), India"},
	"calcutta":  {22.5726, 88.3639, "Calcutta (Kolkata), India"},
	"kolkata":   {22.5726, 88.3639, "Kolkata, India"},
	"madras":    {13.0827, 80.2707, "Madras (Chennai), India"},
	"chennai":   {13.0827, 80.2707, "Chennai, India"},
	"hyderabad": {17.3850, 78.4867, "Hyderabad, India"},
	"karachi":   {24.8607, 67.0011, "Karachi, Pakistan"},
	"peshawar":  {34.0151, 71.5249, "Peshawar, Pakistan"},
	"amritsar":  {31.6340, 74.8723, "Amritsar, India"},
	"lucknow":   {26.8467, 80.9462, "Lucknow, India"},
	"jaipur":    {26.9124, 75.7873, "Jaipur, India"},

	"punjab":    {31.1471, 75.3412, "Punjab Region"},
	"bengal":    {23.6850, 90.3563, "Bengal Region"},
	"deccan":    {18.1124, 79.0193, "Deccan Plateau"},
	"kashmir":   {33.7782, 76.5762, "Kashmir"},
	"sind":      {26.0000, 68.0000, "Sindh, Pakistan"},
	"sindh":     {26.0000, 68.0000, "Sindh, Pakistan"},
	"rajputana": {26.4499, 74.6399, "Rajputana (Rajasthan)"},
	"oudh":      {26.8467, 80.9462, "Oudh (Awadh)"},
	"awadh":     {26.8467, 80.9462, "Awadh"},

	"panipat":    {29.3909, 76.9635, "Panipat, India"},
	"plassey":    {23.8000, 88.2500, "Plassey, India"},
	"buxar":      {25.5643, 83.9778, "Buxar, India"},
	"talikota":   {16.4800, 76.3100, "Talikota, India"},
	"haldighati": {24.8833, 73.6833, "Haldighati, India"},

	"radcliffe line": {31.0000, 74.0000, "Radcliffe Line (India-Pakistan border)"},
	"wagah":          {31.6047, 74.5725, "Wagah Border"},
}

var southAsiaCountries = []string{"India", "Pakistan", "Bangladesh", "Afghanistan"}

// GeocoderConfig steuert die Nominatim-Anbindung. Ohne BaseURL werden nur
// Gazetteer und Cache benutzt.
type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
	Interval  time.Duration
	CacheFile string
	Timeout   time.Duration
}

// Geocoder löst Ortsnamen auf: Gazetteer, dann Cache, dann Nominatim.
// Fehlschläge werden ebenfalls gecacht.
type Geocoder struct {
	Config  GeocoderConfig
	Logger  *zap.Logger
	cache   *gocache.Cache
	limiter *rate.Limiter
	client  *http.Client
}

// NewGeocoder erstellt einen Geocoder und lädt einen vorhandenen Cache.
func NewGeocoder(cfg GeocoderConfig, logger *zap.Logger) *Geocoder {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	g := &Geocoder{
		Config:  cfg,
		Logger:  logger,
		cache:   gocache.New(gocache.NoExpiration, 0),
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.CacheFile != "" {
		if err := g.loadCache(); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to load geocode cache", zap.String("file", cfg.CacheFile), zap.Error(err))
		}
	}
	return g
}

func cacheKey(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Geocode löst einen Ortsnamen auf. Ein leeres Ergebnis ist kein Fehler.
func (g *Geocoder) Geocode(ctx context.Context, query string) GeoResult {
	key := cacheKey(query)
	if key == "" {
		return GeoResult{}
	}
	if e, ok := historicalGazetteer[key]; ok {
		lat, lon := e.lat, e.lon
		return GeoResult{Latitude: &lat, Longitude: &lon, DisplayName: e.display, Source: "gazetteer"}
	}
	if v, ok := g.cache.Get(key); ok {
		return v.(GeoResult)
	}
	if g.Config.BaseURL == "" {
		return GeoResult{}
	}

	res := g.lookupBiased(ctx, strings.TrimSpace(query))
	if ctx.Err() == nil {
		g.cache.Set(key, res, gocache.NoExpiration)
	}
	return res
}

func (g *Geocoder) lookupBiased(ctx context.Context, query string) GeoResult {
	if !strings.Contains(strings.ToLower(query), "india") {
		for _, country := range southAsiaCountries {
			if r := g.lookup(ctx, query+", "+country); r.Valid() {
				return r
			}
		}
	}
	return g.lookup(ctx, query)
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *Geocoder) lookup(ctx context.Context, query string) GeoResult {
	log := g.Logger.With(zap.String("query", query))
	if err := g.limiter.Wait(ctx); err != nil {
		return GeoResult{}
	}
	u := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", strings.TrimRight(g.Config.BaseURL, "/"), url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Debug("Failed to build geocode request", zap.Error(err))
		return GeoResult{}
	}
	if g.Config.UserAgent != "" {
		req.Header.Set("User-Agent", g.Config.UserAgent)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn("Geocode request failed", zap.Error(err))
		return GeoResult{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn("Geocode returned non-200 status", zap.Int("status", resp.StatusCode))
		return GeoResult{}
	}
	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil || len(places) == 0 {
		return GeoResult{}
	}
	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return GeoResult{}
	}
	return GeoResult{Latitude: &lat, Longitude: &lon, DisplayName: places[0].DisplayName, Source: "nominatim"}
}

func (g *Geocoder) loadCache() error {
	raw, err := os.ReadFile(g.Config.CacheFile)
	if err != nil {
		return err
	}
	var entries map[string]GeoResult
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}
	for k, v := range entries {
		g.cache.Set(k, v, gocache.NoExpiration)
	}
	g.Logger.Info("Loaded cached geocoding results", zap.Int("count", len(entries)))
	return nil
}

// SaveCache schreibt den Cache in Config.CacheFile.
func (g *Geocoder) SaveCache() error {
	if g.Config.CacheFile == "" {
		return nil
	}
	items := g.cache.Items()
	entries := make(map[string]GeoResult, len(items))
	for k, it := range items {
		if r, ok := it.Object.(GeoResult); ok {
			entries[k] = r
		}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(g.Config.CacheFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(g.Config.CacheFile, raw, 0o644)
}

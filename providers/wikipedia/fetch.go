package wikipedia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxPageBytes = 20 << 20

// ErrDisallowed wird geliefert, wenn robots.txt den Abruf verbietet.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Config steuert das Abrufverhalten des Scrapers.
type Config struct {
	UserAgent    string
	RequestDelay time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	Timeout      time.Duration
	// CacheDir leer schaltet den Festplatten-Cache ab
	CacheDir string
}

// Fetcher lädt Seiten höflich: robots.txt, Rate Limit je Domain, Wiederholungen
// mit festem Abstand und ein Festplatten-Cache.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	robots   map[string]*robotstxt.RobotsData
}

func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		sleep:      sleepContext,
		limiters:   map[string]*rate.Limiter{},
		robots:     map[string]*robotstxt.RobotsData{},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Fetch liefert den Seiteninhalt, bevorzugt aus dem Cache.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if body, ok := f.readCache(rawURL); ok {
		f.logger.Debug("Cache hit", zap.String("url", rawURL))
		return body, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !f.allowed(ctx, u) {
		return "", fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := f.limiter(u.Host).Wait(ctx); err != nil {
			return "", err
		}
		f.logger.Info("Fetching page", zap.String("url", rawURL), zap.Int("attempt", attempt))
		body, err := f.get(ctx, rawURL)
		if err == nil {
			f.writeCache(rawURL, body)
			return body, nil
		}
		lastErr = err
		f.logger.Warn("Request failed", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < f.cfg.MaxRetries {
			if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// limiter liefert den Limiter einer Domain. Ein Crawl-delay aus robots.txt
// ersetzt den konfigurierten Abstand, wenn er größer ist.
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limiters[host]; ok {
		return l
	}
	delay := f.cfg.RequestDelay
	if data := f.robots[host]; data != nil {
		if g := data.FindGroup(f.cfg.UserAgent); g != nil && g.CrawlDelay > delay {
			delay = g.CrawlDelay
		}
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	l := rate.NewLimiter(limit, 1)
	f.limiters[host] = l
	return l
}

// allowed prüft robots.txt. Ist robots.txt nicht erreichbar, wird der Abruf erlaubt.
func (f *Fetcher) allowed(ctx context.Context, u *url.URL) bool {
	f.mu.Lock()
	data, ok := f.robots[u.Host]
	f.mu.Unlock()
	if !ok {
		var err error
		data, err = f.fetchRobots(ctx, u)
		if err != nil {
			f.logger.Warn("robots.txt unavailable, allowing", zap.String("host", u.Host), zap.Error(err))
			return true
		}
		f.mu.Lock()
		f.robots[u.Host] = data
		f.mu.Unlock()
	}
	return data.TestAgent(u.EscapedPath(), f.cfg.UserAgent)
}

func (f *Fetcher) fetchRobots(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return robotstxt.FromResponse(resp)
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

func (f *Fetcher) cachePath(rawURL string) string {
	return filepath.Join(f.cfg.CacheDir, cacheKey(rawURL)+".html")
}

func (f *Fetcher) readCache(rawURL string) (string, bool) {
	if f.cfg.CacheDir == "" {
		return "", false
	}
	b, err := os.ReadFile(f.cachePath(rawURL))
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (f *Fetcher) writeCache(rawURL, body string) {
	if f.cfg.CacheDir == "" {
		return
	}
	if err := os.MkdirAll(f.cfg.CacheDir, 0o755); err != nil {
		f.logger.Warn("Failed to create cache dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(f.cachePath(rawURL), []byte(body), 0o644); err != nil {
		f.logger.Warn("Failed to write cache", zap.String("url", rawURL), zap.Error(err))
	}
}

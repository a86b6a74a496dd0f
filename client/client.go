// Package client ist der typisierte Zugriff auf die Konflikt-API für
// Oberflächen und Skripte.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout     = 12 * time.Second
	DefaultMaxRetries  = 2
	DefaultBackoffBase = 500 * time.Millisecond

	maxErrorBody = 64 << 10
)

// Client spricht mit dem Query-Service.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	observer    StateObserver
	cache       *QueryCache
	notifier    *Notifier
	logger      *zap.Logger
}

// Option konfiguriert einen Client.
type Option func(*Client)

// WithHTTPClient ersetzt den HTTP-Client, z.B. für eigene Transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout setzt das Zeitlimit pro Versuch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries setzt Anzahl und Basisabstand der Wiederholungen.
func WithRetries(max int, base time.Duration) Option {
	return func(c *Client) { c.maxRetries, c.backoffBase = max, base }
}

// WithSleep ersetzt das Warten zwischen Versuchen.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithStateObserver meldet jeden Zustandswechsel einer Anfrage.
func WithStateObserver(o StateObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithCache aktiviert den Antwort-Cache für GET-Anfragen.
func WithCache(qc *QueryCache) Option {
	return func(c *Client) { c.cache = qc }
}

// WithNotifier veröffentlicht Fehlschläge an Abonnenten.
func WithNotifier(n *Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger setzt den Logger; Standard ist ein No-op-Logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New erstellt einen Client für baseURL, z.B. "http://localhost:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q needs scheme and host", baseURL)
	}
	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff liefert die Wartezeit vor Wiederholung n (ab 1).
func (c *Client) backoff(n int) time.Duration {
	return c.backoffBase * time.Duration(n)
}

// Get führt eine GET-Anfrage aus und dekodiert die JSON-Antwort nach out.
func (c *Client) Get(ctx context.Context, path string, q *Query, out interface{}) error {
	return c.get(ctx, path, q, out, nil)
}

// get prüft die dekodierte Antwort mit check, bevor sie gecacht wird.
func (c *Client) get(ctx context.Context, path string, q *Query, out interface{}, check func() error) error {
	key := Key(path, q)
	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			return c.decode(http.MethodGet, path, http.StatusOK, body, out)
		}
	}
	body, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	if err := c.decode(http.MethodGet, path, http.StatusOK, body, out); err != nil {
		return err
	}
	if check != nil {
		if err := check(); err != nil {
			return c.invalidShape(path, err)
		}
	}
	if c.cache != nil {
		c.cache.Set(key, body)
	}
	return nil
}

// Send führt eine Anfrage mit Körper aus. Anfragen mit Körper werden nie wiederholt.
func (c *Client) Send(ctx context.Context, method, path string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	body, err := c.do(ctx, method, path, nil, raw)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return c.decode(method, path, http.StatusOK, body, out)
}

func (c *Client) decode(method, path string, status int, body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(method, path, &APIError{Kind: KindServer, Status: status, Detail: "invalid response body", Err: err})
	}
	return nil
}

func (c *Client) fail(method, path string, apiErr *APIError) *APIError {
	if c.notifier != nil {
		c.notifier.Publish(Notification{Method: method, Path: path, Err: apiErr, At: time.Now()})
	}
	return apiErr
}

// do führt die Versuchsschleife als Zustandsmaschine aus. Nur Transportfehler
// werden wiederholt; eine empfangene Fehlerantwort beendet die Anfrage sofort.
func (c *Client) do(ctx context.Context, method, path string, q *Query, payload []byte) ([]byte, error) {
	target := c.baseURL.String() + path + q.Encode()
	retries := c.maxRetries
	if payload != nil {
		retries = 0
	}
	log := c.logger.With(zap.String("method", method), zap.String("path", path))
	st := newRequestState(method, path, c.observer)

	var lastErr error
	for {
		st.to(StateInFlight)
		status, body, err := c.attempt(ctx, method, target, payload)
		if err == nil {
			if status >= 200 && status < 300 {
				st.to(StateSuccess)
				return body, nil
			}
			st.to(StateFailed)
			return nil, c.fail(method, path, responseError(status, body))
		}

		lastErr = err
		if ctx.Err() != nil || st.attempt > retries {
			st.to(StateFailed)
			return nil, c.fail(method, path, &APIError{Kind: KindNetwork, Err: lastErr})
		}

		wait := c.backoff(st.attempt)
		log.Debug("Request failed, retrying", zap.Int("attempt", st.attempt), zap.Duration("backoff", wait), zap.Error(err))
		st.to(StateRetryWait)
		if err := c.sleep(ctx, wait); err != nil {
			st.to(StateFailed)
			return nil, c.fail(method, path, &APIError{Kind: KindNetwork, Err: lastErr})
		}
	}
}

// attempt liefert einen Fehler nur, wenn keine Antwort empfangen wurde.
func (c *Client) attempt(ctx context.Context, method, target string, payload []byte) (int, []byte, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, target, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if resp.StatusCode >= 300 {
		r = io.LimitReader(resp.Body, maxErrorBody)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// responseError übernimmt "detail" aus dem Fehlerkörper, sofern vorhanden.
func responseError(status int, body []byte) *APIError {
	apiErr := &APIError{Kind: kindForStatus(status), Status: status}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}
	// detail ist meist ein String, bei Validierungsfehlern auch eine Liste
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		apiErr.Detail = s
	} else {
		apiErr.Detail = string(payload.Detail)
	}
	return apiErr
}

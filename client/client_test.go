package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyTransport lässt die ersten failures Anfragen mit einem Transportfehler scheitern.
type flakyTransport struct {
	failures int32
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if n := f.calls.Add(1); n <= f.failures {
		return nil, errors.New("connection refused")
	}
	return f.next.RoundTrip(req)
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func jsonServer(t *testing.T, status int, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const summaryBody = `{"total_conflicts":7,"total_casualties_low":0,"total_casualties_high":0,"total_casualties_best":0,"earliest_year":1526,"latest_year":1949,"by_type":{"war":3},"by_century":{"1900s":4}}`

func TestRetriesTransportFailuresThenSucceeds(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, summaryBody, nil)
	transport := &flakyTransport{failures: 2, next: http.DefaultTransport}
	rec := &sleepRecorder{}

	c, err := New(srv.URL, WithHTTPClient(&http.Client{Transport: transport}), WithSleep(rec.sleep))
	require.NoError(t, err)

	summary, err := c.StatsSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.TotalConflicts)
	assert.Equal(t, int32(3), transport.calls.Load())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, rec.waits)
}

func TestRetryExhaustionIsNetworkError(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, summaryBody, nil)
	transport := &flakyTransport{failures: 10, next: http.DefaultTransport}
	rec := &sleepRecorder{}

	c, err := New(srv.URL, WithHTTPClient(&http.Client{Transport: transport}), WithSleep(rec.sleep))
	require.NoError(t, err)

	_, err = c.StatsSummary(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.Contains(t, err.Error(), "network error: ")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, int32(DefaultMaxRetries+1), transport.calls.Load())
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := jsonServer(t, http.StatusInternalServerError, `{"detail":"Internal server error"}`, &hits)
	c, err := New(srv.URL, WithSleep((&sleepRecorder{}).sleep))
	require.NoError(t, err)

	_, err = c.StatsSummary(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Internal server error", apiErr.Error())
}

func TestRequestWithBodyIsNotRetried(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{}`, nil)
	transport := &flakyTransport{failures: 1, next: http.DefaultTransport}
	c, err := New(srv.URL, WithHTTPClient(&http.Client{Transport: transport}), WithSleep((&sleepRecorder{}).sleep))
	require.NoError(t, err)

	err = c.Send(context.Background(), http.MethodPost, "/api/anything", map[string]string{"a": "b"}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestErrorKindsFromStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"not found", http.StatusNotFound, `{"detail":"Conflict not found"}`, KindNotFound, "Conflict not found"},
		{"invalid", http.StatusUnprocessableEntity, `{"detail":"year_start: must be between 1000 and 2100"}`, KindInvalidParameter, "year_start: must be between 1000 and 2100"},
		{"bad request", http.StatusBadRequest, `{"detail":[{"loc":"q"}]}`, KindInvalidParameter, `[{"loc":"q"}]`},
		{"no detail", http.StatusBadGateway, `<html>bad gateway</html>`, KindServer, "HTTP 502"},
		{"unavailable", http.StatusServiceUnavailable, `{"detail":"Conflict store unavailable"}`, KindServer, "Conflict store unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.body, nil)
			c, err := New(srv.URL)
			require.NoError(t, err)

			_, err = c.GetConflictBySlug(context.Background(), "missing")
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "kind %v", err)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestPerAttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithTimeout(20*time.Millisecond), WithRetries(0, time.Millisecond))
	require.NoError(t, err)

	_, err = c.StatsSummary(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, summaryBody, nil)
	transport := &flakyTransport{failures: 10, next: http.DefaultTransport}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := New(srv.URL, WithHTTPClient(&http.Client{Transport: transport}))
	require.NoError(t, err)
	_, err = c.StatsSummary(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
	assert.LessOrEqual(t, transport.calls.Load(), int32(1))
}

func TestStateTransitions(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, summaryBody, nil)
	transport := &flakyTransport{failures: 1, next: http.DefaultTransport}
	var seen []Transition
	c, err := New(srv.URL,
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSleep((&sleepRecorder{}).sleep),
		WithStateObserver(func(tr Transition) { seen = append(seen, tr) }),
	)
	require.NoError(t, err)

	_, err = c.StatsSummary(context.Background())
	require.NoError(t, err)

	var states []State
	for _, tr := range seen {
		assert.Equal(t, "/api/stats/summary", tr.Path)
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StateInFlight, StateRetryWait, StateInFlight, StateSuccess}, states)
	assert.Equal(t, 2, seen[len(seen)-1].Attempt)
	assert.True(t, seen[len(seen)-1].To.Terminal())
}

func TestInvalidTransitionPanics(t *testing.T) {
	st := newRequestState(http.MethodGet, "/", nil)
	assert.Panics(t, func() { st.to(StateSuccess) })
}

func TestCacheServesRepeatedQueries(t *testing.T) {
	var hits atomic.Int32
	srv := jsonServer(t, http.StatusOK, `{"items":[],"total":0,"page":1,"page_size":50,"total_pages":0}`, &hits)
	cache := NewQueryCache(time.Minute)
	defer cache.Close()

	c, err := New(srv.URL, WithCache(cache))
	require.NoError(t, err)

	ys := 1900
	for i := 0; i < 3; i++ {
		page, err := c.ListConflicts(context.Background(), ListParams{YearStart: &ys})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, cache.Len())

	ye := 1950
	_, err = c.ListConflicts(context.Background(), ListParams{YearStart: &ys, YearEnd: &ye})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	cache.Close()
	_, err = c.ListConflicts(context.Background(), ListParams{YearStart: &ys})
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 0, cache.Len())
}

func TestFailuresAreNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := jsonServer(t, http.StatusNotFound, `{"detail":"Conflict not found"}`, &hits)
	cache := NewQueryCache(0)
	c, err := New(srv.URL, WithCache(cache))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.GetConflictBySlug(context.Background(), "nope")
		assert.True(t, IsNotFound(err))
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestNotifierReceivesFailures(t *testing.T) {
	srv := jsonServer(t, http.StatusNotFound, `{"detail":"Conflict not found"}`, nil)
	n := NewNotifier(0)
	defer n.Close()
	ch, unsubscribe := n.Subscribe()

	c, err := New(srv.URL, WithNotifier(n))
	require.NoError(t, err)
	_, err = c.GetConflict(context.Background(), "6f1c2a4e-0000-4000-8000-000000000000")
	require.Error(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, http.MethodGet, msg.Method)
		assert.Equal(t, "/api/conflicts/6f1c2a4e-0000-4000-8000-000000000000", msg.Path)
		assert.Equal(t, KindNotFound, msg.Err.Kind)
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestInvalidListItemIsServerError(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"items":[{"slug":"x","conflict_type":"picnic","conflict_scale":"local"}],"total":1,"page":1,"page_size":50,"total_pages":1}`, nil)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.ListConflicts(context.Background(), ListParams{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindServer))
}

func TestInvalidResponsesAreNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := jsonServer(t, http.StatusOK, `{"items":[{"slug":"x","conflict_type":"picnic","conflict_scale":"local"}],"total":1,"page":1,"page_size":50,"total_pages":1}`, &hits)
	cache := NewQueryCache(time.Minute)
	defer cache.Close()
	c, err := New(srv.URL, WithCache(cache))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.ListConflicts(context.Background(), ListParams{})
		assert.True(t, IsKind(err, KindServer))
	}
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 0, cache.Len())

	var detailHits atomic.Int32
	detail := jsonServer(t, http.StatusOK, `{"slug":"x","title":"X","conflict_type":"picnic","conflict_scale":"local"}`, &detailHits)
	c, err = New(detail.URL, WithCache(cache))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := c.GetConflictBySlug(context.Background(), "x")
		assert.True(t, IsKind(err, KindServer))
	}
	assert.Equal(t, int32(2), detailHits.Load())
	assert.Equal(t, 0, cache.Len())
}

func TestMalformedBodyIsServerError(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `not json`, nil)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Timeline(context.Background(), TimelineParams{Granularity: "decade"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindServer))
}

func TestRequestPathsAndQueries(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.URL.RequestURI())
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.StatsByRegion(ctx, 5)
	require.NoError(t, err)
	_, err = c.StatsByDecade(ctx, 1800)
	require.NoError(t, err)
	_, err = c.SearchActors(ctx, "mughal", 0)
	require.NoError(t, err)
	_, err = c.ActorsByRole(ctx, "empire", 10)
	require.NoError(t, err)
	_, err = c.ListActors(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/stats/by-region?limit=5",
		"/api/stats/by-decade?century=1800",
		"/api/actors/search?q=mughal",
		"/api/actors/by-role/empire?limit=10",
		"/api/actors",
	}, got)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost")
	assert.Error(t, err)
}

package digen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type staticCreds struct{}

func (staticCreds) Credentials(ctx context.Context) (string, string) {
	return "tok", "sess"
}

func newTestClient(url string) (*Client, *[]time.Duration) {
	c := NewClient(Options{
		URL:              url,
		ImageURLTemplate: "http://img.example/%s-%d.jpeg",
		Width:            512,
		Height:           512,
		BatchSize:        4,
		Timeout:          time.Second,
	}, staticCreds{})

	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return c, &sleeps
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok", r.Header.Get("digen-token"))
		require.Equal(t, "sess", r.Header.Get("digen-sessionid"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"abc123"}}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	urls, err := c.Generate(context.Background(), "cat in a garden")
	require.NoError(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))

	require.Equal(t, []string{
		"http://img.example/abc123-0.jpeg",
		"http://img.example/abc123-1.jpeg",
		"http://img.example/abc123-2.jpeg",
		"http://img.example/abc123-3.jpeg",
	}, urls)

	// Exponential backoff: each delay at least doubles the previous one.
	require.Len(t, *sleeps, 2)
	require.GreaterOrEqual(t, (*sleeps)[1], 2*(*sleeps)[0])
}

func TestGenerate_ExhaustsAfterThreeAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	_, err := c.Generate(context.Background(), "p")
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Equal(t, http.StatusInternalServerError, exhausted.LastStatus)
	require.Equal(t, "upstream exploded", exhausted.LastBody)
}

func TestGenerate_ConcurrentCallsBackOffIndependently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)

	var mu sync.Mutex
	var sleeps []time.Duration
	c.sleep = func(d time.Duration) {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Generate(context.Background(), "p")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
	}

	// Each request runs its own delay sequence from the start: two
	// first-attempt delays and two doubled ones, never a pooled
	// progression that depends on the sibling's attempts.
	require.Len(t, sleeps, 4)
	sort.Slice(sleeps, func(i, j int) bool { return sleeps[i] < sleeps[j] })
	require.Equal(t, sleeps[0], sleeps[1])
	require.Equal(t, sleeps[2], sleeps[3])
	require.GreaterOrEqual(t, sleeps[2], 2*sleeps[0])
}

func TestGenerate_DirectURLListCappedAtBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"images":["u0","u1","u2","u3","u4","u5"]}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	urls, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, []string{"u0", "u1", "u2", "u3"}, urls)
}

func TestGenerate_NoAssetsIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	_, err := c.Generate(context.Background(), "p")
	require.True(t, errors.Is(err, ErrNoAssets))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGenerate_NumericTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"task_id":98765}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	urls, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "http://img.example/98765-0.jpeg", urls[0])
}

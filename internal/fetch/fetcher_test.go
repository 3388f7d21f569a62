package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchAll_PreservesOrderOnPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img-1":
			time.Sleep(30 * time.Millisecond) // finishes last, stays first
			_, _ = w.Write([]byte("one"))
		case "/img-2":
			w.WriteHeader(http.StatusNotFound)
		case "/img-3":
			_, _ = w.Write([]byte("three"))
		case "/img-4":
			_, _ = w.Write([]byte("four"))
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	refs := []string{srv.URL + "/img-1", srv.URL + "/img-2", srv.URL + "/img-3", srv.URL + "/img-4"}

	results, err := f.FetchAll(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, results, 4)

	require.Equal(t, refs[0], results[0].Ref)
	require.Equal(t, []byte("one"), results[0].Data)
	require.False(t, results[1].OK())
	require.Equal(t, []byte("three"), results[2].Data)
	require.Equal(t, []byte("four"), results[3].Data)
}

func TestFetchAll_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	_, err := f.FetchAll(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"})
	require.True(t, errors.Is(err, ErrNoAssetsRetrieved))
}

func TestFetchAll_PerItemTimeoutDoesNotSinkBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(300 * time.Millisecond)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(50 * time.Millisecond)
	results, err := f.FetchAll(context.Background(), []string{srv.URL + "/slow", srv.URL + "/fast"})
	require.NoError(t, err)
	require.False(t, results[0].OK())
	require.True(t, results[1].OK())
}

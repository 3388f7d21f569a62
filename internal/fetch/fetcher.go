package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"imagenbot/internal/logger"
)

// ErrNoAssetsRetrieved is returned only when every single fetch failed;
// any partial success lets the pipeline proceed.
var ErrNoAssetsRetrieved = errors.New("fetch: no assets retrieved")

// Result pairs an asset reference with its bytes. Data is nil when the
// fetch for that reference failed.
type Result struct {
	Ref  string
	Data []byte
}

func (r Result) OK() bool { return len(r.Data) > 0 }

type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher builds a fetcher with an independent per-item timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// FetchAll downloads every reference concurrently. The result slice
// matches the input order regardless of completion order, so "first
// asset" semantics downstream stay deterministic.
func (f *Fetcher) FetchAll(ctx context.Context, refs []string) ([]Result, error) {
	results := make([]Result, len(refs))

	var g errgroup.Group
	for i, ref := range refs {
		i, ref := i, ref
		results[i].Ref = ref
		g.Go(func() error {
			data, err := f.fetchOne(ctx, ref)
			if err != nil {
				// A single failed download never cancels its siblings.
				logger.Warn().Err(err).Str("url", ref).Msg("asset download failed")
				return nil
			}
			results[i].Data = data
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.OK() {
			return results, nil
		}
	}
	return nil, ErrNoAssetsRetrieved
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("fetch: status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}

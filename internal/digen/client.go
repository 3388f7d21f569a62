package digen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jpillora/backoff"

	"imagenbot/internal/logger"
)

// CredentialSource supplies provider credentials at call time, so a
// rotation through the admin panel affects the very next request.
type CredentialSource interface {
	Credentials(ctx context.Context) (token, session string)
}

type Options struct {
	URL string
	// ImageURLTemplate derives asset URLs from a bare generation id,
	// e.g. "https://host/%s-%d.jpeg". Provider-specific and therefore
	// configurable rather than hard-coded.
	ImageURLTemplate string
	Width            int
	Height           int
	BatchSize        int
	Timeout          time.Duration
}

type Client struct {
	opts        Options
	creds       CredentialSource
	httpClient  *http.Client
	maxAttempts int

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewClient(opts Options, creds CredentialSource) *Client {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		opts:        opts,
		creds:       creds,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		maxAttempts: 3,
		sleep:       time.Sleep,
	}
}

type generateReq struct {
	Prompt          string   `json:"prompt"`
	ImageSize       string   `json:"image_size"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	LoraID          string   `json:"lora_id"`
	BatchSize       int      `json:"batch_size"`
	ReferenceImages []string `json:"reference_images"`
	Strength        string   `json:"strength"`
}

// Generate invokes the provider and returns an ordered asset URL list,
// capped at the configured batch size. Transient failures (network,
// timeout, non-2xx) are retried with exponential backoff; a response
// that parses but carries no usable references is surfaced immediately.
func (c *Client) Generate(ctx context.Context, prompt string) ([]string, error) {
	payload, err := json.Marshal(generateReq{
		Prompt:          prompt,
		ImageSize:       fmt.Sprintf("%dx%d", c.opts.Width, c.opts.Height),
		Width:           c.opts.Width,
		Height:          c.opts.Height,
		BatchSize:       c.opts.BatchSize,
		ReferenceImages: []string{},
	})
	if err != nil {
		return nil, err
	}

	// Per-request backoff: concurrent generations must not share an
	// attempt counter.
	delay := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
	}

	var lastStatus int
	var lastBody string
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(delay.Duration())
		}

		status, body, err := c.post(ctx, payload)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("digen request failed")
			lastErr = err
			continue
		}
		if status < 200 || status >= 300 {
			logger.Warn().Int("status", status).Int("attempt", attempt).Msg("digen non-2xx")
			lastStatus, lastBody = status, body
			lastErr = fmt.Errorf("digen: status %d", status)
			continue
		}

		refs, err := c.normalize([]byte(body))
		if err != nil {
			// A well-formed response with no references is a shape
			// problem, not a transient fault.
			return nil, err
		}
		return refs, nil
	}

	return nil, &ExhaustedError{
		Attempts:   c.maxAttempts,
		LastStatus: lastStatus,
		LastBody:   lastBody,
		Err:        lastErr,
	}
}

func (c *Client) post(ctx context.Context, payload []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}

	token, session := c.creds.Credentials(ctx)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("digen-platform", "web")
	req.Header.Set("digen-token", token)
	req.Header.Set("digen-sessionid", session)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}

// flexID tolerates the id arriving as a JSON string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
	}
	return nil
}

type apiResponse struct {
	Data struct {
		ID     flexID   `json:"id"`
		TaskID flexID   `json:"task_id"`
		Images []string `json:"images"`
	} `json:"data"`
}

// normalize folds the provider's two response shapes into one ordered
// URL list: a bare id expands through ImageURLTemplate, a direct list
// passes through capped at the batch size.
func (c *Client) normalize(body []byte) ([]string, error) {
	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, ErrNoAssets
	}

	id := string(decoded.Data.ID)
	if id == "" {
		id = string(decoded.Data.TaskID)
	}
	if id != "" {
		urls := make([]string, 0, c.opts.BatchSize)
		for i := 0; i < c.opts.BatchSize; i++ {
			urls = append(urls, fmt.Sprintf(c.opts.ImageURLTemplate, id, i))
		}
		return urls, nil
	}

	if len(decoded.Data.Images) > 0 {
		urls := decoded.Data.Images
		if len(urls) > c.opts.BatchSize {
			urls = urls[:c.opts.BatchSize]
		}
		return urls, nil
	}

	return nil, ErrNoAssets
}

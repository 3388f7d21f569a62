package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Translator converts text to a target language. Implementations are
// best-effort: callers treat failure as non-fatal.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// GoogleTranslator uses the unauthenticated gtx endpoint. The response
// is a deeply nested array, so it is decoded defensively.
type GoogleTranslator struct {
	BaseURL string
	Client  *http.Client
}

func NewGoogleTranslator(baseURL string, timeout time.Duration) *GoogleTranslator {
	if baseURL == "" {
		baseURL = "https://translate.googleapis.com/translate_a/single"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleTranslator{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if g.Client == nil {
		return "", errors.New("translate: http client is nil")
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("translate: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	// Shape: [[["translated","source",...],["more","..."]],...]
	var decoded []any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", err
	}
	if len(decoded) == 0 {
		return "", errors.New("translate: empty response")
	}
	segments, ok := decoded[0].([]any)
	if !ok {
		return "", errors.New("translate: unexpected response shape")
	}

	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}

	out := b.String()
	if out == "" {
		return "", errors.New("translate: no translated text in response")
	}
	return out, nil
}

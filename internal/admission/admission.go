package admission

import (
	"context"
	"time"

	"imagenbot/internal/settings"
	"imagenbot/internal/store"
)

type Reason int

const (
	ReasonNone Reason = iota
	ReasonBanned
	ReasonRateLimited
)

// Decision is the outcome of the ban/rate-limit gate. RetryAfterSeconds
// is set only for rate-limited denials.
type Decision struct {
	Allowed           bool
	Reason            Reason
	RetryAfterSeconds int64
}

var (
	allow = Decision{Allowed: true}
)

// Controller gates every prompt before any expensive work starts.
type Controller struct {
	store    *store.Store
	settings *settings.Provider
}

func NewController(s *store.Store, p *settings.Provider) *Controller {
	return &Controller{store: s, settings: p}
}

// Admit records the user, then checks the ban list and the rate limit.
// It never updates the generation timestamp; the orchestrator does that
// only after a success, so failed pipelines do not consume the window.
func (c *Controller) Admit(ctx context.Context, userID int64, username string, now time.Time) (Decision, error) {
	if err := c.store.UpsertUser(ctx, userID, username); err != nil {
		return Decision{}, err
	}

	banned, err := c.store.IsBanned(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if banned {
		return Decision{Reason: ReasonBanned}, nil
	}

	limit := int64(c.settings.RateLimitSeconds(ctx))
	if limit <= 0 {
		return allow, nil
	}

	last, err := c.store.LastGenTS(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	elapsed := now.Unix() - last
	if elapsed < limit {
		return Decision{
			Reason:            ReasonRateLimited,
			RetryAfterSeconds: limit - elapsed,
		}, nil
	}
	return allow, nil
}

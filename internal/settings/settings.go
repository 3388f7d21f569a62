package settings

import (
	"context"
	"strconv"

	"imagenbot/internal/store"
)

// Persisted setting keys. They round-trip as strings.
const (
	KeyRateLimit = "rate_limit_seconds"
	KeyAdminID   = "admin_identity"
	KeyToken     = "provider_token"
	KeySession   = "provider_session"
)

// Defaults apply only until an admin writes the corresponding setting.
type Defaults struct {
	RateLimitSeconds int
	AdminID          int64
	Token            string
	Session          string
}

// Provider reads settings fresh from the store on every call, so admin
// changes take effect on the next request without a restart.
type Provider struct {
	store    *store.Store
	defaults Defaults
}

func NewProvider(s *store.Store, d Defaults) *Provider {
	return &Provider{store: s, defaults: d}
}

func (p *Provider) RateLimitSeconds(ctx context.Context) int {
	v, err := p.store.GetSetting(ctx, KeyRateLimit, strconv.Itoa(p.defaults.RateLimitSeconds))
	if err != nil {
		return p.defaults.RateLimitSeconds
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return p.defaults.RateLimitSeconds
	}
	return n
}

func (p *Provider) AdminID(ctx context.Context) int64 {
	v, err := p.store.GetSetting(ctx, KeyAdminID, strconv.FormatInt(p.defaults.AdminID, 10))
	if err != nil {
		return p.defaults.AdminID
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return p.defaults.AdminID
	}
	return id
}

// Credentials returns the provider token and session id.
func (p *Provider) Credentials(ctx context.Context) (string, string) {
	token, err := p.store.GetSetting(ctx, KeyToken, p.defaults.Token)
	if err != nil {
		token = p.defaults.Token
	}
	session, err := p.store.GetSetting(ctx, KeySession, p.defaults.Session)
	if err != nil {
		session = p.defaults.Session
	}
	return token, session
}

func (p *Provider) SetRateLimitSeconds(ctx context.Context, seconds int) error {
	return p.store.SetSetting(ctx, KeyRateLimit, strconv.Itoa(seconds))
}

func (p *Provider) SetToken(ctx context.Context, token string) error {
	return p.store.SetSetting(ctx, KeyToken, token)
}

func (p *Provider) SetSession(ctx context.Context, session string) error {
	return p.store.SetSetting(ctx, KeySession, session)
}

// SeedAdminID pins the admin identity at boot when configured via env.
func (p *Provider) SeedAdminID(ctx context.Context, id int64) error {
	if id == 0 {
		return nil
	}
	return p.store.SetSetting(ctx, KeyAdminID, strconv.FormatInt(id, 10))
}

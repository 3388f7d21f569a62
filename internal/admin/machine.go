package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"imagenbot/internal/common"
	"imagenbot/internal/logger"
	"imagenbot/internal/settings"
	"imagenbot/internal/store"
)

// Forwarder is the slice of the chat transport broadcast needs.
type Forwarder interface {
	ForwardMessage(ctx context.Context, chatID, fromChatID, messageID int64) error
}

// Machine routes the next admin message to whichever multi-step action
// is pending for that identity. Non-admin identities never enter here.
type Machine struct {
	pending  *PendingActions
	store    *store.Store
	settings *settings.Provider
	fwd      Forwarder
}

func NewMachine(p *PendingActions, s *store.Store, sp *settings.Provider, fwd Forwarder) *Machine {
	return &Machine{pending: p, store: s, settings: sp, fwd: fwd}
}

// Select arms a pending action for the admin. Any previously armed
// action is discarded; menu selections are not queued.
func (m *Machine) Select(ctx context.Context, adminID int64, a Action) error {
	return m.pending.Set(ctx, adminID, a)
}

// Consume handles one admin text message. It returns handled=false when
// no action is pending, so the caller can treat the text as a normal
// prompt. The pending slot is cleared before the action runs: invalid
// input reports an error but never re-arms the flow.
func (m *Machine) Consume(ctx context.Context, adminID, chatID, messageID int64, text string) (bool, string, error) {
	action, err := m.pending.Get(ctx, adminID)
	if err != nil {
		return false, "", err
	}
	if action == ActionNone {
		return false, "", nil
	}

	if err := m.pending.Clear(ctx, adminID); err != nil {
		return false, "", err
	}

	text = strings.TrimSpace(text)
	switch action {
	case ActionBroadcast:
		reply, err := m.broadcast(ctx, chatID, messageID)
		return true, reply, err
	case ActionSetLimit:
		return true, m.setLimit(ctx, text), nil
	case ActionBanFlow:
		return true, m.toggleBan(ctx, text), nil
	case ActionSetToken:
		return true, m.setCredentials(ctx, text), nil
	default:
		logger.Warn().Str("action", string(action)).Msg("unknown pending admin action dropped")
		return true, "Unknown admin action.", nil
	}
}

// broadcast forwards the admin's message to every known user. A failed
// delivery (blocked bot, deleted account) is skipped, never fatal.
func (m *Machine) broadcast(ctx context.Context, fromChatID, messageID int64) (string, error) {
	ids, err := m.store.ListUserIDs(ctx)
	if err != nil {
		return "", err
	}

	delivered := 0
	for _, id := range ids {
		if err := m.fwd.ForwardMessage(ctx, id, fromChatID, messageID); err != nil {
			logger.Warn().Err(err).Int64("user_id", id).Msg("broadcast delivery failed")
			continue
		}
		delivered++
	}
	return fmt.Sprintf("Broadcast finished: delivered to %d of %d users.", delivered, len(ids)), nil
}

func (m *Machine) setLimit(ctx context.Context, text string) string {
	seconds, err := strconv.Atoi(text)
	if err != nil || seconds < 0 {
		return "Please send a non-negative whole number of seconds."
	}
	if err := m.settings.SetRateLimitSeconds(ctx, seconds); err != nil {
		logger.Error().Err(err).Msg("rate limit update failed")
		return "Failed to save the new rate limit."
	}
	return fmt.Sprintf("Rate limit saved: %d seconds.", seconds)
}

// toggleBan flips the ban state of the given identity: banned users are
// unbanned, everyone else is banned.
func (m *Machine) toggleBan(ctx context.Context, text string) string {
	userID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return "Invalid user id: send a plain number."
	}

	banned, err := m.store.IsBanned(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("ban lookup failed")
		return "Failed to look up ban state."
	}

	if banned {
		if err := m.store.ClearBan(ctx, userID); err != nil {
			return "Failed to unban the user."
		}
		return fmt.Sprintf("User %d unbanned.", userID)
	}
	if err := m.store.SetBan(ctx, userID); err != nil {
		return "Failed to ban the user."
	}
	return fmt.Sprintf("User %d banned.", userID)
}

// setCredentials accepts "token|session" or a bare token.
func (m *Machine) setCredentials(ctx context.Context, text string) string {
	if token, session, found := strings.Cut(text, "|"); found {
		if err := m.settings.SetToken(ctx, strings.TrimSpace(token)); err != nil {
			return "Failed to save the token."
		}
		if err := m.settings.SetSession(ctx, strings.TrimSpace(session)); err != nil {
			return "Failed to save the session."
		}
		return "Token and session saved."
	}
	if err := m.settings.SetToken(ctx, text); err != nil {
		return "Failed to save the token."
	}
	return "Token saved."
}

// StatsText renders the admin statistics summary.
func (m *Machine) StatsText(ctx context.Context) (string, error) {
	users, err := m.store.CountUsers(ctx)
	if err != nil {
		return "", err
	}
	generations, err := m.store.CountLogs(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stats:\n- users: %d\n- generations: %d\n", users, generations)

	if styles, err := m.store.TopGroupedBy(ctx, "style", 5); err == nil && len(styles) > 0 {
		b.WriteString("\nTop styles:\n")
		for _, s := range styles {
			fmt.Fprintf(&b, "- %s: %d\n", s.Value, s.Count)
		}
	}
	if prompts, err := m.store.TopGroupedBy(ctx, "prompt", 5); err == nil && len(prompts) > 0 {
		b.WriteString("\nTop prompts:\n")
		for _, p := range prompts {
			fmt.Fprintf(&b, "- %s: %d\n", common.TruncateRunes(p.Value, 30), p.Count)
		}
	}
	return b.String(), nil
}

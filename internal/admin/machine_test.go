package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"imagenbot/internal/settings"
	"imagenbot/internal/state"
	"imagenbot/internal/store"
)

type fakeForwarder struct {
	sent    []int64
	failFor map[int64]bool
}

func (f *fakeForwarder) ForwardMessage(ctx context.Context, chatID, fromChatID, messageID int64) error {
	if f.failFor[chatID] {
		return errors.New("blocked")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func newMachine(t *testing.T) (*Machine, *store.Store, *settings.Provider, *fakeForwarder) {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.User{}, &store.Ban{}, &store.Setting{}, &store.LogEntry{}))

	st := store.New(db)
	sp := settings.NewProvider(st, settings.Defaults{RateLimitSeconds: 30})
	fwd := &fakeForwarder{failFor: map[int64]bool{}}
	m := NewMachine(NewPendingActions(state.NewMemoryStore()), st, sp, fwd)
	return m, st, sp, fwd
}

const adminID = int64(777)

func TestConsume_NothingPending(t *testing.T) {
	m, _, _, _ := newMachine(t)

	handled, _, err := m.Consume(context.Background(), adminID, adminID, 1, "a regular prompt")
	require.NoError(t, err)
	require.False(t, handled)
}

func TestSetLimit_ValidValue(t *testing.T) {
	m, _, sp, _ := newMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, adminID, ActionSetLimit))
	handled, reply, err := m.Consume(ctx, adminID, adminID, 1, "45")
	require.NoError(t, err)
	require.True(t, handled)
	require.Contains(t, reply, "45")
	require.Equal(t, 45, sp.RateLimitSeconds(ctx))

	// Pending was consumed: the next message is a plain prompt again.
	handled, _, err = m.Consume(ctx, adminID, adminID, 2, "45")
	require.NoError(t, err)
	require.False(t, handled)
}

func TestSetLimit_InvalidValueStillClearsPending(t *testing.T) {
	m, _, sp, _ := newMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, adminID, ActionSetLimit))
	handled, reply, err := m.Consume(ctx, adminID, adminID, 1, "abc")
	require.NoError(t, err)
	require.True(t, handled)
	require.Contains(t, reply, "whole number")
	require.Equal(t, 30, sp.RateLimitSeconds(ctx))

	// No re-prompt: a following "45" is not a retry of the flow.
	handled, _, err = m.Consume(ctx, adminID, adminID, 2, "45")
	require.NoError(t, err)
	require.False(t, handled)
	require.Equal(t, 30, sp.RateLimitSeconds(ctx))
}

func TestBanToggle_AlternatesState(t *testing.T) {
	m, st, _, _ := newMachine(t)
	ctx := context.Background()

	submit := func() {
		require.NoError(t, m.Select(ctx, adminID, ActionBanFlow))
		handled, _, err := m.Consume(ctx, adminID, adminID, 1, "555")
		require.NoError(t, err)
		require.True(t, handled)
	}

	submit() // ban
	banned, err := st.IsBanned(ctx, 555)
	require.NoError(t, err)
	require.True(t, banned)

	submit() // unban
	banned, err = st.IsBanned(ctx, 555)
	require.NoError(t, err)
	require.False(t, banned)

	submit() // ban again
	banned, err = st.IsBanned(ctx, 555)
	require.NoError(t, err)
	require.True(t, banned)
}

func TestBanToggle_BadIDClearsPending(t *testing.T) {
	m, _, _, _ := newMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, adminID, ActionBanFlow))
	handled, reply, err := m.Consume(ctx, adminID, adminID, 1, "not-a-number")
	require.NoError(t, err)
	require.True(t, handled)
	require.Contains(t, reply, "Invalid user id")

	handled, _, err = m.Consume(ctx, adminID, adminID, 2, "555")
	require.NoError(t, err)
	require.False(t, handled)
}

func TestSetToken_PipeDelimited(t *testing.T) {
	m, _, sp, _ := newMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, adminID, ActionSetToken))
	handled, reply, err := m.Consume(ctx, adminID, adminID, 1, "newtok|newsess")
	require.NoError(t, err)
	require.True(t, handled)
	require.Contains(t, reply, "Token and session")

	token, session := sp.Credentials(ctx)
	require.Equal(t, "newtok", token)
	require.Equal(t, "newsess", session)
}

func TestSetToken_BareToken(t *testing.T) {
	m, _, sp, _ := newMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, adminID, ActionSetToken))
	_, _, err := m.Consume(ctx, adminID, adminID, 1, "only-token")
	require.NoError(t, err)

	token, session := sp.Credentials(ctx)
	require.Equal(t, "only-token", token)
	require.Equal(t, "", session)
}

func TestBroadcast_SkipsFailedRecipients(t *testing.T) {
	m, st, _, fwd := newMachine(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, st.UpsertUser(ctx, id, "u"))
	}
	fwd.failFor[2] = true

	require.NoError(t, m.Select(ctx, adminID, ActionBroadcast))
	handled, reply, err := m.Consume(ctx, adminID, adminID, 99, "hello everyone")
	require.NoError(t, err)
	require.True(t, handled)
	require.Contains(t, reply, "2 of 3")
	require.Equal(t, []int64{1, 3}, fwd.sent)
}

func TestStatsText_MultibytePromptStaysValidUTF8(t *testing.T) {
	m, st, _, _ := newMachine(t)
	ctx := context.Background()

	// 17 runes but 33 bytes: byte-based truncation would cut inside a
	// Cyrillic rune and produce text Telegram rejects.
	long := "a" + strings.Repeat("п", 16)
	require.NoError(t, st.AppendLog(ctx, &store.LogEntry{UserID: 1, Prompt: long, TS: 1}))

	text, err := m.StatsText(ctx)
	require.NoError(t, err)
	require.True(t, utf8.ValidString(text))
	require.Contains(t, text, long)

	wide := strings.Repeat("п", 40)
	require.NoError(t, st.AppendLog(ctx, &store.LogEntry{UserID: 1, Prompt: wide, TS: 2}))

	text, err = m.StatsText(ctx)
	require.NoError(t, err)
	require.True(t, utf8.ValidString(text))
	require.Contains(t, text, strings.Repeat("п", 30)+"...")
}

func TestSelect_ReplacesPriorAction(t *testing.T) {
	m, _, sp, _ := newMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, adminID, ActionBanFlow))
	require.NoError(t, m.Select(ctx, adminID, ActionSetLimit))

	_, _, err := m.Consume(ctx, adminID, adminID, 1, "60")
	require.NoError(t, err)
	require.Equal(t, 60, sp.RateLimitSeconds(ctx))

	// The ban flow was discarded, not queued.
	handled, _, err := m.Consume(ctx, adminID, adminID, 2, "123")
	require.NoError(t, err)
	require.False(t, handled)
}

package bot

import (
	"context"
	"strings"

	"imagenbot/internal/admin"
	"imagenbot/internal/logger"
	"imagenbot/internal/telegram"
)

// HandleUpdate routes one inbound update. Messages from the admin are
// offered to the session machine first; everything else that carries
// text is treated as a prompt.
func (s *Service) HandleUpdate(ctx context.Context, u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		s.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil && u.Message.Text != "":
		s.handleMessage(ctx, u.Message)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *telegram.Message) {
	from := msg.From
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start":
		if err := s.store.UpsertUser(ctx, from.ID, from.Username); err != nil {
			logger.Error().Err(err).Msg("start upsert failed")
		}
		s.reply(ctx, msg.Chat.ID, msgGreeting)
		return

	case text == "/admin":
		if !s.isAdmin(ctx, from.ID) {
			s.reply(ctx, msg.Chat.ID, msgNotAdmin)
			return
		}
		s.sendAdminMenu(ctx, msg.Chat.ID)
		return

	case text == "/styles":
		s.sendStyleMenu(ctx, msg.Chat.ID)
		return
	}

	if s.isAdmin(ctx, from.ID) {
		handled, reply, err := s.machine.Consume(ctx, from.ID, msg.Chat.ID, msg.MessageID, text)
		if err != nil {
			logger.Error().Err(err).Msg("admin action failed")
			s.reply(ctx, msg.Chat.ID, "Admin action failed, see logs.")
			return
		}
		if handled {
			s.reply(ctx, msg.Chat.ID, reply)
			return
		}
	}

	if err := s.Generate(ctx, Request{
		UserID:   from.ID,
		Username: from.Username,
		ChatID:   msg.Chat.ID,
		Prompt:   text,
	}); err != nil {
		logger.Error().Err(err).Int64("user_id", from.ID).Msg("pipeline failed")
	}
}

func (s *Service) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	if err := s.tg.AnswerCallbackQuery(ctx, q.ID); err != nil {
		logger.Warn().Err(err).Msg("callback ack failed")
	}
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID

	if prompt, ok := strings.CutPrefix(q.Data, "regen|"); ok {
		s.reply(ctx, chatID, msgRegenerating)
		if err := s.Generate(ctx, Request{
			UserID:   q.From.ID,
			Username: q.From.Username,
			ChatID:   chatID,
			Prompt:   prompt,
		}); err != nil {
			logger.Error().Err(err).Int64("user_id", q.From.ID).Msg("regenerate failed")
		}
		return
	}

	if key, ok := strings.CutPrefix(q.Data, "style|"); ok {
		opt, known := styleByKey(key)
		if !known {
			return
		}
		if err := s.styles.Set(ctx, q.From.ID, key); err != nil {
			logger.Error().Err(err).Msg("style selection failed")
			return
		}
		if err := s.tg.EditMessageText(ctx, chatID, q.Message.MessageID, "Style selected: "+opt.Label); err != nil {
			logger.Warn().Err(err).Msg("style menu edit failed")
		}
		return
	}

	if !s.isAdmin(ctx, q.From.ID) {
		return
	}
	s.handleAdminCallback(ctx, q)
}

func (s *Service) handleAdminCallback(ctx context.Context, q *telegram.CallbackQuery) {
	chatID := q.Message.Chat.ID
	edit := func(text string) {
		if err := s.tg.EditMessageText(ctx, chatID, q.Message.MessageID, text); err != nil {
			logger.Warn().Err(err).Msg("admin menu edit failed")
		}
	}

	arm := func(a admin.Action, ask string) {
		if err := s.machine.Select(ctx, q.From.ID, a); err != nil {
			logger.Error().Err(err).Msg("pending action arm failed")
			return
		}
		edit(ask)
	}

	switch q.Data {
	case "admin_stats":
		text, err := s.machine.StatsText(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("stats failed")
			return
		}
		edit(text)
	case "admin_broadcast":
		arm(admin.ActionBroadcast, msgAskBroadcast)
	case "admin_limit":
		arm(admin.ActionSetLimit, msgAskLimit)
	case "admin_ban":
		arm(admin.ActionBanFlow, msgAskBan)
	case "admin_token":
		arm(admin.ActionSetToken, msgAskToken)
	}
}

func (s *Service) isAdmin(ctx context.Context, userID int64) bool {
	adminID := s.settings.AdminID(ctx)
	return adminID != 0 && userID == adminID
}

func (s *Service) sendAdminMenu(ctx context.Context, chatID int64) {
	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "Stats", CallbackData: "admin_stats"}},
			{{Text: "Broadcast", CallbackData: "admin_broadcast"}},
			{{Text: "Rate limit", CallbackData: "admin_limit"}},
			{{Text: "Ban / Unban", CallbackData: "admin_ban"}},
			{{Text: "Token / Session", CallbackData: "admin_token"}},
		},
	}
	if _, err := s.tg.SendMessage(ctx, chatID, "Admin panel", &telegram.SendOptions{ReplyMarkup: markup}); err != nil {
		logger.Warn().Err(err).Msg("admin menu send failed")
	}
}

func (s *Service) sendStyleMenu(ctx context.Context, chatID int64) {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(styleOptions))
	for _, o := range styleOptions {
		rows = append(rows, []telegram.InlineKeyboardButton{
			{Text: o.Label, CallbackData: "style|" + o.Key},
		})
	}
	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
	if _, err := s.tg.SendMessage(ctx, chatID, "Pick a style for your prompts:", &telegram.SendOptions{ReplyMarkup: markup}); err != nil {
		logger.Warn().Err(err).Msg("style menu send failed")
	}
}

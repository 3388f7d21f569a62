package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"imagenbot/internal/admin"
	"imagenbot/internal/admission"
	"imagenbot/internal/common"
	"imagenbot/internal/digen"
	"imagenbot/internal/fetch"
	"imagenbot/internal/logger"
	"imagenbot/internal/settings"
	"imagenbot/internal/store"
	"imagenbot/internal/telegram"
)

// Transport is the outbound slice of the chat API the pipeline uses.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) (*telegram.Message, error)
	SendMediaGroup(ctx context.Context, chatID int64, photoURLs []string, caption string) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error
	SendVideo(ctx context.Context, chatID int64, video []byte, caption string) error
	ForwardMessage(ctx context.Context, chatID, fromChatID, messageID int64) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

type Generator interface {
	Generate(ctx context.Context, prompt string) ([]string, error)
}

type Fetcher interface {
	FetchAll(ctx context.Context, refs []string) ([]fetch.Result, error)
}

type Transformer interface {
	Transform(ctx context.Context, raw, styleSuffix string) string
}

// VideoEncoder derives a short clip from one image. Optional.
type VideoEncoder interface {
	FromImage(ctx context.Context, image []byte) ([]byte, error)
}

// Request is one generation attempt entering the pipeline, whether from
// a fresh message or the regenerate button.
type Request struct {
	UserID   int64
	Username string
	ChatID   int64
	Prompt   string
}

// Service composes the pipeline: admission, transform, generate, fetch,
// persist, respond, notify. Stages run in order; a failed stage stops
// the pipeline except where partial success is tolerated.
type Service struct {
	store       *store.Store
	settings    *settings.Provider
	admission   *admission.Controller
	transformer Transformer
	generator   Generator
	fetcher     Fetcher
	encoder     VideoEncoder // nil disables video
	tg          Transport
	machine     *admin.Machine
	styles      *StyleSelections

	now func() time.Time
}

func NewService(
	st *store.Store,
	sp *settings.Provider,
	adm *admission.Controller,
	tr Transformer,
	gen Generator,
	f Fetcher,
	enc VideoEncoder,
	tg Transport,
	machine *admin.Machine,
	styles *StyleSelections,
) *Service {
	return &Service{
		store:       st,
		settings:    sp,
		admission:   adm,
		transformer: tr,
		generator:   gen,
		fetcher:     f,
		encoder:     enc,
		tg:          tg,
		machine:     machine,
		styles:      styles,
		now:         time.Now,
	}
}

// Generate runs the whole pipeline for one request. User-facing errors
// are delivered through the transport; the returned error is for logs.
func (s *Service) Generate(ctx context.Context, req Request) error {
	reqID, _ := common.NewULID()
	log := logger.Info().Str("req", reqID).Int64("user_id", req.UserID)
	log.Str("prompt", req.Prompt).Msg("generation request")

	now := s.now()

	decision, err := s.admission.Admit(ctx, req.UserID, req.Username, now)
	if err != nil {
		return fmt.Errorf("admission: %w", err)
	}
	if !decision.Allowed {
		switch decision.Reason {
		case admission.ReasonBanned:
			s.reply(ctx, req.ChatID, msgBanned)
		case admission.ReasonRateLimited:
			s.reply(ctx, req.ChatID, msgRateLimited(decision.RetryAfterSeconds))
		}
		return nil
	}

	s.reply(ctx, req.ChatID, msgAccepted)

	var styleKey, styleSuffix string
	if s.styles != nil {
		if opt, ok := s.styles.Get(ctx, req.UserID); ok {
			styleKey, styleSuffix = opt.Key, opt.Suffix
		}
	}
	canonical := s.transformer.Transform(ctx, req.Prompt, styleSuffix)
	logger.Debug().Str("req", reqID).Str("canonical", canonical).Msg("prompt transformed")

	refs, err := s.generator.Generate(ctx, canonical)
	if err != nil {
		s.handleGenerateError(ctx, req, err)
		return err
	}

	results, err := s.fetcher.FetchAll(ctx, refs)
	if err != nil {
		// Every single download failed; nothing is logged or billed
		// against the user's window.
		s.reply(ctx, req.ChatID, msgFetchFailed)
		return err
	}

	if err := s.store.AppendLog(ctx, &store.LogEntry{
		UserID:   req.UserID,
		Username: req.Username,
		Prompt:   req.Prompt,
		Style:    styleKey,
		Images:   strings.Join(refs, ","),
		TS:       now.Unix(),
	}); err != nil {
		logger.Error().Err(err).Str("req", reqID).Msg("log append failed")
	}

	s.deliver(ctx, req, refs, results)

	if s.encoder != nil {
		s.sendVideo(ctx, req.ChatID, results)
	}

	if err := s.store.SetLastGenTS(ctx, req.UserID, now.Unix()); err != nil {
		logger.Error().Err(err).Str("req", reqID).Msg("timestamp update failed")
	}

	s.notifyAdmin(ctx, req, results)
	return nil
}

func (s *Service) handleGenerateError(ctx context.Context, req Request, err error) {
	var exhausted *digen.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		// Provider bodies are admin-only diagnostics.
		s.reply(ctx, req.ChatID, msgGenFailed)
		if adminID := s.settings.AdminID(ctx); adminID != 0 {
			diag := fmt.Sprintf("Generation exhausted for user %d\nstatus: %d\nbody: %s",
				req.UserID, exhausted.LastStatus, common.TruncateRunes(exhausted.LastBody, 1000))
			if _, err := s.tg.SendMessage(ctx, adminID, diag, nil); err != nil {
				logger.Warn().Err(err).Msg("admin diagnostics delivery failed")
			}
		}
	case errors.Is(err, digen.ErrNoAssets):
		s.reply(ctx, req.ChatID, msgNoAssets)
	default:
		s.reply(ctx, req.ChatID, msgGenFailed)
	}
}

// deliver sends the album and the regenerate affordance.
func (s *Service) deliver(ctx context.Context, req Request, refs []string, results []fetch.Result) {
	if err := s.tg.SendMediaGroup(ctx, req.ChatID, refs, msgPromptCaption(req.Prompt)); err != nil {
		logger.Warn().Err(err).Msg("media group failed, sending photos individually")
		for _, r := range results {
			if !r.OK() {
				continue
			}
			if err := s.tg.SendPhoto(ctx, req.ChatID, r.Data, ""); err != nil {
				logger.Warn().Err(err).Msg("photo send failed")
			}
		}
	}

	opts := &telegram.SendOptions{}
	if data := "regen|" + req.Prompt; len(data) <= telegram.MaxCallbackData {
		opts.ReplyMarkup = &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: "Regenerate", CallbackData: data},
			}},
		}
	}
	if _, err := s.tg.SendMessage(ctx, req.ChatID, msgPromptCaption(req.Prompt), opts); err != nil {
		logger.Warn().Err(err).Msg("prompt echo failed")
	}
}

func (s *Service) sendVideo(ctx context.Context, chatID int64, results []fetch.Result) {
	var first []byte
	for _, r := range results {
		if r.OK() {
			first = r.Data
			break
		}
	}
	if first == nil {
		return
	}

	clip, err := s.encoder.FromImage(ctx, first)
	if err != nil {
		logger.Warn().Err(err).Msg("video encode failed")
		s.reply(ctx, chatID, msgVideoFailed)
		return
	}
	if err := s.tg.SendVideo(ctx, chatID, clip, "Short video from the first image"); err != nil {
		logger.Warn().Err(err).Msg("video send failed")
	}
}

// notifyAdmin is best-effort; the requester never sees a failure here.
func (s *Service) notifyAdmin(ctx context.Context, req Request, results []fetch.Result) {
	adminID := s.settings.AdminID(ctx)
	if adminID == 0 || adminID == req.UserID {
		return
	}

	text := fmt.Sprintf("@%s (ID: %d)\n%s", orNA(req.Username), req.UserID, req.Prompt)
	if _, err := s.tg.SendMessage(ctx, adminID, text, nil); err != nil {
		logger.Warn().Err(err).Msg("admin notify failed")
		return
	}
	for _, r := range results {
		if r.OK() {
			if err := s.tg.SendPhoto(ctx, adminID, r.Data, ""); err != nil {
				logger.Warn().Err(err).Msg("admin photo notify failed")
			}
			break
		}
	}
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if _, err := s.tg.SendMessage(ctx, chatID, text, nil); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// MaxCallbackData is Telegram's limit on callback_data payloads.
const MaxCallbackData = 64

// Client is a minimal Bot API client covering what the bot needs:
// long polling plus a handful of send methods.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, pollTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		// The HTTP timeout must outlive the long-poll window.
		httpClient: &http.Client{Timeout: pollTimeout + 15*time.Second},
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp.Body, method, out)
}

func decodeResponse(r io.Reader, method string, out any) error {
	var decoded apiResponse
	if err := json.NewDecoder(r).Decode(&decoded); err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	if !decoded.Ok {
		return fmt.Errorf("telegram: %s: %s (code %d)", method, decoded.Description, decoded.ErrorCode)
	}
	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("telegram: %s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message", "callback_query"},
	}, &updates)
	return updates, err
}

type SendOptions struct {
	ParseMode   string
	ReplyMarkup *InlineKeyboardMarkup
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*Message, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if opts != nil {
		if opts.ParseMode != "" {
			params["parse_mode"] = opts.ParseMode
		}
		if opts.ReplyMarkup != nil {
			params["reply_markup"] = opts.ReplyMarkup
		}
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendMediaGroup sends up to ten photos by URL as an album.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, photoURLs []string, caption string) error {
	media := make([]InputMediaPhoto, 0, len(photoURLs))
	for i, u := range photoURLs {
		m := InputMediaPhoto{Type: "photo", Media: u}
		if i == 0 {
			m.Caption = caption
		}
		media = append(media, m)
	}
	return c.call(ctx, "sendMediaGroup", map[string]any{
		"chat_id": chatID,
		"media":   media,
	}, nil)
}

func (c *Client) ForwardMessage(ctx context.Context, chatID, fromChatID, messageID int64) error {
	return c.call(ctx, "forwardMessage", map[string]any{
		"chat_id":      chatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}, nil)
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	}, nil)
}

// SendPhoto uploads photo bytes via multipart.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	return c.upload(ctx, "sendPhoto", chatID, "photo", "photo.jpg", photo, caption)
}

// SendVideo uploads video bytes via multipart.
func (c *Client) SendVideo(ctx context.Context, chatID int64, video []byte, caption string) error {
	return c.upload(ctx, "sendVideo", chatID, "video", "video.mp4", video, caption)
}

func (c *Client) upload(ctx context.Context, method string, chatID int64, field, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp.Body, method, nil)
}

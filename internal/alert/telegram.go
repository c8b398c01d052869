package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// TelegramAPI is the Bot API endpoint.
	TelegramAPI = "https://api.telegram.org"

	// PhotoTimeout bounds a sendPhoto request.
	PhotoTimeout = 12 * time.Second
	// MessageTimeout bounds a sendMessage request.
	MessageTimeout = 6 * time.Second
)

// ErrNotConfigured is returned when a sender lacks credentials.
var ErrNotConfigured = errors.New("alert sender not configured")

// Telegram sends alerts to a chat through the Telegram Bot API.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegram returns a Telegram sender, or nil when token or chatID is empty.
func NewTelegram(token, chatID string) *Telegram {
	if token == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: TelegramAPI,
		client:  &http.Client{},
	}
}

// WithBaseURL points the sender at another API host.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

// Send posts a photo with the alert text as caption, or a plain message when
// the alert carries no image.
func (t *Telegram) Send(ctx context.Context, a Alert) error {
	if t == nil {
		return ErrNotConfigured
	}
	if len(a.Image) > 0 {
		return t.sendPhoto(ctx, a.Image, a.Text())
	}
	return t.sendMessage(ctx, a.Text())
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, MessageTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return t.do(req)
}

func (t *Telegram) sendPhoto(ctx context.Context, image []byte, caption string) error {
	ctx, cancel := context.WithTimeout(ctx, PhotoTimeout)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", t.chatID); err != nil {
		return err
	}
	if err := w.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := w.CreateFormFile("photo", "image.jpg")
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendPhoto"), &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return t.do(req)
}

func (t *Telegram) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

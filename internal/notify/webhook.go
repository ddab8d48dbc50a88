package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Webhook posts the plain-text announcement to a chat incoming webhook.
type Webhook struct {
	URL   string
	Token string
	HTTP  *http.Client
}

func NewWebhook(url, token string) *Webhook {
	return &Webhook{URL: url, Token: token, HTTP: &http.Client{}}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) NoteCreated(ctx context.Context, e NoteCreated) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, strings.NewReader(e.Text()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if w.Token != "" {
		req.Header.Set("Authorization", w.Token)
	}
	resp, err := w.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"GrantScanner/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// maxMessageLen is the Bot API limit for a single sendMessage text.
const maxMessageLen = 4096

// Notifier sends metrics digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty baseURL means the public Bot API.
func NewNotifier(botToken, chatID, baseURL string) *Notifier {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Configured reports whether both token and chat are set.
func (n *Notifier) Configured() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// PublishDigest posts a Markdown message to Telegram, split into chunks when it
// exceeds the message length limit.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if !n.Configured() || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	for _, chunk := range splitMessage(digest, maxMessageLen) {
		if err := n.send(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// splitMessage cuts on line boundaries where possible.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if current.Len()+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// Package notify implements the outbound mail collaborator. It speaks to
// a Mailgun-style transactional provider and maps the provider's message
// strings onto errors the caller can act on.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidAddress is returned when the provider rejects the recipient.
var ErrInvalidAddress = errors.New("invalid email address")

// Provider response messages. The provider contract is string-matched:
// anything other than the queued message is a failure.
const (
	msgQueued         = "Queued. Thank you."
	msgInvalidAddress = "'to' parameter is not a valid address. please check documentation"
)

// Config carries the provider options explicitly; the daemon reads the
// environment and builds one, components never reach into env themselves.
type Config struct {
	Endpoint    string
	FromAddress string
	APIKey      string
}

// Mailer sends transactional mail through the configured provider.
type Mailer struct {
	cfg    Config
	client *http.Client
}

// NewMailer returns a mailer for the given provider config.
func NewMailer(cfg Config) *Mailer {
	if cfg.FromAddress == "" {
		cfg.FromAddress = "Celerix Guard <guard@celerix.dev>"
	}
	return &Mailer{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMail posts one message to the provider. Delivery is best-effort:
// there is no retry here, and a failure never rolls back whatever record
// mutation prompted the notification.
func (m *Mailer) SendMail(ctx context.Context, to, subject, body string) error {
	form := url.Values{
		"from":    {m.cfg.FromAddress},
		"to":      {to},
		"subject": {subject},
		"text":    {body},
	}

	endpoint := strings.TrimSuffix(m.cfg.Endpoint, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("send failed: unreadable provider response: %w", err)
	}

	switch out.Message {
	case msgQueued:
		return nil
	case msgInvalidAddress:
		return ErrInvalidAddress
	default:
		return fmt.Errorf("send failed: %s", out.Message)
	}
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Mailer is the opaque delivery transport. Failure semantics are the
// provider's; this pipeline never retries a send within a run.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

var (
	ErrMissingMailgunKey    = errors.New("MAILGUN_KEY environment variable is required for mailgun mailer")
	ErrMissingMailgunDomain = errors.New("mailgun domain is not configured")
	ErrUnknownMailer        = errors.New("unknown mailer provider")
)

// NewMailer builds the configured transport.
func NewMailer(cfg Config) (Mailer, error) {
	switch cfg.Mailer.Provider {
	case "mailgun":
		key := os.Getenv("MAILGUN_KEY")
		if key == "" {
			return nil, ErrMissingMailgunKey
		}
		if cfg.Mailer.Domain == "" {
			return nil, ErrMissingMailgunDomain
		}
		return NewMailgunMailer(cfg.Mailer.Domain, key, cfg.FromEmail), nil
	case "console", "":
		return ConsoleMailer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMailer, cfg.Mailer.Provider)
	}
}

// MailgunMailer submits messages through the Mailgun HTTP API.
type MailgunMailer struct {
	domain     string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewMailgunMailer(domain, apiKey, from string) *MailgunMailer {
	return &MailgunMailer{
		domain: domain,
		apiKey: apiKey,
		from:   from,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (m *MailgunMailer) Send(ctx context.Context, to, subject, text, html string) error {
	form := url.Values{}
	form.Set("from", m.from)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("text", text)
	form.Set("html", html)

	endpoint := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", m.domain)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mailgun send failed: status %d", resp.StatusCode)
	}
	return nil
}

// ConsoleMailer logs instead of sending; the default for local development.
type ConsoleMailer struct{}

func (ConsoleMailer) Send(ctx context.Context, to, subject, text, html string) error {
	log.Printf("[notify] console mailer: to=%s subject=%q text=%d bytes html=%d bytes",
		to, subject, len(text), len(html))
	return nil
}

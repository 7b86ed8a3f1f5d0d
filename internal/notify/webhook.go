package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/intake/common/logger"
)

const maxErrorBody = 4 << 10

// DeliveryError is a failed webhook delivery: a transport error (StatusCode 0)
// or a non-2xx response.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook request failed: %v", e.Err)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type WebhookClient struct {
	http    *http.Client
	timeout time.Duration
}

func NewWebhookClient(timeout time.Duration) *WebhookClient {
	return NewWebhookClientWithHTTP(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}, timeout)
}

func NewWebhookClientWithHTTP(client *http.Client, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookClient{http: client, timeout: timeout}
}

// Post delivers payload with a single request. There is no retry.
func (c *WebhookClient) Post(ctx context.Context, webhookURL string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	target, err := url.Parse(webhookURL)
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("parse webhook url: %w", err)}
	}
	if len(payload.Components) > 0 {
		q := target.Query()
		q.Set("with_components", "true")
		target.RawQuery = q.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("build webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	slog.DebugContext(ctx, "webhook delivered", "status_code", resp.StatusCode, "payload_bytes", len(body))
	return nil
}

type Config struct {
	WebhookURL string
	Username   string
	AvatarURL  string
	Components bool
}

// Notifier renders and delivers one notification per submission.
type Notifier struct {
	client *WebhookClient
	cfg    Config
}

func NewNotifier(client *WebhookClient, cfg Config) *Notifier {
	return &Notifier{client: client, cfg: cfg}
}

func (n *Notifier) Notify(ctx context.Context, in PayloadInput) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "intake.notify"})

	in.Username = n.cfg.Username
	in.AvatarURL = n.cfg.AvatarURL
	in.Components = n.cfg.Components

	payload := BuildPayload(in)
	if err := n.client.Post(ctx, n.cfg.WebhookURL, payload); err != nil {
		return err
	}

	slog.InfoContext(ctx, "notification sent",
		"urgent", payload.Content != "",
		"embeds", len(payload.Embeds))
	return nil
}

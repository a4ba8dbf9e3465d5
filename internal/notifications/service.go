package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"darkroom/internal/config"
)

const userAgent = "Darkroom-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyIngestCompleted(ctx context.Context, accepted, skipped, conflicts int) error
	NotifyPromotionCompleted(ctx context.Context, filename, goldName string) error
	NotifyReviewNeeded(ctx context.Context, filename, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		events:   cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func (n *ntfyService) NotifyIngestCompleted(ctx context.Context, accepted, skipped, conflicts int) error {
	if !n.events.Ingest {
		return nil
	}
	message := fmt.Sprintf("Ingest complete: %d accepted, %d skipped", accepted, skipped)
	if conflicts > 0 {
		message = fmt.Sprintf("%s, %d conflicts need review", message, conflicts)
	}
	data := payload{
		title:   "Darkroom - Ingest Complete",
		message: message,
		tags:    []string{"darkroom", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPromotionCompleted(ctx context.Context, filename, goldName string) error {
	if !n.events.Promotion {
		return nil
	}
	filename = strings.TrimSpace(filename)
	goldName = strings.TrimSpace(goldName)
	message := fmt.Sprintf("Promoted to gold: %s", filename)
	if goldName != "" {
		message = fmt.Sprintf("%s\nGold file: %s", message, goldName)
	}
	data := payload{
		title:   "Darkroom - Promoted",
		message: message,
		tags:    []string{"darkroom", "promote", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, filename, reason string) error {
	if !n.events.Review {
		return nil
	}
	filename = strings.TrimSpace(filename)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual review required"
	}
	data := payload{
		title:   "Darkroom - Review Needed",
		message: fmt.Sprintf("%s: %s", filename, reason),
		tags:    []string{"darkroom", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Darkroom - Error",
		message:  builder.String(),
		tags:     []string{"darkroom", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Darkroom - Test",
		message:  "Notification system test",
		tags:     []string{"darkroom", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyIngestCompleted(context.Context, int, int, int) error     { return nil }
func (noopService) NotifyPromotionCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyReviewNeeded(context.Context, string, string) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }

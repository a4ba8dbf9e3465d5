package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"darkroom/internal/config"
	"darkroom/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyIngestCompleted(context.Background(), 3, 1, 0); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "ingest completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyIngestCompleted(context.Background(), 5, 2, 1)
			},
			expectTitle:   "Darkroom - Ingest Complete",
			expectMessage: "Ingest complete: 5 accepted, 2 skipped, 1 conflicts need review",
			expectTags:    "darkroom,ingest,completed",
		},
		{
			name: "promotion completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPromotionCompleted(context.Background(), "IMG_0042.jpg", "2024-07-14_Sunset.jpg")
			},
			expectTitle:   "Darkroom - Promoted",
			expectMessage: "Promoted to gold: IMG_0042.jpg\nGold file: 2024-07-14_Sunset.jpg",
			expectTags:    "darkroom,promote,completed",
		},
		{
			name: "review needed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyReviewNeeded(context.Background(), "IMG_0043.jpg", "visual duplicate conflict")
			},
			expectTitle:   "Darkroom - Review Needed",
			expectMessage: "IMG_0043.jpg: visual duplicate conflict",
			expectTags:    "darkroom,review",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("db locked"), "ingest")
			},
			expectTitle:    "Darkroom - Error",
			expectMessage:  "Error with ingest: db locked",
			expectTags:     "darkroom,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Ingest = false
	cfg.Notifications.Promotion = false
	cfg.Notifications.Review = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyIngestCompleted(ctx, 1, 0, 0); err != nil {
		t.Fatalf("suppressed ingest event: %v", err)
	}
	if err := svc.NotifyPromotionCompleted(ctx, "a.jpg", ""); err != nil {
		t.Fatalf("suppressed promotion event: %v", err)
	}
	if err := svc.NotifyReviewNeeded(ctx, "a.jpg", ""); err != nil {
		t.Fatalf("suppressed review event: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("x"), "y"); err != nil {
		t.Fatalf("suppressed error event: %v", err)
	}
}

// Package aimeta turns photo bytes into structured descriptions. Configured
// providers are tried in order with bounded timeouts; when every provider is
// down a deterministic local fallback builds a description from EXIF and
// people context so ingestion never blocks on an external service.
package aimeta

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/media"
	"darkroom/internal/services"
)

// LocalProviderName tags analyses produced by the offline fallback.
const LocalProviderName = "local"

// PersonContext is one known person in the photo, used to ground both the
// provider prompt and the local fallback description.
type PersonContext struct {
	Name string
	// Age in whole years at capture time, -1 when unknown.
	Age int
}

// Request carries everything a provider may use to describe a photo.
type Request struct {
	Data        []byte
	MIMEType    string
	Filename    string
	CaptureTime time.Time
	EXIF        *media.EXIFBlock
	People      []PersonContext
}

// Analysis is a provider's structured description of a photo.
type Analysis struct {
	Tags             []string
	ShortDescription string
	LongDescription  string
	DetectedObjects  []string
	ConfidenceScores map[string]float64
	Confidence       float64
}

// Provider produces an analysis for photo bytes. Implementations must honor
// context cancellation.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*Analysis, error)
}

// Orchestrator walks the provider chain. Configuration is passed in at
// construction; there is no process-global provider state.
type Orchestrator struct {
	providers []Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewOrchestrator builds an orchestrator over explicit providers. A nil
// logger is replaced with a no-op logger.
func NewOrchestrator(providers []Provider, cfg config.AI, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{providers: providers, timeout: timeout, logger: logger}
}

// Analyze tries each provider in order, allowing one retry per provider.
// When the whole chain fails the local fallback produces the result, so the
// returned block is always usable.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) *media.AIBlock {
	for _, provider := range o.providers {
		analysis, err := o.tryProvider(ctx, provider, req)
		if err != nil {
			o.logger.Warn("provider failed",
				logging.String("provider", provider.Name()),
				logging.Error(err))
			continue
		}
		return toBlock(provider.Name(), analysis)
	}
	o.logger.Info("all providers unavailable, using local fallback")
	return toBlock(LocalProviderName, LocalFallback(req))
}

func (o *Orchestrator) tryProvider(ctx context.Context, provider Provider, req Request) (*Analysis, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		analysis, err := provider.Analyze(attemptCtx, req)
		cancel()
		if err == nil && analysis != nil {
			return analysis, nil
		}
		if err == nil {
			err = fmt.Errorf("empty analysis")
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, services.Wrap(services.ErrProviderUnavailable, "aimeta", provider.Name(), "analyze", lastErr)
}

// LocalFallback builds a deterministic description from what the catalog
// already knows: capture date, camera, and people present.
func LocalFallback(req Request) *Analysis {
	var parts []string
	tags := []string{}

	if !req.CaptureTime.IsZero() {
		parts = append(parts, "Photo taken on "+req.CaptureTime.Format("2 January 2006"))
		tags = append(tags, strings.ToLower(req.CaptureTime.Format("January")), req.CaptureTime.Format("2006"))
	} else {
		parts = append(parts, "Photo")
	}
	if req.EXIF != nil && req.EXIF.CameraModel != "" {
		parts = append(parts, "with "+strings.TrimSpace(req.EXIF.CameraMake+" "+req.EXIF.CameraModel))
	}
	if len(req.People) > 0 {
		names := make([]string, 0, len(req.People))
		for _, person := range req.People {
			if person.Age >= 0 {
				names = append(names, fmt.Sprintf("%s (%d)", person.Name, person.Age))
			} else {
				names = append(names, person.Name)
			}
			tags = append(tags, strings.ToLower(person.Name))
		}
		parts = append(parts, "featuring "+joinNames(names))
	}

	sort.Strings(tags)
	description := strings.Join(parts, " ")
	return &Analysis{
		Tags:             tags,
		ShortDescription: description,
		LongDescription:  description + ".",
		Confidence:       0.2,
	}
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func toBlock(provider string, analysis *Analysis) *media.AIBlock {
	return &media.AIBlock{
		Provider:         provider,
		Tags:             analysis.Tags,
		ShortDescription: analysis.ShortDescription,
		LongDescription:  analysis.LongDescription,
		DetectedObjects:  analysis.DetectedObjects,
		ConfidenceScores: analysis.ConfidenceScores,
		Confidence:       analysis.Confidence,
		AnalyzedAt:       time.Now().UTC(),
	}
}

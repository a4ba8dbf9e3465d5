package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedMedia marks files outside the supported image/video types.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrInvalidTierTransition marks promote/demote calls that violate the
	// tier state machine.
	ErrInvalidTierTransition = errors.New("invalid tier transition")
	// ErrNoLowerVersionAvailable marks a demote with nothing to fall back to.
	ErrNoLowerVersionAvailable = errors.New("no lower version available")
	// ErrProviderUnavailable marks an exhausted provider chain; callers fall
	// back to local metadata rather than failing the operation.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrDetectionFailure marks a face detector error; the photo simply ends
	// up with zero faces.
	ErrDetectionFailure = errors.New("face detection failure")
	// ErrPersistence marks record-store failures; fatal for the current item.
	ErrPersistence = errors.New("persistence error")

	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrTransient  = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort an entire batch rather than
// just the item that produced it. Only persistence-layer unavailability
// qualifies; everything else is collected per item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPersistence)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

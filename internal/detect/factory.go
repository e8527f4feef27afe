package detect

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
)

// Mode selects which detector implementation drives foreground lookups.
type Mode string

const (
	// ModeAuto prefers events when a source is available, else polling.
	ModeAuto Mode = "auto"
	// ModePoll forces process-table polling.
	ModePoll Mode = "poll"
	// ModeEvent forces event-driven detection.
	ModeEvent Mode = "event"
)

// New builds the detector for the requested mode. source may be nil; a nil
// or unavailable source makes ModeEvent an error and ModeAuto fall back to
// polling.
func New(mode Mode, hostPackage string, source domain.EventSource, logger *zap.Logger) (domain.ForegroundDetector, error) {
	switch mode {
	case ModePoll:
		return NewPollingDetector(hostPackage), nil

	case ModeEvent:
		if source == nil || !source.IsAvailable() {
			return nil, fmt.Errorf("event detection requested but no event source is available")
		}
		return NewEventDetector(source, hostPackage), nil

	case ModeAuto, "":
		if source != nil && source.IsAvailable() {
			logger.Info("using event-driven foreground detection")
			return NewEventDetector(source, hostPackage), nil
		}
		logger.Info("no event source available, using polling detection")
		return NewPollingDetector(hostPackage), nil

	default:
		return nil, fmt.Errorf("unknown detector mode: %q", mode)
	}
}

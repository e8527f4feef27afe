package detect

import "github.com/Prashants23/Boundly/internal/domain"

// platformSource bridges OS window-focus hooks into an EventSource. It is
// nil unless a build-tagged platform file assigns one, in which case the
// daemon subscribes to it and detector mode "event" becomes usable.
var platformSource domain.EventSource

// PlatformSource returns the built-in OS event source, or nil when this
// build carries none.
func PlatformSource() domain.EventSource {
	return platformSource
}

// HasEventBackend reports whether detector mode "event" can work without
// the caller supplying its own source.
func HasEventBackend() bool {
	return platformSource != nil && platformSource.IsAvailable()
}

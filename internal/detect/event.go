package detect

import (
	"context"
	"sync"

	"github.com/Prashants23/Boundly/internal/domain"
)

// EventDetector answers foreground queries from the newest focus-change
// event instead of scanning the process table. It satisfies the detector
// interface so the monitor can treat both modes uniformly.
type EventDetector struct {
	source      domain.EventSource
	hostPackage string

	mu   sync.RWMutex
	last *domain.ForegroundApp
}

// NewEventDetector creates an event-mode detector over source.
func NewEventDetector(source domain.EventSource, hostPackage string) *EventDetector {
	return &EventDetector{
		source:      source,
		hostPackage: hostPackage,
	}
}

// Start subscribes to the source and consumes focus events in the
// background until ctx is canceled. The subscription is registered before
// Start returns, so events published afterwards are never lost.
func (d *EventDetector) Start(ctx context.Context) error {
	ch, err := d.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	go d.consume(ctx, ch)
	return nil
}

func (d *EventDetector) consume(ctx context.Context, ch <-chan domain.FocusEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			d.observe(ev.App)
		}
	}
}

func (d *EventDetector) observe(app domain.ForegroundApp) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if app.PackageName == "" || app.PackageName == d.hostPackage {
		d.last = nil
		return
	}
	copied := app
	d.last = &copied
}

// Current returns the most recently observed foreground app, or nil when no
// event has arrived yet.
func (d *EventDetector) Current() (*domain.ForegroundApp, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return nil, nil
	}
	copied := *d.last
	return &copied, nil
}

// IsAvailable reports whether the underlying event source works here.
func (d *EventDetector) IsAvailable() bool {
	return d.source.IsAvailable()
}

// Name identifies this detector in logs and status output.
func (d *EventDetector) Name() string {
	return "event"
}

// Close is a no-op; the subscription is owned by Start's context.
func (d *EventDetector) Close() error {
	return nil
}

// Ensure EventDetector implements domain.ForegroundDetector.
var _ domain.ForegroundDetector = (*EventDetector)(nil)

// ChannelSource is an in-process event source. Focus events are pushed with
// Publish; the daemon wires OS window hooks to it, and tests drive it
// directly.
type ChannelSource struct {
	mu        sync.Mutex
	subs      []chan domain.FocusEvent
	available bool
}

// NewChannelSource creates a source. available controls IsAvailable, letting
// the factory fall back to polling when no window hook exists.
func NewChannelSource(available bool) *ChannelSource {
	return &ChannelSource{available: available}
}

// Subscribe returns a channel of focus events, closed when ctx is canceled.
func (s *ChannelSource) Subscribe(ctx context.Context) (<-chan domain.FocusEvent, error) {
	ch := make(chan domain.FocusEvent, 16)

	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Publish delivers an event to all subscribers. Slow subscribers drop
// events rather than block the publisher.
func (s *ChannelSource) Publish(ev domain.FocusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

// IsAvailable reports whether this source delivers events.
func (s *ChannelSource) IsAvailable() bool {
	return s.available
}

// Ensure ChannelSource implements domain.EventSource.
var _ domain.EventSource = (*ChannelSource)(nil)

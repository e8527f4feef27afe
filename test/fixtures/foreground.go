// Package fixtures provides test doubles shared by integration tests.
package fixtures

import (
	"context"
	"sync"

	"github.com/Prashants23/Boundly/internal/domain"
)

// ScriptedDetector is a ForegroundDetector whose answer is set by the test.
type ScriptedDetector struct {
	mu      sync.Mutex
	app     *domain.ForegroundApp
	err     error
	queries int
}

func NewScriptedDetector() *ScriptedDetector {
	return &ScriptedDetector{}
}

// SetApp scripts the next answers. Pass nil for "unknown foreground".
func (d *ScriptedDetector) SetApp(app *domain.ForegroundApp) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.app = app
	d.err = nil
}

// SetError scripts detection failures.
func (d *ScriptedDetector) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *ScriptedDetector) Current() (*domain.ForegroundApp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries++
	if d.err != nil {
		return nil, d.err
	}
	if d.app == nil {
		return nil, nil
	}
	app := *d.app
	return &app, nil
}

// Queries returns how many times Current was called.
func (d *ScriptedDetector) Queries() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries
}

func (d *ScriptedDetector) IsAvailable() bool { return true }
func (d *ScriptedDetector) Name() string      { return "scripted" }
func (d *ScriptedDetector) Close() error      { return nil }

var _ domain.ForegroundDetector = (*ScriptedDetector)(nil)

// CaptureRedirector records every redirect it receives.
type CaptureRedirector struct {
	mu     sync.Mutex
	states []domain.BlockState
}

func NewCaptureRedirector() *CaptureRedirector {
	return &CaptureRedirector{}
}

func (r *CaptureRedirector) Redirect(_ context.Context, state domain.BlockState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return nil
}

// Count returns how many redirects were issued.
func (r *CaptureRedirector) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Last returns the most recent redirect, or nil.
func (r *CaptureRedirector) Last() *domain.BlockState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil
	}
	state := r.states[len(r.states)-1]
	return &state
}

var _ domain.Redirector = (*CaptureRedirector)(nil)

package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
)

const hostPackage = "com.boundly.app"

func TestNew_PollMode(t *testing.T) {
	d, err := New(ModePoll, hostPackage, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "polling", d.Name())
}

func TestNew_EventModeRequiresSource(t *testing.T) {
	_, err := New(ModeEvent, hostPackage, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = New(ModeEvent, hostPackage, NewChannelSource(false), zap.NewNop())
	assert.Error(t, err)

	d, err := New(ModeEvent, hostPackage, NewChannelSource(true), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "event", d.Name())
}

func TestNew_AutoPrefersEvents(t *testing.T) {
	d, err := New(ModeAuto, hostPackage, NewChannelSource(true), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "event", d.Name())

	d, err = New(ModeAuto, hostPackage, NewChannelSource(false), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "polling", d.Name())
}

func TestPlatformSource_NoneBuiltIn(t *testing.T) {
	assert.Nil(t, PlatformSource())
	assert.False(t, HasEventBackend())
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New(Mode("x11"), hostPackage, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestEventDetector_CachesNewestEvent(t *testing.T) {
	src := NewChannelSource(true)
	d := NewEventDetector(src, hostPackage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))

	// Nothing observed yet.
	app, err := d.Current()
	require.NoError(t, err)
	assert.Nil(t, app)

	// The first event after Start must not be dropped.
	src.Publish(domain.FocusEvent{
		App:        domain.ForegroundApp{PackageName: "com.x", AppName: "X"},
		OccurredAt: time.Now(),
	})

	require.Eventually(t, func() bool {
		app, _ := d.Current()
		return app != nil && app.PackageName == "com.x"
	}, time.Second, 5*time.Millisecond)

	// The host app never reports as foreground.
	src.Publish(domain.FocusEvent{
		App:        domain.ForegroundApp{PackageName: hostPackage},
		OccurredAt: time.Now(),
	})

	require.Eventually(t, func() bool {
		app, _ := d.Current()
		return app == nil
	}, time.Second, 5*time.Millisecond)
}

func TestPackageFor(t *testing.T) {
	assert.Equal(t, "com.valvesoftware.steam", PackageFor("com.valvesoftware.steam"))
	assert.Equal(t, "firefox", PackageFor("Firefox"))
}

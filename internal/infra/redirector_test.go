package infra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
)

func TestCommandRedirector_PassesBlockDetails(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out")

	// The blocker sees the block through its environment.
	r := NewCommandRedirector("sh", []string{"-c", "echo \"$BOUNDLY_PACKAGE $BOUNDLY_USAGE_MS $BOUNDLY_LIMIT_MS\" > " + outPath}, zap.NewNop())

	err := r.Redirect(context.Background(), domain.BlockState{
		PackageName: "com.x",
		AppName:     "X",
		UsageMs:     60000,
		LimitMs:     60000,
	})
	require.NoError(t, err)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "com.x 60000 60000\n", string(out))
}

func TestCommandRedirector_EmptyCommandFails(t *testing.T) {
	r := NewCommandRedirector("", nil, zap.NewNop())
	err := r.Redirect(context.Background(), domain.BlockState{PackageName: "com.x"})
	assert.Error(t, err)
}

func TestCommandRedirector_FailingCommandReturnsError(t *testing.T) {
	r := NewCommandRedirector("sh", []string{"-c", "exit 3"}, zap.NewNop())
	err := r.Redirect(context.Background(), domain.BlockState{PackageName: "com.x"})
	assert.Error(t, err)
}

func TestLogRedirector_AlwaysSucceeds(t *testing.T) {
	r := NewLogRedirector(zap.NewNop())
	assert.NoError(t, r.Redirect(context.Background(), domain.BlockState{PackageName: "com.x"}))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionforge/sessionforge/internal/types"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_cli: codex
max_concurrent: 5
review_enabled: true
context_restart_percent: 20
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, types.CLICodex, s.DefaultCLI)
	assert.Equal(t, 5, s.MaxConcurrent)
	assert.True(t, s.ReviewEnabled)
	assert.Equal(t, 20, s.ContextRestartPercent)
	// untouched fields keep their defaults
	assert.Equal(t, 300*time.Second, s.HeartbeatTimeout)
}

func TestSnapshot_ReplaceIsAtomic(t *testing.T) {
	snap := NewSnapshot(Defaults())
	assert.Equal(t, 3, snap.Get().MaxConcurrent)

	next := Defaults()
	next.MaxConcurrent = 9
	snap.Replace(next)

	assert.Equal(t, 9, snap.Get().MaxConcurrent)
}

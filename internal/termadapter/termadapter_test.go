package termadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveByName(t *testing.T) {
	r := NewRegistry()

	a, err := r.Resolve("kitty")
	require.NoError(t, err)
	assert.Equal(t, "kitty", a.Kind())

	a, err = r.Resolve("windows_terminal")
	require.NoError(t, err)
	assert.Equal(t, "windows_terminal", a.Kind())
}

func TestRegistry_ResolveEmptyUsesPlatformDefault(t *testing.T) {
	r := NewRegistry()
	a, err := r.Resolve("")
	require.NoError(t, err)
	assert.NotEmpty(t, a.Kind())
}

func TestRegistry_ResolveUnknownKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("not-a-real-terminal")
	assert.Error(t, err)
}

func TestLiveness_StringForm(t *testing.T) {
	assert.Equal(t, "alive", Alive.String())
	assert.Equal(t, "dead", Dead.String())
	assert.Equal(t, "unknown", Unknown.String())
}

package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal(t *testing.T) {
	s := NewSignal(false)
	var seen []bool
	s.AddEffect(func(v bool) { seen = append(seen, v) })

	assert.False(t, s.SetValue(false))
	assert.True(t, s.SetValue(true))
	assert.False(t, s.SetValue(true))
	assert.True(t, s.SetValue(false))
	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, s.Value())
}

func TestFileExists(t *testing.T) {
	ok, err := FileExists(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = FileExists(t.TempDir())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", Address("127.0.0.1", 8080))
	assert.Equal(t, ":8080", Address("", 8080))
}

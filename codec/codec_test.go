package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecsAreWireCompatible(t *testing.T) {
	meta := map[string]any{
		"source": "doc-7",
		"page":   float64(12),
		"tags":   []any{"a", "b"},
	}

	encoded, err := GoJSON{}.Marshal(meta)
	require.NoError(t, err)

	var viaStdlib map[string]any
	require.NoError(t, JSON{}.Unmarshal(encoded, &viaStdlib))
	assert.Equal(t, meta, viaStdlib)

	encoded, err = JSON{}.Marshal(meta)
	require.NoError(t, err)

	var viaGoJSON map[string]any
	require.NoError(t, GoJSON{}.Unmarshal(encoded, &viaGoJSON))
	assert.Equal(t, meta, viaGoJSON)
}

func TestByName(t *testing.T) {
	tests := []struct {
		name  string
		found bool
	}{
		{"json", true},
		{"go-json", true},
		{"msgpack", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ByName(tt.name)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.name, c.Name())
			}
		})
	}
}

func TestDefaultIsRegistered(t *testing.T) {
	c, ok := ByName(Default.Name())
	require.True(t, ok)
	assert.Equal(t, Default.Name(), c.Name())
}

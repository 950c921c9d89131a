package beep

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Device-backed playback is not exercised here; these cover the pure
// parts: format routing and the volume curve.

func TestDecode_UnsupportedExtension(t *testing.T) {
	rc := io.NopCloser(bytes.NewReader([]byte("not audio")))
	_, _, err := decode("theme.xyz", rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xyz")
}

func TestDecode_GarbageInput(t *testing.T) {
	rc := io.NopCloser(bytes.NewReader([]byte("definitely not an mp3")))
	_, _, err := decode("theme.mp3", rc)
	assert.Error(t, err)
}

func TestGain_Curve(t *testing.T) {
	// Full volume is unity gain.
	v, silent := gain(1.0)
	assert.Equal(t, 0.0, v)
	assert.False(t, silent)

	// Half volume is one octave down on the base-2 scale.
	v, silent = gain(0.5)
	assert.InDelta(t, -1.0, v, 1e-9)
	assert.False(t, silent)

	// Zero and below mute outright.
	_, silent = gain(0)
	assert.True(t, silent)
	_, silent = gain(-3)
	assert.True(t, silent)

	// Values above 1 clamp to unity.
	v, _ = gain(2.5)
	assert.Equal(t, 0.0, v)
}

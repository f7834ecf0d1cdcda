package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())

	assert.Equal(t, 8, s.Visualization.Stride)
	assert.Equal(t, 2.0, s.Visualization.PoleStrideMul)
	assert.Equal(t, 0.3, s.Visualization.Jitter)
	assert.Equal(t, 1.0, s.Visualization.SpeedThreshold)
	assert.Equal(t, 0.85, s.Visualization.Opacity)
	assert.True(t, s.Animation.AnimLoop)
	assert.GreaterOrEqual(t, s.Animation.AnimDuration, 3.0)
	assert.LessOrEqual(t, s.Animation.AnimDuration, 10.0)
	assert.Equal(t, 0.05, s.Picking.HitboxRadius)
	assert.True(t, s.Picking.AvoidHitboxOverlap)
	assert.Equal(t, 0.3, s.Streamline.StepScale)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeSettings(t, `{
		"visualization": {"stride": 4, "palette": ["#000000", "#ffffff"]},
		"animation": {"animLoop": false, "animDuration": 8},
		"data": {"dir": "/srv/wind"}
	}`)
	s, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Visualization.Stride)
	assert.Equal(t, 0.3, s.Visualization.Jitter, "untouched keys keep defaults")
	assert.False(t, s.Animation.AnimLoop)
	assert.Equal(t, 8.0, s.Animation.AnimDuration)
	assert.Equal(t, "/srv/wind", s.Data.Dir)
	assert.Len(t, s.Palette(), 2)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"stride", `{"visualization": {"stride": 0}}`},
		{"duration", `{"animation": {"animDuration": 0}}`},
		{"fade start", `{"animation": {"fadeStart": 1.5}}`},
		{"percentiles", `{"visualization": {"lowPercentile": 90, "highPercentile": 10}}`},
		{"palette", `{"visualization": {"palette": ["#zzzzzz"]}}`},
		{"hitbox", `{"picking": {"hitboxRadius": -1}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, tc.body), nil)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Load(writeSettings(t, `{"visualization": {"strid": 3}}`), nil)
	assert.Error(t, err, "unknown keys are rejected")
	_, err = Load(writeSettings(t, `{`), nil)
	assert.Error(t, err)
}

func TestDerivedOptions(t *testing.T) {
	s := Default()
	s.Globe.Radius = 2
	s.Globe.Altitude = 0.1

	g := s.GlyphOptions()
	assert.Equal(t, 8, g.Stride)
	assert.InDelta(t, 2.1, g.Radius, 1e-12)
	assert.Equal(t, s.Visualization.Seed, g.Seed)

	i := s.IntegrateOptions()
	assert.Equal(t, 300, i.MaxSteps)
	assert.InDelta(t, 2.1, i.Radius, 1e-12)

	a := s.AnimationOptions()
	assert.Equal(t, s.Animation.AnimDuration, a.Duration)
	assert.Equal(t, 0.8, a.FadeStart)

	assert.InDelta(t, 0.5*3.141592653589793/180, s.MaxSegmentAngle(), 1e-15)
	assert.Len(t, s.Palette(), 7)
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"windglobe/core"
	"windglobe/selection"
	"windglobe/wind"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

type Settings struct {
	Visualization VisualizationSettings `json:"visualization"`
	Animation     AnimationSettings     `json:"animation"`
	Picking       PickingSettings       `json:"picking"`
	Streamline    StreamlineSettings    `json:"streamline"`
	Globe         GlobeSettings         `json:"globe"`
	Data          DataSettings          `json:"data"`
	Server        ServerSettings        `json:"server"`
	Viewer        ViewerSettings        `json:"viewer"`
}

type VisualizationSettings struct {
	Stride         int      `json:"stride"`
	PoleStrideMul  float64  `json:"poleStrideMul"`
	Jitter         float64  `json:"jitter"`
	SpeedThreshold float64  `json:"speedThreshold"`
	Opacity        float64  `json:"opacity"`
	LowPercentile  float64  `json:"lowPercentile"`
	HighPercentile float64  `json:"highPercentile"`
	GlyphMinLength float64  `json:"glyphMinLength"`
	GlyphMaxLength float64  `json:"glyphMaxLength"`
	Palette        []string `json:"palette"`
	Seed           int64    `json:"seed"`
}

type AnimationSettings struct {
	AnimDuration  float64 `json:"animDuration"`
	AnimLoop      bool    `json:"animLoop"`
	FadeStart     float64 `json:"fadeStart"`
	BobAmplitude  float64 `json:"bobAmplitude"`
	BobFrequency  float64 `json:"bobFrequency"`
	SwayAmplitude float64 `json:"swayAmplitude"`
	SwayFrequency float64 `json:"swayFrequency"`
}

type PickingSettings struct {
	HitboxRadius       float64 `json:"hitboxRadius"`
	AvoidHitboxOverlap bool    `json:"avoidHitboxOverlap"`
	Occlude            bool    `json:"occlude"`
}

type StreamlineSettings struct {
	MaxSteps           int     `json:"maxSteps"`
	StepSize           float64 `json:"stepSize"`
	StepScale          float64 `json:"stepScale"`
	MinSpeed           float64 `json:"minSpeed"`
	MaxSegmentAngleDeg float64 `json:"maxSegmentAngleDeg"`
}

type GlobeSettings struct {
	Radius          float64 `json:"radius"`
	Altitude        float64 `json:"altitude"`        // lift of glyphs and streamlines above the surface
	AutoRotateSpeed float64 `json:"autoRotateSpeed"` // radians per second
}

type DataSettings struct {
	Dir          string `json:"dir"`
	InitialLevel int    `json:"initialLevel"`
	CacheSize    int    `json:"cacheSize"`
	Prefetch     int    `json:"prefetch"`
	Atlas        string `json:"atlas"` // optional GeoJSON region file
}

type ServerSettings struct {
	Port             int `json:"port"`
	UpdateIntervalMs int `json:"updateIntervalMs"`
}

type ViewerSettings struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	LeafModel string `json:"leafModel"` // optional model file for the leaf particle
}

// Default returns the settings used when no file overrides them.
func Default() Settings {
	return Settings{
		Visualization: VisualizationSettings{
			Stride:         8,
			PoleStrideMul:  2,
			Jitter:         0.3,
			SpeedThreshold: 1.0,
			Opacity:        0.85,
			LowPercentile:  10,
			HighPercentile: 90,
			GlyphMinLength: 0.01,
			GlyphMaxLength: 0.04,
			Palette:        append([]string(nil), wind.DefaultPaletteHex...),
			Seed:           1,
		},
		Animation: AnimationSettings{
			AnimDuration:  5,
			AnimLoop:      true,
			FadeStart:     0.8,
			BobAmplitude:  0.004,
			BobFrequency:  0.8,
			SwayAmplitude: 0.003,
			SwayFrequency: 0.5,
		},
		Picking: PickingSettings{
			HitboxRadius:       0.05,
			AvoidHitboxOverlap: true,
			Occlude:            true,
		},
		Streamline: StreamlineSettings{
			MaxSteps:           300,
			StepSize:           0.1,
			StepScale:          0.3,
			MinSpeed:           1.0,
			MaxSegmentAngleDeg: 0.5,
		},
		Globe: GlobeSettings{
			Radius:          1,
			Altitude:        0.01,
			AutoRotateSpeed: 0.1,
		},
		Data: DataSettings{
			Dir:       "data",
			CacheSize: 4,
			Prefetch:  2,
		},
		Server: ServerSettings{
			Port:             8080,
			UpdateIntervalMs: 33,
		},
		Viewer: ViewerSettings{
			Width:  1280,
			Height: 800,
		},
	}
}

// Load reads settings from a JSON file on top of Default. A missing file
// yields the defaults.
func Load(path string, logger *slog.Logger) (Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := Default()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no settings file found, using defaults", "path", path)
			return s, nil
		}
		return s, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return s, fmt.Errorf("error parsing %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}

	logger.Info("loaded settings", "path", path,
		"stride", s.Visualization.Stride,
		"animDuration", s.Animation.AnimDuration,
		"hitboxRadius", s.Picking.HitboxRadius)
	return s, nil
}

// Validate reports the first setting that cannot work.
func (s Settings) Validate() error {
	v := s.Visualization
	a := s.Animation
	st := s.Streamline
	switch {
	case v.Stride < 1:
		return fmt.Errorf("%w: stride must be at least 1, got %d", ErrInvalid, v.Stride)
	case v.PoleStrideMul < 0:
		return fmt.Errorf("%w: poleStrideMul must not be negative", ErrInvalid)
	case v.Jitter < 0 || v.Jitter > 1:
		return fmt.Errorf("%w: jitter must be in [0, 1], got %v", ErrInvalid, v.Jitter)
	case v.Opacity < 0 || v.Opacity > 1:
		return fmt.Errorf("%w: opacity must be in [0, 1], got %v", ErrInvalid, v.Opacity)
	case v.LowPercentile < 0 || v.HighPercentile > 100 || v.LowPercentile >= v.HighPercentile:
		return fmt.Errorf("%w: percentiles must satisfy 0 <= low < high <= 100", ErrInvalid)
	case v.GlyphMinLength < 0 || v.GlyphMaxLength < v.GlyphMinLength:
		return fmt.Errorf("%w: glyph lengths must satisfy 0 <= min <= max", ErrInvalid)
	case a.AnimDuration <= 0:
		return fmt.Errorf("%w: animDuration must be positive", ErrInvalid)
	case a.FadeStart < 0 || a.FadeStart > 1:
		return fmt.Errorf("%w: fadeStart must be in [0, 1], got %v", ErrInvalid, a.FadeStart)
	case s.Picking.HitboxRadius <= 0:
		return fmt.Errorf("%w: hitboxRadius must be positive", ErrInvalid)
	case st.MaxSteps < 2:
		return fmt.Errorf("%w: maxSteps must be at least 2", ErrInvalid)
	case st.StepSize <= 0 || st.StepScale <= 0:
		return fmt.Errorf("%w: stepSize and stepScale must be positive", ErrInvalid)
	case st.MaxSegmentAngleDeg <= 0:
		return fmt.Errorf("%w: maxSegmentAngleDeg must be positive", ErrInvalid)
	case s.Globe.Radius <= 0:
		return fmt.Errorf("%w: globe radius must be positive", ErrInvalid)
	case s.Data.CacheSize < 1:
		return fmt.Errorf("%w: cacheSize must be at least 1", ErrInvalid)
	case s.Server.UpdateIntervalMs < 1:
		return fmt.Errorf("%w: updateIntervalMs must be at least 1", ErrInvalid)
	}
	if _, err := wind.ParsePalette(v.Palette); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SurfaceRadius is the radius glyphs and streamlines are drawn at.
func (s Settings) SurfaceRadius() float64 {
	return s.Globe.Radius + s.Globe.Altitude
}

// Palette returns the parsed speed palette, or the default one if the
// configured stops do not parse.
func (s Settings) Palette() wind.Palette {
	p, err := wind.ParsePalette(s.Visualization.Palette)
	if err != nil {
		return wind.DefaultPalette()
	}
	return p
}

func (s Settings) GlyphOptions() wind.GlyphOptions {
	v := s.Visualization
	return wind.GlyphOptions{
		Stride:         v.Stride,
		PoleStrideMul:  v.PoleStrideMul,
		Jitter:         v.Jitter,
		SpeedThreshold: v.SpeedThreshold,
		LowPercentile:  v.LowPercentile,
		HighPercentile: v.HighPercentile,
		MinLength:      v.GlyphMinLength,
		MaxLength:      v.GlyphMaxLength,
		Radius:         s.SurfaceRadius(),
		Seed:           v.Seed,
	}
}

func (s Settings) IntegrateOptions() wind.IntegrateOptions {
	st := s.Streamline
	return wind.IntegrateOptions{
		MaxSteps:  st.MaxSteps,
		StepSize:  st.StepSize,
		StepScale: st.StepScale,
		MinSpeed:  st.MinSpeed,
		Radius:    s.SurfaceRadius(),
	}
}

// MaxSegmentAngle is the densification limit in radians.
func (s Settings) MaxSegmentAngle() float64 {
	return core.DegreesToRadians(s.Streamline.MaxSegmentAngleDeg)
}

func (s Settings) AnimationOptions() selection.AnimationOptions {
	a := s.Animation
	return selection.AnimationOptions{
		Duration:      a.AnimDuration,
		Loop:          a.AnimLoop,
		FadeStart:     a.FadeStart,
		BobAmplitude:  a.BobAmplitude,
		BobFrequency:  a.BobFrequency,
		SwayAmplitude: a.SwayAmplitude,
		SwayFrequency: a.SwayFrequency,
	}
}

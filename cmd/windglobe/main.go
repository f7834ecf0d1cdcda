// Command windglobe is the native globe viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"windglobe/config"
	"windglobe/regions"
	"windglobe/scene"
	"windglobe/selection"
	"windglobe/wind"
)

// Drags shorter than this many pixels count as clicks.
const clickSlop = 4

func main() {
	runtime.LockOSThread()

	var (
		settingsPath = flag.String("config", "settings.json", "Settings file")
		dataDir      = flag.String("data", "", "Level directory (overrides data.dir)")
		width        = flag.Int("width", 0, "Window width (overrides viewer.width)")
		height       = flag.Int("height", 0, "Window height (overrides viewer.height)")
	)
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	settings, err := config.Load(*settingsPath, logger)
	if err != nil {
		logger.Error("failed to load settings", "path", *settingsPath, "err", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		settings.Data.Dir = *dataDir
	}
	if *width > 0 {
		settings.Viewer.Width = *width
	}
	if *height > 0 {
		settings.Viewer.Height = *height
	}

	store, err := wind.OpenStore(settings.Data.Dir, settings.Data.CacheSize, logger)
	if err != nil {
		logger.Error("failed to open levels", "dir", settings.Data.Dir, "err", err)
		os.Exit(1)
	}
	var describer regions.Describer = regions.DescriberFunc(regions.Classify)
	if settings.Data.Atlas != "" {
		atlas, err := regions.LoadAtlas(settings.Data.Atlas)
		if err != nil {
			logger.Error("failed to load atlas", "path", settings.Data.Atlas, "err", err)
			os.Exit(1)
		}
		describer = atlas
	}

	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(int32(settings.Viewer.Width), int32(settings.Viewer.Height), "Wind Globe")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)
	rl.SetExitKey(rl.KeyQ)

	render := newGlobeRenderer(settings.Visualization.Opacity)
	if err := render.loadLeaf(settings.Viewer.LeafModel); err != nil {
		logger.Warn("leaf model unavailable, clicks are ignored", "path", settings.Viewer.LeafModel, "err", err)
	}
	defer render.unload()

	v := &viewer{
		settings: settings,
		levels:   store.Levels(),
		render:   render,
		log:      logger,
	}
	v.session = scene.NewSession(scene.Options{
		Settings:  settings,
		Levels:    store,
		Renderer:  render,
		Describer: describer,
		Logger:    logger,
		Aspect:    float64(settings.Viewer.Width) / float64(settings.Viewer.Height),
	})
	defer v.session.Close()

	v.session.Subscribe(selection.ObserverFuncs{
		OnLocation: func(e selection.Event) { v.event = &e },
		OnCleared:  func() { v.event = nil },
	})
	v.session.OnLoadError(func(level int, err error) {
		v.status = fmt.Sprintf("level %d unavailable", level)
	})
	if err := v.session.LoadLevel(context.Background(), settings.Data.InitialLevel); err != nil {
		logger.Error("failed to load initial level", "level", settings.Data.InitialLevel, "err", err)
		os.Exit(1)
	}

	for !rl.WindowShouldClose() {
		v.handleInput()
		v.session.Tick(float64(rl.GetFrameTime()))
		v.draw()
	}
}

type viewer struct {
	settings config.Settings
	levels   []int
	render   *globeRenderer
	session  *scene.Session
	log      *slog.Logger

	dragging  bool
	pressedAt rl.Vector2
	moved     float32

	event  *selection.Event
	status string
}

func (v *viewer) handleInput() {
	cam := v.session.Camera
	cam.Aspect = float64(rl.GetScreenWidth()) / float64(max(1, rl.GetScreenHeight()))

	v.onMouseButton()
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		cam.Zoom(1 - float64(wheel)*0.1)
	}
	v.onKey()
}

// onMouseButton rotates on drag and picks on a click without drag.
func (v *viewer) onMouseButton() {
	switch {
	case rl.IsMouseButtonPressed(rl.MouseButtonLeft):
		v.dragging = true
		v.pressedAt = rl.GetMousePosition()
		v.moved = 0
	case rl.IsMouseButtonDown(rl.MouseButtonLeft) && v.dragging:
		d := rl.GetMouseDelta()
		v.moved += abs32(d.X) + abs32(d.Y)
		if v.moved > clickSlop {
			v.session.Camera.Rotate(-float64(d.X)*0.01, float64(d.Y)*0.01)
		}
	case rl.IsMouseButtonReleased(rl.MouseButtonLeft) && v.dragging:
		v.dragging = false
		if v.moved <= clickSlop {
			v.click(v.pressedAt)
		}
	}
}

func (v *viewer) click(p rl.Vector2) {
	w, h := float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight())
	x := 2*float64(p.X)/w - 1
	y := 1 - 2*float64(p.Y)/h
	if err := v.session.Click(x, y); err != nil {
		v.status = err.Error()
		return
	}
	v.status = ""
}

func (v *viewer) onKey() {
	switch {
	case rl.IsKeyPressed(rl.KeyEscape):
		v.session.Controller().Deselect()
	case rl.IsKeyPressed(rl.KeyUp), rl.IsKeyPressed(rl.KeyPageUp):
		v.stepLevel(1)
	case rl.IsKeyPressed(rl.KeyDown), rl.IsKeyPressed(rl.KeyPageDown):
		v.stepLevel(-1)
	case rl.IsKeyPressed(rl.KeyR):
		cam := v.session.Camera
		cam.AutoRotate = !cam.AutoRotate
		v.log.Info("autorotate", "on", cam.AutoRotate)
	case rl.IsKeyPressed(rl.KeyF):
		if e := v.event; e != nil {
			v.session.Camera.LookAt(e.Lat, e.Lon)
		}
	}
}

// stepLevel requests the next or previous level in manifest order.
func (v *viewer) stepLevel(step int) {
	k := slices.Index(v.levels, v.session.Level())
	if k < 0 {
		return
	}
	k += step
	if k < 0 || k >= len(v.levels) {
		return
	}
	v.log.Info("switching level", "level", v.levels[k])
	v.session.RequestLevel(v.levels[k])
}

func (v *viewer) draw() {
	cam := v.session.Camera
	camera := rl.Camera3D{
		Position:   toRL(cam.Position()),
		Target:     rl.Vector3{},
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       float32(mgl64.RadToDeg(cam.FovY)),
		Projection: rl.CameraPerspective,
	}

	rl.BeginDrawing()
	rl.ClearBackground(rl.NewColor(6, 8, 16, 255))
	rl.BeginMode3D(camera)
	v.render.draw(v.settings.Globe.Radius)
	rl.EndMode3D()
	v.drawHUD()
	rl.EndDrawing()
}

func (v *viewer) drawHUD() {
	rl.DrawText(fmt.Sprintf("Level %d", v.session.Level()), 10, 10, 20, rl.RayWhite)
	rl.DrawFPS(int32(rl.GetScreenWidth()-90), 10)

	y := int32(40)
	if e := v.event; e != nil {
		lines := []string{
			fmt.Sprintf("%.2f°, %.2f°", e.Lat, e.Lon),
			fmt.Sprintf("%.1f m/s", e.Speed),
			e.Narrative,
		}
		lines = append(lines, e.Landmarks...)
		for _, line := range lines {
			rl.DrawText(line, 10, y, 16, rl.LightGray)
			y += 20
		}
	}
	if v.status != "" {
		rl.DrawText(v.status, 10, y, 16, rl.Orange)
	}
	rl.DrawText("drag: rotate  wheel: zoom  click: select  esc: clear  up/down: level  r: autorotate  f: focus  q: quit",
		10, int32(rl.GetScreenHeight())-24, 14, rl.Gray)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

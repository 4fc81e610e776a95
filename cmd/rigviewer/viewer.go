package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/config"
	"github.com/Faultbox/rigscope/internal/drag"
	"github.com/Faultbox/rigscope/internal/engine/camera"
	"github.com/Faultbox/rigscope/internal/engine/debug"
	"github.com/Faultbox/rigscope/internal/engine/input"
	"github.com/Faultbox/rigscope/internal/engine/renderer"
	"github.com/Faultbox/rigscope/internal/engine/window"
	"github.com/Faultbox/rigscope/internal/inspect"
	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/store"
)

var colorBounds = [3]float32{0.25, 0.25, 0.5}

// viewer owns the window, the rig and the main loop. The rig is ticked on
// the main thread; the inspect API reaches it through its mailbox.
type viewer struct {
	cfg *config.Config
	log *zap.Logger

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	rig      *rig.Rig
	presets  *store.Store
	inspect  *inspect.Server
	shots    *debug.Screenshot

	grid    []debug.LineVertex
	running bool
	capture bool
}

func newViewer(cfg *config.Config) (*viewer, error) {
	v := &viewer{
		cfg:   cfg,
		log:   logger.Named("viewer"),
		input: input.New(),
		grid:  debug.GenerateGridLines(10, 0.5, 0),
	}

	var err error
	v.window, err = window.New(window.Config{
		Title:      "Rigscope",
		Width:      cfg.Viewer.Width,
		Height:     cfg.Viewer.Height,
		Fullscreen: cfg.Viewer.Fullscreen,
		VSync:      cfg.Viewer.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("creating window: %w", err)
	}

	fbW, fbH := v.window.GetDrawableSize()
	v.renderer, err = renderer.New(renderer.Config{Width: fbW, Height: fbH})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	v.camera = camera.NewOrbitCamera()
	if cfg.Viewer.FOV > 0 {
		v.camera.FOV = cfg.Viewer.FOV * math32.Pi / 180
	}
	v.camera.SetViewport(v.window.GetSize())

	if err := v.loadRig(); err != nil {
		v.Close()
		return nil, err
	}

	v.shots = debug.NewScreenshot("screenshots", v.rig.Model)
	return v, nil
}

func (v *viewer) loadRig() error {
	var err error
	v.rig, err = rig.LoadFile(v.cfg.Viewer.ModelPath, v.cfg.Constraints.Sidecar, rig.OptionsFromConfig(v.cfg))
	switch {
	case errors.Is(err, rig.ErrNoBones):
		v.log.Warn("model has no bones, showing empty rig", zap.String("model", v.cfg.Viewer.ModelPath))
	case err != nil:
		return fmt.Errorf("loading rig: %w", err)
	}

	if v.cfg.Store.Path != "" {
		v.presets, err = store.Open(v.cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("opening preset store: %w", err)
		}
		n, err := v.presets.ApplyTo(context.Background(), v.rig)
		if err != nil {
			return fmt.Errorf("applying presets: %w", err)
		}
		v.log.Info("presets applied", zap.Int("bones", n))
	}

	v.rig.Drag().Attach(v.camera, v.camera)
	v.fitCamera()

	if v.cfg.Inspect.Enabled {
		v.inspect = inspect.New(v.rig, v.presets, v.cfg.Inspect)
		go func() {
			if err := v.inspect.Listen(v.cfg.Inspect.Addr); err != nil {
				v.log.Error("inspect server stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

// Close releases everything in reverse creation order.
func (v *viewer) Close() {
	if v.inspect != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := v.inspect.Shutdown(ctx); err != nil {
			v.log.Warn("inspect shutdown", zap.Error(err))
		}
		cancel()
	}
	if v.rig != nil {
		v.rig.Close()
	}
	if v.presets != nil {
		if err := v.presets.Close(); err != nil {
			v.log.Warn("closing preset store", zap.Error(err))
		}
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

// Run runs the main loop until the window is closed or Escape is pressed.
func (v *viewer) Run() error {
	v.running = true

	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		if v.input.Update() {
			v.running = false
			break
		}
		for _, event := range v.input.Events() {
			v.handleEvent(event)
		}

		now := time.Now()
		v.rig.Tick(now)

		v.render()
		if v.capture {
			v.capture = false
			v.screenshot(now)
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount))
			v.updateTitle()
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (v *viewer) handleEvent(event input.Event) {
	ctl := v.rig.Drag()
	switch event.Type {
	case input.EventWindowResize:
		v.renderer.Resize(v.window.GetDrawableSize())
		v.camera.SetViewport(event.Width, event.Height)

	case input.EventKeyDown:
		v.handleKey(event.Key)

	case input.EventMouseMove:
		ctl.PointerMove(pointer(event))
		// Ignored by the camera while a drag suspends orbiting
		if event.Held(input.ButtonLeft) {
			v.camera.HandleDrag(float32(event.RelX), float32(event.RelY))
		}

	case input.EventMouseDown:
		ctl.PointerDown(pointer(event))

	case input.EventMouseUp:
		ctl.PointerUp(pointer(event))

	case input.EventMouseWheel:
		v.camera.HandleZoom(event.Wheel)

	case input.EventMouseLeave:
		ctl.PointerLeave()
	}
}

func (v *viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_L:
		v.toggleLock()
	case sdl.SCANCODE_R:
		v.rig.SetRestoreLocked(!v.rig.RestoreLocked())
		v.log.Info("restore locked", zap.Bool("enabled", v.rig.RestoreLocked()))
	case sdl.SCANCODE_D:
		v.rig.SetDisplay(!v.rig.Display())
		v.cfg.Drag.Display = v.rig.Display()
		v.log.Info("rig display", zap.Bool("enabled", v.rig.Display()))
	case sdl.SCANCODE_F:
		v.fitCamera()
	case sdl.SCANCODE_F12:
		v.capture = true
	}
}

// toggleLock locks or unlocks the parent of the handle's bone.
func (v *viewer) toggleLock() {
	h := v.rig.Handle()
	if h == nil || h.Bone == nil {
		return
	}
	b := h.Bone.Parent
	if b == nil || !v.rig.Store().Contains(b) {
		return
	}
	v.rig.LockBone(b, !v.rig.Store().IsLocked(b))
	v.log.Info("bone lock toggled",
		zap.String("bone", b.Name),
		zap.Bool("locked", v.rig.Store().IsLocked(b)),
	)
}

func (v *viewer) fitCamera() {
	if len(v.rig.Bones()) == 0 {
		return
	}
	v.camera.FitToBounds(debug.RigBounds(v.rig))
}

func (v *viewer) render() {
	vp := v.camera.ViewProjection()
	v.renderer.Begin()
	v.renderer.DrawLines(v.grid, vp, false)
	if v.rig.Display() && len(v.rig.Bones()) > 0 {
		box := debug.GenerateBBoxWireframe(debug.RigBounds(v.rig), debug.DefaultBBoxPadding, colorBounds)
		v.renderer.DrawLines(box, vp, false)
	}
	if v.cfg.Viewer.ShowLabels {
		v.renderer.DrawLines(debug.GenerateLabelLines(v.rig), vp, true)
	}
	v.renderer.DrawLines(debug.GenerateRigLines(v.rig), vp, true)
}

func (v *viewer) screenshot(now time.Time) {
	pixels, w, h := v.renderer.ReadPixels()
	name, err := v.shots.Capture(pixels, w, h, now)
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", name))
}

func (v *viewer) updateTitle() {
	title := "Rigscope - " + v.rig.Model
	ctl := v.rig.Drag()
	if v.cfg.Viewer.ShowLabels && ctl.State() != drag.StateIdle {
		title += fmt.Sprintf(" [%s: %s]", ctl.State(), v.rig.Handle().BoneName())
	}
	v.window.SetTitle(title)
}

// pointer converts an SDL mouse event for the drag controller.
func pointer(event input.Event) drag.Pointer {
	p := drag.Pointer{X: float32(event.MouseX), Y: float32(event.MouseY)}
	switch event.Button {
	case input.ButtonRight:
		p.Button = drag.ButtonSecondary
	case input.ButtonMiddle:
		p.Button = drag.ButtonMiddle
	}
	return p
}

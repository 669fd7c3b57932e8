package main

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/simforge/broadphase/camera"
	"github.com/simforge/broadphase/components"
	"github.com/simforge/broadphase/config"
	"github.com/simforge/broadphase/sim"
)

// touchFlashTicks is how long a touched trigger stays highlighted.
const touchFlashTicks = 30

// runViewer renders a top-down (X/Z) view of the world's bounding boxes.
// Purely a debugging aid: it consumes the same public API as any embedder.
//
// Controls: space pauses, right-drag pans, the wheel zooms on the cursor,
// R recenters.
func runViewer(w *sim.World, cfg *config.Config, maxTicks int) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "broadphase viewer")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	cam := camera.New(float64(cfg.Screen.Width), float64(cfg.Screen.Height), cfg.World.Extent)

	paused := false
	steps := float32(1)

	touched := make(map[ecs.Entity]int)
	w.SetTouchFunc(func(a, b ecs.Entity) {
		touched[b] = w.Tick()
	})

	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeySpace) {
			paused = !paused
		}
		if rl.IsKeyPressed(rl.KeyR) {
			cam.Reset(cfg.World.Extent)
		}
		if rl.IsMouseButtonDown(rl.MouseRightButton) {
			delta := rl.GetMouseDelta()
			cam.Pan(float64(-delta.X), float64(-delta.Y))
		}
		if wheel := rl.GetMouseWheelMove(); wheel != 0 {
			mouse := rl.GetMousePosition()
			factor := 1.1
			if wheel < 0 {
				factor = 1 / 1.1
			}
			cam.ZoomBy(factor, float64(mouse.X), float64(mouse.Y))
		}

		if !paused {
			for i := 0; i < int(steps); i++ {
				w.RunStep(cfg.Physics.DT)
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		for _, e := range w.Entities() {
			bounds, err := w.WorldBounds(e)
			if err != nil {
				continue
			}
			class, _ := w.Solid(e)

			if !cam.IsVisible(bounds.Min.X, bounds.Min.Z, bounds.Max.X, bounds.Max.Z) {
				continue
			}

			sx, sy := cam.WorldToScreen(bounds.Min.X, bounds.Min.Z)
			x := int32(sx)
			y := int32(sy)
			bw := int32((bounds.Max.X - bounds.Min.X) * cam.Zoom)
			bh := int32((bounds.Max.Z - bounds.Min.Z) * cam.Zoom)
			if bw < 2 {
				bw = 2
			}
			if bh < 2 {
				bh = 2
			}

			switch {
			case class == components.SolidTrigger:
				color := rl.Yellow
				if last, ok := touched[e]; ok && w.Tick()-last < touchFlashTicks {
					color = rl.Red
				}
				rl.DrawRectangle(x, y, bw, bh, rl.Fade(color, 0.25))
				rl.DrawRectangleLines(x, y, bw, bh, color)
			case class.Blocks():
				rl.DrawRectangleLines(x, y, bw, bh, rl.Green)
			default:
				rl.DrawRectangleLines(x, y, bw, bh, rl.DarkGray)
			}
		}

		rl.DrawText(fmt.Sprintf("Tick: %d", w.Tick()), 10, 10, 20, rl.White)
		rl.DrawText(fmt.Sprintf("Entities: %d", w.Live()), 10, 35, 20, rl.White)
		rl.DrawText(fmt.Sprintf("Dropped inserts: %d", w.DroppedInserts()), 10, 60, 20, rl.White)

		pauseLabel := "Pause"
		if paused {
			pauseLabel = "Resume"
		}
		if gui.Button(rl.Rectangle{X: 10, Y: 90, Width: 120, Height: 30}, pauseLabel) {
			paused = !paused
		}
		steps = gui.SliderBar(
			rl.Rectangle{X: 10, Y: 130, Width: 120, Height: 20},
			"1", "10",
			steps, 1, 10,
		)

		rl.EndDrawing()

		if maxTicks > 0 && w.Tick() >= maxTicks {
			break
		}
	}
}

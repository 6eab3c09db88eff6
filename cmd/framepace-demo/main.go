// Command framepace-demo drives a synthetic render loop through the
// scheduler and compute facade, with a live terminal dashboard showing
// frame rate, performance mode, and compute throughput.
//
// The -stress flag inflates the per-frame workload so the mode degradation
// (high -> medium -> low) can be observed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/gogpu/framepace"
	"github.com/gogpu/framepace/anim"
	"github.com/gogpu/framepace/compute"
	_ "github.com/gogpu/framepace/gpu" // enable GPU compute when available
)

func main() {
	var (
		frameRate = flag.Int("fps", 60, "target frame rate for the synthetic loop")
		stress    = flag.Bool("stress", false, "inflate per-frame workload to force degradation")
		verbose   = flag.Bool("v", false, "log to stderr")
	)
	flag.Parse()

	if *verbose {
		framepace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	sched := framepace.New()
	facade := compute.NewFacade()
	if err := facade.Initialize(context.Background()); err != nil {
		log.Fatalf("compute init: %v", err)
	}

	engine := anim.NewEngine()
	seedScene(engine)
	engine.Attach(sched, 1)

	registerWorkloads(sched, facade, *stress)

	app := tview.NewApplication()
	view := tview.NewTextView().SetDynamicColors(true)
	view.SetBorder(true).SetTitle(" framepace ")
	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
			app.Stop()
		}
		return ev
	})

	go runFrameLoop(app, view, sched, facade, *frameRate)

	if err := app.SetRoot(view, true).Run(); err != nil {
		log.Fatal(err)
	}
}

// seedScene populates the animation engine with a small memory diagram.
func seedScene(engine *anim.Engine) {
	engine.AddBlock(anim.Block{
		ID: "stack-frame", Position: framepace.V3(0, 0, 0),
		Size: framepace.V3(4, 1, 1), Color: "#4a90d9",
		Label: "int x = 42", Region: anim.RegionStack,
	})
	engine.AddBlock(anim.Block{
		ID: "heap-node", Position: framepace.V3(8, 4, 2),
		Size: framepace.V3(2, 2, 2), Color: "#d94a4a",
		Label: "new Node", Region: anim.RegionHeap,
	})
	engine.AddArrow(anim.Arrow{
		ID: "ptr", Start: framepace.V3(0, 0, 0), End: framepace.V3(8, 4, 2),
		Color: "#ffffff", Animated: true,
	})
}

// registerWorkloads wires synthetic per-frame callbacks at three priority
// tiers plus a periodic compute load.
func registerWorkloads(sched *framepace.Scheduler, facade *compute.Facade, stress bool) {
	spin := 1 << 12
	if stress {
		spin = 1 << 20
	}

	sched.Register("background", func(_ *framepace.FrameContext, _ time.Duration) error {
		burn(spin)
		return nil
	}, -1)
	sched.Register("particles", func(_ *framepace.FrameContext, _ time.Duration) error {
		burn(spin)
		return nil
	}, 0)

	var frame uint64
	transforms := demoTransforms(256)
	sched.Register("transforms", func(_ *framepace.FrameContext, _ time.Duration) error {
		frame++
		if frame%10 != 0 {
			return nil
		}
		_, err := facade.BatchComposeTransforms(transforms)
		return err
	}, 2)
}

// runFrameLoop ticks the scheduler at the requested rate and refreshes the
// dashboard once per second.
func runFrameLoop(app *tview.Application, view *tview.TextView, sched *framepace.Scheduler, facade *compute.Facade, fps int) {
	interval := time.Second / time.Duration(fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frame uint64
	last := time.Now()
	lastDraw := last

	for now := range ticker.C {
		dt := now.Sub(last)
		last = now
		frame++

		sched.Tick(&framepace.FrameContext{Frame: frame, Now: now}, dt)

		if now.Sub(lastDraw) >= time.Second {
			lastDraw = now
			text := renderStats(sched.Stats(), facade)
			app.QueueUpdateDraw(func() {
				view.SetText(text)
			})
		}
	}
}

// renderStats formats the scheduler and facade metrics for the dashboard.
func renderStats(st framepace.Stats, facade *compute.Facade) string {
	modeColor := map[framepace.Mode]string{
		framepace.ModeHigh:   "green",
		framepace.ModeMedium: "yellow",
		framepace.ModeLow:    "red",
	}[st.Mode]

	return fmt.Sprintf(
		"[white]frame rate      [aqua]%6.1f fps\n"+
			"[white]mode            [%s]%s\n"+
			"[white]callbacks       [aqua]%d active / %d registered\n"+
			"[white]compute backend [aqua]%s\n"+
			"[white]compute rate    [aqua]%.1f ops/s\n\n"+
			"[gray]press q to quit",
		st.FPS, modeColor, st.Mode, st.ActiveCallbacks, st.TotalCallbacks,
		facade.BackendName(), facade.OperationsPerSecond(),
	)
}

// demoTransforms builds a ring of transforms for the periodic compute load.
func demoTransforms(n int) []framepace.Transform {
	out := make([]framepace.Transform, n)
	for i := range out {
		angle := float32(i) / float32(n) * 2 * math.Pi
		t := framepace.TransformIdentity()
		t.Position = framepace.V3(
			float32(math.Cos(float64(angle)))*10,
			0,
			float32(math.Sin(float64(angle)))*10,
		)
		t.Rotation = framepace.QuatAxisAngle(framepace.V3(0, 1, 0), angle)
		out[i] = t
	}
	return out
}

// burn spins a trigonometric loop to simulate frame work.
func burn(iterations int) {
	sum := 0.0
	for i := 0; i < iterations; i++ {
		sum += math.Sin(float64(i))
	}
	_ = sum
}

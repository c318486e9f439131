// Command navsim is a headless CLI harness for the navigation/movement
// core: load config, build an open test map, seed a built-in scenario of
// Add commands plus one MakeFlocks command (there is no scenario file),
// and run the tick loop for a bounded number of ticks while logging
// periodic progress — generalizing
// the teacher's `-headless -max-ticks` mode (_examples/pthm-soup/main.go's
// runHeadless) from a render-coupled organism simulation to this module's
// fixed-rate movement tick (§4.8, §6). Rendering, input, and asset/map
// loading stay out of scope per §1; navsim only exercises the core
// directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mu-L/permafrost-engine/command"
	"github.com/Mu-L/permafrost-engine/components"
	"github.com/Mu-L/permafrost-engine/config"
	"github.com/Mu-L/permafrost-engine/movement"
	"github.com/Mu-L/permafrost-engine/navgrid"
	"github.com/Mu-L/permafrost-engine/sim"
)

var (
	configPath = flag.String("config", "", "path to a YAML config file (defaults to embedded defaults)")
	maxTicks   = flag.Int("max-ticks", 0, "stop after N ticks (0 = run until interrupted)")
	numAgents  = flag.Int("agents", 25, "number of agents to spawn in rows of ten toward a shared destination")
	perfLog    = flag.Bool("perf", false, "log perf-phase timing breakdown alongside tick stats")
	reportEach = flag.Int("report-every", 100, "log a progress line every N ticks (0 = disabled)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "navsim: loading config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	res := navgrid.Resolution{
		ChunksWide: cfg.Map.ChunksWide,
		ChunksHigh: cfg.Map.ChunksHigh,
		TileW:      cfg.Map.TileW,
		TileH:      cfg.Map.TileH,
		TileSize:   float32(cfg.Map.TileSize),
	}
	grid := sim.NewOpenMap(res, navgrid.LayerFoot)

	var grids [navgrid.NumLayers]*navgrid.Grid
	grids[navgrid.LayerFoot] = grid

	core := movement.NewCore(cfg, grids, 0, 0, logger)
	core.RefreshPortals(0)

	seedAgents(core, res, *numAgents)

	loop := sim.NewLoop(core, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("navsim: interrupted, stopping")
		cancel()
	}()

	start := time.Now()
	lastReport := start
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx, cfg.Tick.RateHz, func(tick int32) {
			if *maxTicks > 0 && int(tick) >= *maxTicks {
				logger.Info("navsim: reached max-ticks, stopping", "tick", tick)
				cancel()
				return
			}
			if *reportEach > 0 && int(tick)%*reportEach == 0 {
				now := time.Now()
				logger.Info("navsim: progress",
					"tick", tick,
					"agents", core.Agents.Len(),
					"ticks_per_sec", float64(*reportEach)/now.Sub(lastReport).Seconds(),
				)
				lastReport = now
			}
			if *perfLog {
				core.Perf.Stats().LogStats()
			}
		})
	}()
	<-done

	logger.Info("navsim: stopped", "elapsed", time.Since(start).Round(time.Millisecond))
}

// seedAgents issues n Add commands placing agents in rows of ten near the
// map's southwest corner, then one MakeFlocks command binding them all to
// a shared destination near the northeast corner — a minimal standalone scenario exercising §8
// scenario 1/3's shape without requiring an external map/scenario loader
// (out of scope per §1).
func seedAgents(core *movement.Core, res navgrid.Resolution, n int) {
	width := float32(res.TilesWide()) * res.TileSize
	height := float32(res.TilesHigh()) * res.TileSize
	dest := components.Position{X: width * 0.85, Z: height * 0.85}

	uids := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		uid := uint32(i + 1)
		pos := components.Position{
			X: width*0.1 + float32(i%10)*1.5,
			Z: height*0.1 + float32(i/10)*1.5,
		}
		core.Cmds.Push(command.Add(uid, pos, 0.5, 0))
		uids = append(uids, uid)
	}
	core.Cmds.Push(command.MakeFlocks(uids, dest, 0, command.FormationNone, false))
}

package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rkirby42/nescore/console"
	"github.com/rkirby42/nescore/mappers"
	"github.com/rkirby42/nescore/nesrom"
	"github.com/golang/glog"
	"github.com/hajimehoshi/ebiten/v2"
)

// frameInterval paces the emulation goroutine to NTSC's ~60.0988Hz
// frame rate; ebiten's own render loop paints whatever frame the
// scheduler last produced rather than driving emulation itself.
const frameInterval = time.Second / 60

var romFile = flag.String("nes_rom", "", "Path to NES ROM to run.")

func main() {
	flag.Parse()
	defer glog.Flush()

	rom, err := nesrom.New(*romFile)
	if err != nil {
		glog.Fatalf("Invalid ROM: %v", err)
	}
	if err := rom.Validate(); err != nil {
		glog.Fatalf("Unsupported ROM: %v", err)
	}

	m, err := mappers.Get(rom)
	if err != nil {
		glog.Fatalf("Couldn't Get() mapper: %v", err)
	}

	gintendo := console.New(m)
	scheduler := console.NewScheduler(gintendo)
	scheduler.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	go func(ctx context.Context) {
		if err := scheduler.Run(ctx, frameInterval, nil); err != nil {
			glog.Errorf("emulation halted: %v", err)
			cancel()
		}
	}(ctx)

	if err := ebiten.RunGame(gintendo); err != nil {
		glog.Errorf("ebiten run loop exited: %v", err)
	}

	cancel()
	os.Exit(0)
}

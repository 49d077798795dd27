package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/arthurmco/familyline-testbed-sub000/internal/game"
	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

func main() {
	scenario := flag.String("scenario", "crossing", "built-in scenario: "+strings.Join(game.BuiltinScenarioNames(), ", "))
	file := flag.String("file", "", "scenario YAML file (overrides -scenario)")
	configPath := flag.String("config", "", "pathing config YAML, reloaded on change")
	scale := flag.Int("scale", 0, "pixels per cell (0 = fit the window)")
	trace := flag.Bool("trace", false, "mirror the path log to stderr")
	flag.Parse()

	var sc game.Scenario
	var err error
	if *file != "" {
		sc, err = game.LoadScenario(*file)
	} else {
		sc, err = game.BuiltinScenario(*scenario)
	}
	if err != nil {
		log.Fatal(err)
	}
	if *configPath != "" {
		cfg, err := pathing.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		sc.Config = cfg
	}

	g, err := game.New(sc, *scale)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()
	if *trace {
		g.MirrorLog(log.New(os.Stderr, "path ", 0))
	}
	if *configPath != "" {
		if err := g.WatchConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}

	ebiten.SetWindowTitle("Pathing: " + sc.Name)
	ebiten.SetWindowSize(g.Size())
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

// Command track-report renders an offline HTML report for one recording
// run: track trajectories, per-track speed series, and a speed summary
// printed to stdout.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/components"
	"gonum.org/v1/gonum/stat"

	sqlitestore "github.com/banshee-data/sightline/internal/storage/sqlite"
	"github.com/banshee-data/sightline/internal/vision/monitor"
)

var (
	dbFile = flag.String("db", "sightline.db", "Path to the SQLite observation store")
	runID  = flag.String("run", "", "Run to report on (default: most recent)")
	out    = flag.String("out", "track-report.html", "Output HTML file")
)

func main() {
	flag.Parse()

	store, err := sqlitestore.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open observation store: %v", err)
	}
	defer store.Close()

	run := *runID
	if run == "" {
		run, err = store.LatestRunID()
		if err != nil {
			log.Fatalf("Failed to resolve run: %v", err)
		}
	}

	paths, err := store.TrackPaths(run)
	if err != nil {
		log.Fatalf("Failed to load track paths: %v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("Run %s holds no observations", run)
	}

	fmt.Printf("Run %s: %d tracks\n", run, len(paths))
	for _, path := range paths {
		_, speeds := monitor.TrackSpeeds(path)
		if len(speeds) == 0 {
			fmt.Printf("  %-8s %4d: %3d observations\n", path.Category, path.TrackID, len(path.Observations))
			continue
		}
		sort.Float64s(speeds)
		fmt.Printf("  %-8s %4d: %3d observations, speed px/s p50=%.1f p95=%.1f max=%.1f\n",
			path.Category, path.TrackID, len(path.Observations),
			stat.Quantile(0.5, stat.Empirical, speeds, nil),
			stat.Quantile(0.95, stat.Empirical, speeds, nil),
			speeds[len(speeds)-1],
		)
	}

	page := components.NewPage()
	page.AddCharts(monitor.TrackScatter(paths), monitor.SpeedLine(paths))

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create report file: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	log.Printf("Report written to %s", *out)
}

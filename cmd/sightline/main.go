// Command sightline runs the tracking pipeline against a replay log of
// detection frames: replay source → tracker → recorder, with an HTTP
// monitor for live inspection. Camera capture and inference are
// external; the replay source stands in for them through the same
// detection handoff contract.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/sightline/internal/config"
	"github.com/banshee-data/sightline/internal/monitoring"
	"github.com/banshee-data/sightline/internal/record"
	"github.com/banshee-data/sightline/internal/replay"
	"github.com/banshee-data/sightline/internal/stage"
	sqlitestore "github.com/banshee-data/sightline/internal/storage/sqlite"
	"github.com/banshee-data/sightline/internal/vision"
	"github.com/banshee-data/sightline/internal/vision/monitor"
)

var (
	detections = flag.String("detections", "", "Path to the JSONL detection replay log (required)")
	fps        = flag.Float64("fps", 30.0, "Replay frame rate")
	loop       = flag.Bool("loop", false, "Restart the replay log when it runs out")
	dbFile     = flag.String("db", "sightline.db", "Path to the SQLite observation store (empty disables recording)")
	listen     = flag.String("listen", ":8082", "HTTP monitor listen address (empty disables)")
	configFile = flag.String("config", "", "Path to a JSON tuning config (defaults apply when empty)")
	quiet      = flag.Bool("quiet", false, "Suppress the tracker stats dump on halt")
	debug      = flag.Bool("debug", false, "Log high-frequency diagnostics (dropped frames, busy inboxes)")
)

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if *detections == "" {
		log.Fatal("missing required -detections flag")
	}

	tuning := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	trackerCfg := vision.TrackerConfigFromTuning(tuning)
	if *quiet {
		trackerCfg.Quiet = true
	}
	yieldTime := time.Duration(tuning.GetYieldTimeUS()) * time.Microsecond

	// Observation store and recorder sink.
	var (
		store    *sqlitestore.Store
		recorder *record.Recorder
		sink     vision.TrackListener
	)
	if *dbFile != "" {
		var err error
		store, err = sqlitestore.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open observation store: %v", err)
		}
		defer store.Close()

		recorder, err = record.NewRecorder(store, "replay:"+*detections)
		if err != nil {
			log.Fatalf("Failed to start recording run: %v", err)
		}
		sink = recorder
		log.Printf("Recording run %s to %s", recorder.RunID(), *dbFile)
	}

	tracker, err := vision.NewTracker(trackerCfg, sink)
	if err != nil {
		log.Fatalf("Failed to create tracker: %v", err)
	}

	frames, err := replay.LoadFrames(*detections)
	if err != nil {
		log.Fatalf("Failed to load detections: %v", err)
	}
	log.Printf("Replaying %d frames from %s at %.1f fps", len(frames), *detections, *fps)

	source, err := replay.NewSource(frames, *fps, tracker, *loop)
	if err != nil {
		log.Fatalf("Failed to create replay source: %v", err)
	}

	// One driver per stage, downstream first so nothing is emitted into
	// a stage that is not yet accepting.
	type namedStage struct {
		name   string
		driver *stage.Driver
	}
	stages := []namedStage{}
	if recorder != nil {
		stages = append(stages, namedStage{"recorder", stage.New(recorder, yieldTime)})
	}
	stages = append(stages,
		namedStage{"tracker", stage.New(tracker, yieldTime)},
		namedStage{"replay", stage.New(source, yieldTime)},
	)

	for _, s := range stages {
		if err := s.driver.Start(s.name, 0); err != nil {
			log.Fatalf("Failed to start stage %s: %v", s.name, err)
		}
		if !s.driver.Wait(stage.Paused, time.Second) {
			log.Fatalf("Stage %s never settled into paused", s.name)
		}
	}
	for _, s := range stages {
		if err := s.driver.Run(); err != nil {
			log.Fatalf("Failed to run stage %s: %v", s.name, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *listen != "" {
		cfg := monitor.WebServerConfig{Address: *listen, Tracks: tracker, Store: store}
		if recorder != nil {
			cfg.RunID = recorder.RunID()
		}
		ws := monitor.NewWebServer(cfg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ws.Start(ctx)
		}()
	}

	// Without -loop the process drains the log and exits on its own; a
	// grace period lets the tail of the pipeline settle first.
	if !*loop {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(50 * time.Millisecond):
				}
				if source.Done() {
					time.Sleep(trackerCfg.MaxTime + 10*yieldTime)
					stop()
					return
				}
			}
		}()
	}

	<-ctx.Done()
	log.Print("Shutting down pipeline...")

	// Stop upstream first so no stage emits into a stopped inbox.
	for i := len(stages) - 1; i >= 0; i-- {
		if err := stages[i].driver.Stop(); err != nil {
			log.Printf("Stop stage %s: %v", stages[i].name, err)
		}
	}
	wg.Wait()
	log.Print("Pipeline stopped")
}

package vision

import (
	"time"

	"github.com/banshee-data/sightline/internal/config"
)

// TrackerConfigFromTuning derives the tracker configuration from a
// loaded tuning file, falling back to defaults for anything unset.
func TrackerConfigFromTuning(t *config.TuningConfig) TrackerConfig {
	targets := make([]Category, 0, len(t.GetTargets()))
	for _, name := range t.GetTargets() {
		if c := CategoryFromLabel(name); c != CategoryUnknown {
			targets = append(targets, c)
		}
	}

	return TrackerConfig{
		MaxDist:      t.GetMaxDist(),
		MaxTime:      time.Duration(t.GetMaxTimeMS()) * time.Millisecond,
		TargetTypes:  targets,
		Quiet:        t.GetQuiet(),
		InboxTimeout: time.Duration(t.GetInboxTimeoutUS()) * time.Microsecond,
		Filter: FilterTuning{
			InitialError:    t.GetInitialError(),
			MeasureVariance: t.GetMeasureVariance(),
			ProcessVariance: t.GetProcessVariance(),
		},
	}
}

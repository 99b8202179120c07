package vision

import "github.com/banshee-data/sightline/internal/monitoring"

// captureLogf swaps the package logger for one that counts calls and
// returns a restore func for defer.
func captureLogf(count *int) func() {
	original := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		*count++
	})
	return func() { monitoring.Logf = original }
}

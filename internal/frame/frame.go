// Package frame holds the per-frame values passed from the host loop to the
// scope driver.
package frame

import (
	"time"
)

// Args is the input of one driver frame.
type Args struct {
	// Now is the frame time. Lookup retries are scheduled against it.
	Now time.Time
	// ZoomInput is added to the scope zoom every update.
	ZoomInput float32
	// Simple selects the cheaper render path for this frame only.
	Simple bool
}

// Stats counts what the driver did across frames.
type Stats struct {
	Frames   int
	Rendered int
	// Skipped counts frames that kept the previous texture.
	Skipped int
	// LookupRetries counts scope node lookups after the first.
	LookupRetries int
	LastErr       error
}

// Record accounts one frame that ended with err (nil on success).
func (s *Stats) Record(err error) {
	s.Frames++
	if err != nil {
		s.Skipped++
		s.LastErr = err
		return
	}
	s.Rendered++
}

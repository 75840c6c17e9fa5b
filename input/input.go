// Package input contains the tracking backends. Each backend owns a
// network goroutine that decodes its native protocol into frames, and a
// bounded hand-off buffer the fusion loop drains once per tick.
package input

import (
	"context"
	"time"

	"github.com/c360/facebridge/expression"
)

// liveWindow is how recently a backend must have produced data to count
// as live.
const liveWindow = time.Second

// StatusSink receives per-source liveness from Drain.
type StatusSink interface {
	// SourceLive reports whether a named source produced data within
	// the liveness window.
	SourceLive(name string, live bool)
}

// Receiver is a tracking backend.
type Receiver interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Start spawns the backend's network goroutine. It returns once
	// the goroutine is running; the goroutine exits when ctx is done.
	Start(ctx context.Context) error

	// Drain applies all queued frames to the snapshot without
	// blocking and reports source liveness to the sink.
	Drain(data *expression.TrackingData, sink StatusSink)
}

func live(last time.Time) bool {
	return !last.IsZero() && time.Since(last) < liveWindow
}

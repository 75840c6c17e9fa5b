package input

import (
	"context"

	"github.com/c360/facebridge/expression"
)

// Dummy is the null backend used when no tracking hardware is
// configured. The gateway still runs its loop and derived channels.
type Dummy struct{}

// NewDummy creates the null backend.
func NewDummy() *Dummy { return &Dummy{} }

// Name implements Receiver.
func (d *Dummy) Name() string { return "DUMMY" }

// Start implements Receiver.
func (d *Dummy) Start(ctx context.Context) error { return nil }

// Drain implements Receiver.
func (d *Dummy) Drain(data *expression.TrackingData, sink StatusSink) {}

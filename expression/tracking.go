package expression

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// TrackingData is the canonical per-tick snapshot of everything the
// backends report. Backends write into the unified region and the gaze
// slots; RecomputeDerived fills the combined region before encoding.
type TrackingData struct {
	// Eyes holds per-eye gaze Euler angles in radians
	// (X pitch, Y yaw, Z roll). A nil entry means that eye is untracked.
	Eyes [2]*mgl32.Vec3

	// Shapes holds all channel values, unified then combined,
	// indexed by Unified.Index() and Combined.Index().
	Shapes [NumShapes]float32

	// Head and hand transforms, most recent wins.
	Head      Pose
	LeftHand  Pose
	RightHand Pose

	// PoseSeenAt is when a head pose was last reported.
	PoseSeenAt time.Time
}

// NewTrackingData returns a zeroed snapshot with identity poses and no
// gaze data.
func NewTrackingData() *TrackingData {
	return &TrackingData{
		Head:      IdentityPose(),
		LeftHand:  IdentityPose(),
		RightHand: IdentityPose(),
	}
}

// GetU reads a unified channel.
func (d *TrackingData) GetU(e Unified) float32 { return d.Shapes[e.Index()] }

// GetC reads a combined channel.
func (d *TrackingData) GetC(e Combined) float32 { return d.Shapes[e.Index()] }

// SetU writes a unified channel.
func (d *TrackingData) SetU(e Unified, v float32) { d.Shapes[e.Index()] = v }

// SetC writes a combined channel.
func (d *TrackingData) SetC(e Combined, v float32) { d.Shapes[e.Index()] = v }

// SetEye stores one eye's gaze Euler angles. idx is 0 for left, 1 for right.
func (d *TrackingData) SetEye(idx int, euler mgl32.Vec3) {
	if idx < 0 || idx > 1 {
		return
	}
	e := euler
	d.Eyes[idx] = &e
}

// CopyUnifiedFrom overwrites the unified region of d with src, leaving
// the combined region untouched. Frame-oriented backends use this so a
// full frame replaces all muscle channels at once.
func (d *TrackingData) CopyUnifiedFrom(src *[NumShapes]float32) {
	copy(d.Shapes[:UnifiedCount], src[:UnifiedCount])
}

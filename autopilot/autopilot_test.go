package autopilot

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/facebridge/bundle"
	"github.com/c360/facebridge/expression"
)

type fakeParams struct {
	ints   map[string]int32
	bools  map[string]bool
	floats map[string]float32
}

func newFakeParams() *fakeParams {
	return &fakeParams{
		ints:   map[string]int32{},
		bools:  map[string]bool{},
		floats: map[string]float32{},
	}
}

func (p *fakeParams) IntParam(name string) (int32, bool) {
	v, ok := p.ints[name]
	return v, ok
}

func (p *fakeParams) BoolParam(name string) (bool, bool) {
	v, ok := p.bools[name]
	return v, ok
}

func (p *fakeParams) FloatParam(name string) (float32, bool) {
	v, ok := p.floats[name]
	return v, ok
}

func axisValues(t *testing.T, b *bundle.Bundle) map[string]float32 {
	t.Helper()
	axes := map[string]float32{}
	for _, m := range b.Messages() {
		if len(m.Arguments) == 1 {
			if v, ok := m.Arguments[0].(float32); ok {
				axes[m.Address] = v
			}
		}
	}
	return axes
}

func TestIdleSendsZeroAxes(t *testing.T) {
	a := New(nil)
	b := bundle.New()
	a.Step(newFakeParams(), expression.NewTrackingData(), b)

	require.Equal(t, 3, b.Len())
	axes := axisValues(t, b)
	assert.Equal(t, float32(0), axes["/input/LookHorizontal"])
	assert.Equal(t, float32(0), axes["/input/Vertical"])
	assert.Equal(t, float32(0), axes["/input/Horizontal"])
}

func TestTrilaterateRecoversReferencePoint(t *testing.T) {
	// Distances measured from the point (1,0,0) itself.
	target := trilaterate(0, mgl32.Vec3{1, -1, 0}.Len(), mgl32.Vec3{1, 0, -1}.Len(), 1)

	assert.InDelta(t, 1, target.X(), 1e-4)
	assert.InDelta(t, 0, target.Y(), 1e-4)
	assert.InDelta(t, 0, target.Z(), 1e-4)
}

func seekerProximities(p *fakeParams, r1, r2, r3, r4 float32) {
	p.floats["Seeker_P0"] = 1 - r1/contactRadius
	p.floats["Seeker_P1"] = 1 - r2/contactRadius
	p.floats["Seeker_P2"] = 1 - r3/contactRadius
	p.floats["Seeker_P3"] = 1 - r4/contactRadius
}

func TestGrabbedSeekerWalksTowardTarget(t *testing.T) {
	a := New(nil)
	params := newFakeParams()
	params.bools["Seeker_IsGrabbed"] = true
	// Target at (1,0,0) before the walk-space multiplier.
	seekerProximities(params, 0, mgl32.Vec3{1, -1, 0}.Len(), mgl32.Vec3{1, 0, -1}.Len(), 1)

	b := bundle.New()
	a.Step(params, expression.NewTrackingData(), b)

	axes := axisValues(t, b)
	assert.InDelta(t, 1, axes["/input/Horizontal"], 1e-3)
	assert.InDelta(t, 0, axes["/input/Vertical"], 1e-3)
	// Grabbed following never rotates.
	assert.Equal(t, float32(0), axes["/input/LookHorizontal"])
}

func TestPinnedTrackerRotates(t *testing.T) {
	a := New(nil)
	params := newFakeParams()
	params.bools["Tracker1_Enable"] = true
	seekerProximities(params, 0, mgl32.Vec3{1, -1, 0}.Len(), mgl32.Vec3{1, 0, -1}.Len(), 1)

	b := bundle.New()
	a.Step(params, expression.NewTrackingData(), b)

	axes := axisValues(t, b)
	// Target straight to the side: full turn rate.
	assert.InDelta(t, 1, axes["/input/LookHorizontal"], 1e-3)
}

func TestFlightPulsesJump(t *testing.T) {
	a := New(nil)
	params := newFakeParams()
	params.ints["VRCEmote"] = 121

	data := expression.NewTrackingData()
	data.Head.Position = mgl32.Vec3{0, 1, 0}
	data.LeftHand.Position = mgl32.Vec3{0, 1.5, 0}
	data.RightHand.Position = mgl32.Vec3{0, 1.5, 0}
	data.PoseSeenAt = time.Now()

	jumpValue := func(b *bundle.Bundle) (float32, bool) {
		for _, m := range b.Messages() {
			if m.Address == "/input/Jump" {
				return m.Arguments[0].(float32), true
			}
		}
		return 0, false
	}

	b := bundle.New()
	a.Step(params, data, b)
	v, ok := jumpValue(b)
	require.True(t, ok)
	assert.Equal(t, float32(1), v)

	// The pulse releases on the next tick.
	b = bundle.New()
	a.Step(params, data, b)
	v, ok = jumpValue(b)
	require.True(t, ok)
	assert.Equal(t, float32(0), v)
}

func TestFlightReleasesWhenHandsDrop(t *testing.T) {
	a := New(nil)
	params := newFakeParams()
	params.ints["VRCEmote"] = 121

	data := expression.NewTrackingData()
	data.Head.Position = mgl32.Vec3{0, 1, 0}
	data.LeftHand.Position = mgl32.Vec3{0, 1.5, 0}
	data.RightHand.Position = mgl32.Vec3{0, 1.5, 0}
	data.PoseSeenAt = time.Now()

	b := bundle.New()
	a.Step(params, data, b)
	require.True(t, a.jumped)

	data.LeftHand.Position = mgl32.Vec3{0, 0.5, 0}
	b = bundle.New()
	a.Step(params, data, b)
	assert.False(t, a.jumped)
	assert.Equal(t, 0, a.countdown)
}

func gestureData() *expression.TrackingData {
	data := expression.NewTrackingData()
	data.LeftHand.Position = mgl32.Vec3{0.05, 0, 0}
	data.RightHand.Position = mgl32.Vec3{-0.05, 0, 0}
	data.PoseSeenAt = time.Now()
	return data
}

func TestGestureSteering(t *testing.T) {
	a := New(nil)
	data := gestureData()

	// Gaze to the side, cheeks puffed, brows raised.
	data.SetEye(1, mgl32.Vec3{0, 0.5, 0})
	data.SetU(expression.CheekPuffLeft, 0.5)
	data.SetU(expression.CheekPuffRight, 0.4)
	data.SetU(expression.BrowInnerUpLeft, 1)
	data.SetU(expression.BrowInnerUpRight, 1)
	data.SetU(expression.BrowOuterUpLeft, 1)
	data.SetU(expression.BrowOuterUpRight, 1)

	b := bundle.New()
	a.Step(newFakeParams(), data, b)

	axes := axisValues(t, b)
	assert.InDelta(t, 0.531, axes["/input/LookHorizontal"], 1e-2)
	assert.InDelta(t, 0.54, axes["/input/Vertical"], 1e-3)
	// Raised brows latched the voice button on.
	assert.Equal(t, float32(1), axes["/input/Voice"])
	assert.True(t, a.voice)
}

func TestVoiceLatchReleasesOnlyAfterRelax(t *testing.T) {
	a := New(nil)
	data := gestureData()
	for _, ch := range []expression.Unified{
		expression.BrowInnerUpLeft, expression.BrowInnerUpRight,
		expression.BrowOuterUpLeft, expression.BrowOuterUpRight,
	} {
		data.SetU(ch, 1)
	}

	a.Step(newFakeParams(), data, bundle.New())
	require.True(t, a.voice)

	// Brows half relaxed: still latched.
	for _, ch := range []expression.Unified{
		expression.BrowInnerUpLeft, expression.BrowInnerUpRight,
	} {
		data.SetU(ch, 0.3)
	}
	a.Step(newFakeParams(), data, bundle.New())
	assert.True(t, a.voice)

	// Fully relaxed: unlock, then release.
	for _, ch := range []expression.Unified{
		expression.BrowOuterUpLeft, expression.BrowOuterUpRight,
	} {
		data.SetU(ch, 0.3)
	}
	b := bundle.New()
	a.Step(newFakeParams(), data, b)
	assert.False(t, a.voice)
	assert.Equal(t, float32(0), axisValues(t, b)["/input/Voice"])
}

func TestHandsApartNoGesture(t *testing.T) {
	a := New(nil)
	data := gestureData()
	data.RightHand.Position = mgl32.Vec3{-0.5, 0, 0}
	data.SetU(expression.CheekPuffLeft, 1)
	data.SetU(expression.CheekPuffRight, 1)

	b := bundle.New()
	a.Step(newFakeParams(), data, b)

	assert.Equal(t, float32(0), axisValues(t, b)["/input/Vertical"])
}

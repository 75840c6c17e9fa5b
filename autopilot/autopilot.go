// Package autopilot synthesizes controller input from avatar contact
// receivers and face gestures: following a grabbed or pinned seeker
// target, emote-triggered flight, and hands-together gesture steering.
package autopilot

import (
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/c360/facebridge/bundle"
	"github.com/c360/facebridge/expression"
)

const (
	// contactRadius is the world-space radius of the seeker contact
	// receivers. Receiver values are proximities in [0,1]; distance is
	// the complement scaled back to meters.
	contactRadius = 3.0

	// distMultiplier scales the trilaterated target into walk space.
	distMultiplier = 25.0

	moveThresholdMeters = 0.2
	runThresholdMeters  = 0.5
	rotateThresholdRad  = math.Pi / 120 // 1.5 degrees
)

// Seeker trilateration reference points, fixed by the avatar prefab.
var (
	seekerP1 = mgl32.Vec3{1, 0, 0}
	seekerP2 = mgl32.Vec3{0, 1, 0}
	seekerP3 = mgl32.Vec3{0, 0, 1}
)

// poseWindow is how fresh head and hand poses must be for the pose
// driven features.
const poseWindow = time.Second

// ParamSource reads the gateway's cache of inbound avatar parameters.
type ParamSource interface {
	IntParam(name string) (int32, bool)
	BoolParam(name string) (bool, bool)
	FloatParam(name string) (float32, bool)
}

// Autopilot holds the gesture state machines between ticks.
type Autopilot struct {
	logger *slog.Logger

	jumped    bool
	countdown int
	voice     bool
	voiceLock bool
}

// New creates an idle autopilot.
func New(logger *slog.Logger) *Autopilot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autopilot{logger: logger}
}

// Step runs one tick: flight, then either seeker following or gesture
// steering, and always the three input axes so a released control
// returns to zero.
func (a *Autopilot) Step(params ParamSource, data *expression.TrackingData, b *bundle.Bundle) {
	posesLive := !data.PoseSeenAt.IsZero() && time.Since(data.PoseSeenAt) < poseWindow

	if posesLive {
		a.flight(params, data, b)
	}

	follow := false
	followDistance := float32(moveThresholdMeters)
	allowRotate := false

	if grabbed, _ := params.BoolParam("Seeker_IsGrabbed"); grabbed {
		follow = true
	} else if pinned, _ := params.BoolParam("Tracker1_Enable"); pinned {
		follow = true
		allowRotate = true
		followDistance = runThresholdMeters
	}

	var lookHorizontal, vertical, horizontal float32

	if follow {
		if target, ok := seekerTarget(params); ok {
			distHorizontal := float32(math.Sqrt(float64(target.X()*target.X() + target.Z()*target.Z())))
			theta := float32(math.Atan(float64(target.X() / target.Z())))
			if target.Z() < 0 {
				if theta < 0 {
					theta = math.Pi + theta
				} else {
					theta = -math.Pi + theta
				}
			}
			absTheta := abs32(theta)

			if distHorizontal > followDistance {
				mult := clamp01(distHorizontal / runThresholdMeters)
				vertical = target.Z() / distHorizontal * mult
				horizontal = target.X() / distHorizontal * mult
				if allowRotate {
					lookHorizontal = sign32(theta) * clamp01(absTheta/(math.Pi/2))
				}
			} else if allowRotate && absTheta > rotateThresholdRad {
				lookHorizontal = sign32(theta) * clamp01(absTheta/(math.Pi/2))
			}
		}
	} else if posesLive && a.handsTogether(data) {
		lookHorizontal, vertical = a.gestureSteering(data, b)
	}

	b.SendInputAxis("LookHorizontal", lookHorizontal)
	b.SendInputAxis("Vertical", vertical)
	b.SendInputAxis("Horizontal", horizontal)
}

// flight: while a flight emote plays and both hands are raised above
// the head, pulse Jump with a cadence set by how high the hands are.
func (a *Autopilot) flight(params ParamSource, data *expression.TrackingData, b *bundle.Bundle) {
	const flightEmoteLow, flightEmoteHigh = 120, 124

	emote, ok := params.IntParam("VRCEmote")
	if !ok {
		return
	}

	headY := data.Head.Position.Y()
	leftY := data.LeftHand.Position.Y()
	rightY := data.RightHand.Position.Y()

	if emote >= flightEmoteLow && emote <= flightEmoteHigh && leftY > headY && rightY > headY {
		if !a.jumped && a.countdown <= 0 {
			diff := (leftY+rightY)*0.5 + 0.1 - headY
			if diff < 0 {
				diff = 0
			} else if diff > 0.3 {
				diff = 0.3
			}

			b.SendInputButton("Jump", true)
			a.logger.Debug("flight jump", "lift", diff)

			a.jumped = true
			a.countdown = int(30 - 100*diff)
		} else {
			b.SendInputButton("Jump", false)
			a.countdown--
			a.jumped = false
		}
	} else if a.jumped {
		b.SendInputButton("Jump", false)
		a.countdown = 0
		a.jumped = false
	}
}

// handsTogether detects palms close and facing each other.
func (a *Autopilot) handsTogether(data *expression.TrackingData) bool {
	left := data.LeftHand
	right := data.RightHand

	gap := left.Position.Sub(right.Position)
	if gap.Len() >= 0.2 {
		return false
	}
	if gap.Len() == 0 {
		return false
	}

	palmLeft := left.Orientation.Rotate(mgl32.Vec3{1, 0, 0})
	palmRight := right.Orientation.Rotate(mgl32.Vec3{-1, 0, 0})

	toLeft := gap.Normalize()
	toRight := toLeft.Mul(-1)

	return palmLeft.Dot(toRight) < -0.8 && palmRight.Dot(toLeft) < -0.8
}

// gestureSteering maps face state to movement while the hands are held
// together: gaze steers, raised brows latch the voice button, cheek
// puff moves forward and cheek suck backward, looking up jumps.
func (a *Autopilot) gestureSteering(data *expression.TrackingData, b *bundle.Bundle) (lookHorizontal, vertical float32) {
	if gaze := data.Eyes[1]; gaze != nil {
		yawDeg := float32(math.Atan(float64(gaze.Y()))) * 180 / math.Pi
		if yawDeg < -10 || yawDeg > 20 {
			lookHorizontal = yawDeg * 0.02
			if lookHorizontal > 1 {
				lookHorizontal = 1
			}
		}

		// Gaze pitch with up positive.
		pitchDeg := float32(math.Atan(float64(-gaze.X()))) * 180 / math.Pi
		if pitchDeg > 15 && !a.jumped {
			b.SendInputButton("Jump", true)
			a.jumped = true
		} else if a.jumped {
			b.SendInputButton("Jump", false)
			a.jumped = false
		}
	}

	puff := data.GetU(expression.CheekPuffLeft) + data.GetU(expression.CheekPuffRight)
	suck := data.GetU(expression.CheekSuckLeft) + data.GetU(expression.CheekSuckRight)

	if puff > 0.5 {
		vertical = min32(puff*0.6, 1)
	} else if suck > 0.5 {
		vertical = -min32(suck*0.6, 1)
	}

	brows := data.GetU(expression.BrowInnerUpLeft) + data.GetU(expression.BrowInnerUpRight) +
		data.GetU(expression.BrowOuterUpLeft) + data.GetU(expression.BrowOuterUpRight)

	if brows < 2.0 {
		a.voiceLock = false
	}
	if brows > 3.0 && !a.voice {
		b.SendInputButton("Voice", true)
		a.voice = true
		a.voiceLock = true
	} else if a.voice && !a.voiceLock {
		b.SendInputButton("Voice", false)
		a.voice = false
	}

	return lookHorizontal, vertical
}

// seekerTarget trilaterates the grab target from the four contact
// receiver proximities.
func seekerTarget(params ParamSource) (mgl32.Vec3, bool) {
	var radii [4]float32
	for i, name := range []string{"Seeker_P0", "Seeker_P1", "Seeker_P2", "Seeker_P3"} {
		proximity, ok := params.FloatParam(name)
		if !ok {
			return mgl32.Vec3{}, false
		}
		radii[i] = (1 - proximity) * contactRadius
	}

	return trilaterate(radii[0], radii[1], radii[2], radii[3]).Mul(distMultiplier), true
}

// trilaterate solves for the point at distances r1..r3 from the three
// reference points, using r4 (distance from the origin) to pick between
// the two mirror solutions.
func trilaterate(r1, r2, r3, r4 float32) mgl32.Vec3 {
	p2p1 := seekerP2.Sub(seekerP1)
	p3p1 := seekerP3.Sub(seekerP1)

	ex := p2p1.Normalize()
	i := ex.Dot(p3p1)

	ey := p3p1.Sub(ex.Mul(i)).Normalize()
	ez := ex.Cross(ey)
	d := p2p1.Len()
	j := ey.Dot(p3p1)

	r1sq := r1 * r1

	x := (r1sq - r2*r2 + d*d) / (2 * d)
	y := (r1sq-r3*r3+i*i+j*j)/(2*j) - i/j*x

	zsq := r1sq - x*x - y*y
	var z1 float32
	if zsq > 0 {
		z1 = float32(math.Sqrt(float64(zsq)))
	}

	ans1 := seekerP1.Add(ex.Mul(x)).Add(ey.Mul(y)).Add(ez.Mul(z1))
	ans2 := seekerP1.Add(ex.Mul(x)).Add(ey.Mul(y)).Add(ez.Mul(-z1))

	if abs32(ans1.Len()-r4) < abs32(ans2.Len()-r4) {
		return ans1
	}
	return ans2
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sign32(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

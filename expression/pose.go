package expression

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Pose is a rigid transform reported by a backend for the head or a hand.
type Pose struct {
	Orientation mgl32.Quat
	Position    mgl32.Vec3
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl32.QuatIdent()}
}

// Apply transforms a point from pose-local space to world space.
func (p Pose) Apply(v mgl32.Vec3) mgl32.Vec3 {
	return p.Orientation.Rotate(v).Add(p.Position)
}

// Forward returns the pose's -Z axis in world space.
func (p Pose) Forward() mgl32.Vec3 {
	return p.Orientation.Rotate(mgl32.Vec3{0, 0, -1})
}

// EulerYXZ decomposes a rotation into Euler angles applied in Y, X, Z
// order (yaw, then pitch, then roll), returned as a vector of per-axis
// angles in radians. Gaze quaternions from event-stream backends use
// this order.
func EulerYXZ(q mgl32.Quat) mgl32.Vec3 {
	m := q.Normalize().Mat4()

	// R = Ry * Rx * Rz. r12 = -sin(x).
	sx := -m.At(1, 2)
	x := asinClamped(sx)

	var y, z float32
	if abs32(sx) < 0.9999 {
		y = float32(math.Atan2(float64(m.At(0, 2)), float64(m.At(2, 2))))
		z = float32(math.Atan2(float64(m.At(1, 0)), float64(m.At(1, 1))))
	} else {
		// Gimbal lock: fold roll into yaw.
		y = float32(math.Atan2(float64(-m.At(2, 0)), float64(m.At(0, 0))))
		z = 0
	}

	return mgl32.Vec3{x, y, z}
}

// EulerZXY decomposes a rotation into Euler angles applied in Z, X, Y
// order, returned as per-axis angles in radians. The consumer reports
// tracker orientations in this order.
func EulerZXY(q mgl32.Quat) mgl32.Vec3 {
	m := q.Normalize().Mat4()

	// R = Rz * Rx * Ry. r21 = sin(x).
	sx := m.At(2, 1)
	x := asinClamped(sx)

	var y, z float32
	if abs32(sx) < 0.9999 {
		y = float32(math.Atan2(float64(-m.At(2, 0)), float64(m.At(2, 2))))
		z = float32(math.Atan2(float64(-m.At(0, 1)), float64(m.At(1, 1))))
	} else {
		y = 0
		z = float32(math.Atan2(float64(m.At(1, 0)), float64(m.At(0, 0))))
	}

	return mgl32.Vec3{x, y, z}
}

func asinClamped(v float32) float32 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return float32(math.Asin(float64(v)))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

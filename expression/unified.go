// Package expression defines the canonical expression model: the unified
// muscle-level channels reported by tracking backends, the combined channels
// derived from them, and the TrackingData snapshot that carries both through
// one tick of the gateway.
package expression

// Unified identifies one muscle-level expression channel. The constant
// order fixes each channel's index into TrackingData.Shapes and must not
// be rearranged.
type Unified int

const (
	// Gaze channels, signed.
	EyeLeftX Unified = iota
	EyeRightX
	EyeY

	// Eyelids.
	EyeClosedRight
	EyeClosedLeft
	EyeSquintRight
	EyeSquintLeft
	EyeWideRight
	EyeWideLeft

	// Brows.
	BrowPinchRight
	BrowPinchLeft
	BrowLowererRight
	BrowLowererLeft
	BrowInnerUpRight
	BrowInnerUpLeft
	BrowOuterUpRight
	BrowOuterUpLeft

	// Nose.
	NasalDilationRight
	NasalDilationLeft
	NasalConstrictRight
	NasalConstrictLeft

	// Cheeks.
	CheekSquintRight
	CheekSquintLeft
	CheekPuffRight
	CheekPuffLeft
	CheekSuckRight
	CheekSuckLeft

	// Jaw.
	JawOpen
	JawRight
	JawLeft
	JawForward
	JawBackward
	JawClench
	JawMandibleRaise

	MouthClosed

	// Lip suck.
	LipSuckUpperRight
	LipSuckUpperLeft
	LipSuckLowerRight
	LipSuckLowerLeft
	LipSuckCornerRight
	LipSuckCornerLeft

	// Lip funnel.
	LipFunnelUpperRight
	LipFunnelUpperLeft
	LipFunnelLowerRight
	LipFunnelLowerLeft

	// Lip pucker.
	LipPuckerUpperRight
	LipPuckerUpperLeft
	LipPuckerLowerRight
	LipPuckerLowerLeft

	// Upper lip raisers.
	MouthUpperUpRight
	MouthUpperUpLeft
	MouthUpperDeepenRight
	MouthUpperDeepenLeft
	NoseSneerRight
	NoseSneerLeft

	// Lower lip depressors.
	MouthLowerDownRight
	MouthLowerDownLeft

	// Horizontal mouth movement.
	MouthUpperRight
	MouthUpperLeft
	MouthLowerRight
	MouthLowerLeft

	// Smile group.
	MouthCornerPullRight
	MouthCornerPullLeft
	MouthCornerSlantRight
	MouthCornerSlantLeft

	// Sad group.
	MouthFrownRight
	MouthFrownLeft
	MouthStretchRight
	MouthStretchLeft

	MouthDimpleRight
	MouthDimpleLeft

	MouthRaiserUpper
	MouthRaiserLower
	MouthPressRight
	MouthPressLeft
	MouthTightenerRight
	MouthTightenerLeft

	TongueOut

	TongueUp
	TongueDown
	TongueRight
	TongueLeft

	TongueRoll
	TongueBendDown
	TongueCurlUp
	TongueSquish
	TongueFlat

	TongueTwistRight
	TongueTwistLeft

	// UnifiedCount is the number of unified channels.
	UnifiedCount = int(iota)
)

// Index returns the channel's position in TrackingData.Shapes.
func (u Unified) Index() int { return int(u) }

// String returns the channel's canonical parameter name.
func (u Unified) String() string {
	if u < 0 || int(u) >= UnifiedCount {
		return "Unified(invalid)"
	}
	return unifiedNames[u]
}

var unifiedNames = [UnifiedCount]string{
	"EyeLeftX",
	"EyeRightX",
	"EyeY",
	"EyeClosedRight",
	"EyeClosedLeft",
	"EyeSquintRight",
	"EyeSquintLeft",
	"EyeWideRight",
	"EyeWideLeft",
	"BrowPinchRight",
	"BrowPinchLeft",
	"BrowLowererRight",
	"BrowLowererLeft",
	"BrowInnerUpRight",
	"BrowInnerUpLeft",
	"BrowOuterUpRight",
	"BrowOuterUpLeft",
	"NasalDilationRight",
	"NasalDilationLeft",
	"NasalConstrictRight",
	"NasalConstrictLeft",
	"CheekSquintRight",
	"CheekSquintLeft",
	"CheekPuffRight",
	"CheekPuffLeft",
	"CheekSuckRight",
	"CheekSuckLeft",
	"JawOpen",
	"JawRight",
	"JawLeft",
	"JawForward",
	"JawBackward",
	"JawClench",
	"JawMandibleRaise",
	"MouthClosed",
	"LipSuckUpperRight",
	"LipSuckUpperLeft",
	"LipSuckLowerRight",
	"LipSuckLowerLeft",
	"LipSuckCornerRight",
	"LipSuckCornerLeft",
	"LipFunnelUpperRight",
	"LipFunnelUpperLeft",
	"LipFunnelLowerRight",
	"LipFunnelLowerLeft",
	"LipPuckerUpperRight",
	"LipPuckerUpperLeft",
	"LipPuckerLowerRight",
	"LipPuckerLowerLeft",
	"MouthUpperUpRight",
	"MouthUpperUpLeft",
	"MouthUpperDeepenRight",
	"MouthUpperDeepenLeft",
	"NoseSneerRight",
	"NoseSneerLeft",
	"MouthLowerDownRight",
	"MouthLowerDownLeft",
	"MouthUpperRight",
	"MouthUpperLeft",
	"MouthLowerRight",
	"MouthLowerLeft",
	"MouthCornerPullRight",
	"MouthCornerPullLeft",
	"MouthCornerSlantRight",
	"MouthCornerSlantLeft",
	"MouthFrownRight",
	"MouthFrownLeft",
	"MouthStretchRight",
	"MouthStretchLeft",
	"MouthDimpleRight",
	"MouthDimpleLeft",
	"MouthRaiserUpper",
	"MouthRaiserLower",
	"MouthPressRight",
	"MouthPressLeft",
	"MouthTightenerRight",
	"MouthTightenerLeft",
	"TongueOut",
	"TongueUp",
	"TongueDown",
	"TongueRight",
	"TongueLeft",
	"TongueRoll",
	"TongueBendDown",
	"TongueCurlUp",
	"TongueSquish",
	"TongueFlat",
	"TongueTwistRight",
	"TongueTwistLeft",
}

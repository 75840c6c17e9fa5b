package expression

import (
	"math"

	"github.com/c360/facebridge/errors"
)

// Meta face expression weight vector layout. The base vector carries 63
// weights; the extended vector appends tongue weights for 70 total.
const (
	// FaceFBWeights is the base weight count.
	FaceFBWeights = 63

	// FaceFBTongueWeights is the extended weight count including tongue.
	FaceFBTongueWeights = 70
)

// Base vector indices.
const (
	fbBrowLowererL = iota
	fbBrowLowererR
	fbCheekPuffL
	fbCheekPuffR
	fbCheekRaiserL
	fbCheekRaiserR
	fbCheekSuckL
	fbCheekSuckR
	fbChinRaiserB
	fbChinRaiserT
	fbDimplerL
	fbDimplerR
	fbEyesClosedL
	fbEyesClosedR
	fbEyesLookDownL
	fbEyesLookDownR
	fbEyesLookLeftL
	fbEyesLookLeftR
	fbEyesLookRightL
	fbEyesLookRightR
	fbEyesLookUpL
	fbEyesLookUpR
	fbInnerBrowRaiserL
	fbInnerBrowRaiserR
	fbJawDrop
	fbJawSidewaysLeft
	fbJawSidewaysRight
	fbJawThrust
	fbLidTightenerL
	fbLidTightenerR
	fbLipCornerDepressorL
	fbLipCornerDepressorR
	fbLipCornerPullerL
	fbLipCornerPullerR
	fbLipFunnelerLB
	fbLipFunnelerLT
	fbLipFunnelerRB
	fbLipFunnelerRT
	fbLipPressorL
	fbLipPressorR
	fbLipPuckerL
	fbLipPuckerR
	fbLipStretcherL
	fbLipStretcherR
	fbLipSuckLB
	fbLipSuckLT
	fbLipSuckRB
	fbLipSuckRT
	fbLipTightenerL
	fbLipTightenerR
	fbLipsToward
	fbLowerLipDepressorL
	fbLowerLipDepressorR
	fbMouthLeft
	fbMouthRight
	fbNoseWrinklerL
	fbNoseWrinklerR
	fbOuterBrowRaiserL
	fbOuterBrowRaiserR
	fbUpperLidRaiserL
	fbUpperLidRaiserR
	fbUpperLipRaiserL
	fbUpperLipRaiserR
)

// Extended vector tongue indices.
const (
	fbTongueTipAlveolar = 64
	fbTongueOut         = 68
)

// ApplyFaceFB translates a Meta face expression weight vector into the
// unified region of the snapshot. Tongue channels are filled only when
// the extended vector is present.
func (d *TrackingData) ApplyFaceFB(w []float32) error {
	if len(w) < FaceFBWeights {
		return errors.WrapInvalid(errors.ErrShortPayload, "expression", "ApplyFaceFB", "face weight vector")
	}

	d.SetU(EyeRightX, w[fbEyesLookRightR]-w[fbEyesLookLeftR])
	d.SetU(EyeLeftX, w[fbEyesLookRightL]-w[fbEyesLookLeftL])
	d.SetU(EyeY, w[fbEyesLookUpR]-w[fbEyesLookDownR])

	d.SetU(EyeClosedLeft, w[fbEyesClosedL])
	d.SetU(EyeClosedRight, w[fbEyesClosedR])
	d.SetU(EyeSquintRight, w[fbLidTightenerR]-w[fbEyesClosedR])
	d.SetU(EyeSquintLeft, w[fbLidTightenerL]-w[fbEyesClosedL])
	d.SetU(EyeWideRight, w[fbUpperLidRaiserR])
	d.SetU(EyeWideLeft, w[fbUpperLidRaiserL])

	d.SetU(BrowPinchRight, w[fbBrowLowererR])
	d.SetU(BrowPinchLeft, w[fbBrowLowererL])
	d.SetU(BrowLowererRight, w[fbBrowLowererR])
	d.SetU(BrowLowererLeft, w[fbBrowLowererL])
	d.SetU(BrowInnerUpRight, w[fbInnerBrowRaiserR])
	d.SetU(BrowInnerUpLeft, w[fbInnerBrowRaiserL])
	d.SetU(BrowOuterUpRight, w[fbOuterBrowRaiserR])
	d.SetU(BrowOuterUpLeft, w[fbOuterBrowRaiserL])

	d.SetU(CheekSquintRight, w[fbCheekRaiserR])
	d.SetU(CheekSquintLeft, w[fbCheekRaiserL])
	d.SetU(CheekPuffRight, w[fbCheekPuffR])
	d.SetU(CheekPuffLeft, w[fbCheekPuffL])
	d.SetU(CheekSuckRight, w[fbCheekSuckR])
	d.SetU(CheekSuckLeft, w[fbCheekSuckL])

	d.SetU(JawOpen, w[fbJawDrop])
	d.SetU(JawRight, w[fbJawSidewaysRight])
	d.SetU(JawLeft, w[fbJawSidewaysLeft])
	d.SetU(JawForward, w[fbJawThrust])
	d.SetU(MouthClosed, w[fbLipsToward])

	// Lip suck on the upper lip fights the upper lip raiser. Damp it by
	// how far the raiser is engaged.
	d.SetU(LipSuckUpperRight, min32(1-pow32(w[fbUpperLipRaiserR], 0.1666), w[fbLipSuckRT]))
	d.SetU(LipSuckUpperLeft, min32(1-pow32(w[fbUpperLipRaiserL], 0.1666), w[fbLipSuckLT]))
	d.SetU(LipSuckLowerRight, w[fbLipSuckRB])
	d.SetU(LipSuckLowerLeft, w[fbLipSuckLB])

	d.SetU(LipFunnelUpperRight, w[fbLipFunnelerRT])
	d.SetU(LipFunnelUpperLeft, w[fbLipFunnelerLT])
	d.SetU(LipFunnelLowerRight, w[fbLipFunnelerRB])
	d.SetU(LipFunnelLowerLeft, w[fbLipFunnelerLB])

	d.SetU(LipPuckerUpperRight, w[fbLipPuckerR])
	d.SetU(LipPuckerUpperLeft, w[fbLipPuckerL])
	d.SetU(LipPuckerLowerRight, w[fbLipPuckerR])
	d.SetU(LipPuckerLowerLeft, w[fbLipPuckerL])

	d.SetU(NoseSneerRight, w[fbNoseWrinklerR])
	d.SetU(NoseSneerLeft, w[fbNoseWrinklerL])

	d.SetU(MouthLowerDownRight, w[fbLowerLipDepressorR])
	d.SetU(MouthLowerDownLeft, w[fbLowerLipDepressorL])

	d.SetU(MouthUpperUpRight, w[fbUpperLipRaiserR])
	d.SetU(MouthUpperUpLeft, w[fbUpperLipRaiserL])
	d.SetU(MouthUpperDeepenRight, w[fbUpperLipRaiserR])
	d.SetU(MouthUpperDeepenLeft, w[fbUpperLipRaiserL])

	d.SetU(MouthUpperRight, w[fbMouthRight])
	d.SetU(MouthUpperLeft, w[fbMouthLeft])
	d.SetU(MouthLowerRight, w[fbMouthRight])
	d.SetU(MouthLowerLeft, w[fbMouthLeft])

	d.SetU(MouthCornerPullRight, w[fbLipCornerPullerR])
	d.SetU(MouthCornerPullLeft, w[fbLipCornerPullerL])
	d.SetU(MouthCornerSlantRight, w[fbLipCornerPullerR])
	d.SetU(MouthCornerSlantLeft, w[fbLipCornerPullerL])

	d.SetU(MouthFrownRight, w[fbLipCornerDepressorR])
	d.SetU(MouthFrownLeft, w[fbLipCornerDepressorL])
	d.SetU(MouthStretchRight, w[fbLipStretcherR])
	d.SetU(MouthStretchLeft, w[fbLipStretcherL])

	d.SetU(MouthDimpleLeft, min32(w[fbDimplerL]*2, 1))
	d.SetU(MouthDimpleRight, min32(w[fbDimplerR]*2, 1))

	d.SetU(MouthRaiserUpper, w[fbChinRaiserT])
	d.SetU(MouthRaiserLower, w[fbChinRaiserB])
	d.SetU(MouthPressRight, w[fbLipPressorR])
	d.SetU(MouthPressLeft, w[fbLipPressorL])
	d.SetU(MouthTightenerRight, w[fbLipTightenerR])
	d.SetU(MouthTightenerLeft, w[fbLipTightenerL])

	if len(w) >= FaceFBTongueWeights {
		d.SetU(TongueOut, w[fbTongueOut])
		d.SetU(TongueCurlUp, w[fbTongueTipAlveolar])
	}

	return nil
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func pow32(v, exp float32) float32 {
	return float32(math.Pow(float64(v), float64(exp)))
}

package expression

// DeriveEnv carries the per-tick inputs to RecomputeDerived that do not
// live in the snapshot itself.
type DeriveEnv struct {
	// BlushHint is set when the consumer reports a blush trigger
	// parameter above its threshold.
	BlushHint bool

	// DeltaT is the time since the previous tick in seconds. It rates
	// the Blush integrator.
	DeltaT float32
}

// blushGazeThreshold is the gaze yaw above which Blush charges on its own.
const blushGazeThreshold = 0.25

// RecomputeDerived fills the combined region of the snapshot from the
// unified channels. It is idempotent for all channels except Blush,
// which integrates over DeltaT.
func (d *TrackingData) RecomputeDerived(env DeriveEnv) {
	leftOpenness := clamp01(1 - d.GetU(EyeClosedLeft)*1.5)
	d.SetC(EyeLidLeft, leftOpenness*0.75+d.GetU(EyeWideLeft)*0.25)

	rightOpenness := clamp01(1 - d.GetU(EyeClosedRight)*1.5)
	d.SetC(EyeLidRight, rightOpenness*0.75+d.GetU(EyeWideRight)*0.25)

	d.SetC(EyeLid, (d.GetC(EyeLidLeft)+d.GetC(EyeLidRight))*0.5)
	d.SetC(EyeSquint, (d.GetU(EyeSquintLeft)+d.GetU(EyeSquintRight))*0.5)

	browDownLeft := d.GetU(BrowLowererLeft)*0.75 + d.GetU(BrowPinchLeft)*0.25
	browDownRight := d.GetU(BrowLowererRight)*0.75 + d.GetU(BrowPinchRight)*0.25
	d.SetC(BrowDownLeft, browDownLeft)
	d.SetC(BrowDownRight, browDownRight)

	browOuterUp := (d.GetU(BrowOuterUpLeft) + d.GetU(BrowOuterUpRight)) * 0.5
	browInnerUp := (d.GetU(BrowInnerUpLeft) + d.GetU(BrowInnerUpRight)) * 0.5
	d.SetC(BrowOuterUp, browOuterUp)
	d.SetC(BrowInnerUp, browInnerUp)
	d.SetC(BrowUp, (browOuterUp+browInnerUp)*0.5)

	browExpLeft := d.GetU(BrowInnerUpLeft)*0.5 + d.GetU(BrowOuterUpLeft)*0.5 - browDownLeft
	browExpRight := d.GetU(BrowInnerUpRight)*0.5 + d.GetU(BrowOuterUpRight)*0.5 - browDownRight
	d.SetC(BrowExpressionLeft, browExpLeft)
	d.SetC(BrowExpressionRight, browExpRight)
	d.SetC(BrowExpression, (browExpLeft+browExpRight)*0.5)

	smileLeft := d.GetU(MouthCornerPullLeft)*0.75 + d.GetU(MouthCornerSlantLeft)*0.25
	smileRight := d.GetU(MouthCornerPullRight)*0.75 + d.GetU(MouthCornerSlantRight)*0.25
	sadLeft := d.GetU(MouthFrownLeft)*0.75 + d.GetU(MouthStretchLeft)*0.25
	sadRight := d.GetU(MouthFrownRight)*0.75 + d.GetU(MouthStretchRight)*0.25
	d.SetC(MouthSmileLeft, smileLeft)
	d.SetC(MouthSmileRight, smileRight)
	d.SetC(MouthSadLeft, sadLeft)
	d.SetC(MouthSadRight, sadRight)

	d.SetC(MouthUpperX, d.GetU(MouthUpperRight)-d.GetU(MouthUpperLeft))
	d.SetC(MouthLowerX, d.GetU(MouthLowerRight)-d.GetU(MouthLowerLeft))

	d.SetC(SmileSadLeft, smileLeft-sadLeft)
	d.SetC(SmileSadRight, smileRight-sadRight)
	d.SetC(SmileSad, (smileLeft-sadLeft+smileRight-sadRight)*0.5)
	d.SetC(SmileFrownLeft, smileLeft-d.GetU(MouthFrownLeft))
	d.SetC(SmileFrownRight, smileRight-d.GetU(MouthFrownRight))
	d.SetC(SmileFrown, (smileLeft-d.GetU(MouthFrownLeft)+smileRight-d.GetU(MouthFrownRight))*0.5)

	d.SetC(CheekPuffSuckLeft, d.GetU(CheekPuffLeft)-d.GetU(CheekSuckLeft))
	d.SetC(CheekPuffSuckRight, d.GetU(CheekPuffRight)-d.GetU(CheekSuckRight))
	d.SetC(CheekPuffSuck,
		(d.GetU(CheekPuffLeft)+d.GetU(CheekPuffRight)-
			d.GetU(CheekSuckLeft)-d.GetU(CheekSuckRight))*0.5)
	d.SetC(CheekSquint, (d.GetU(CheekSquintLeft)+d.GetU(CheekSquintRight))*0.5)

	d.SetC(LipSuckUpper, (d.GetU(LipSuckUpperLeft)+d.GetU(LipSuckUpperRight))*0.5)
	d.SetC(LipSuckLower, (d.GetU(LipSuckLowerLeft)+d.GetU(LipSuckLowerRight))*0.5)
	d.SetC(LipSuck,
		(d.GetU(LipSuckLowerLeft)+d.GetU(LipSuckLowerRight)+
			d.GetU(LipSuckUpperLeft)+d.GetU(LipSuckUpperRight))*0.25)

	d.SetC(MouthStretchTightenLeft, d.GetU(MouthStretchLeft)-d.GetU(MouthTightenerLeft))
	d.SetC(MouthStretchTightenRight, d.GetU(MouthStretchRight)-d.GetU(MouthTightenerRight))
	d.SetC(MouthStretch, (d.GetU(MouthStretchLeft)+d.GetU(MouthStretchRight))*0.5)
	d.SetC(MouthTightener, (d.GetU(MouthTightenerLeft)+d.GetU(MouthTightenerRight))*0.5)
	d.SetC(MouthDimple, (d.GetU(MouthDimpleLeft)+d.GetU(MouthDimpleRight))*0.5)

	mouthUpperUp := (d.GetU(MouthUpperUpLeft) + d.GetU(MouthUpperUpRight)) * 0.5
	mouthLowerDown := (d.GetU(MouthLowerDownLeft) + d.GetU(MouthLowerDownRight)) * 0.5
	d.SetC(MouthUpperUp, mouthUpperUp)
	d.SetC(MouthLowerDown, mouthLowerDown)
	d.SetC(MouthOpen, (mouthUpperUp+mouthLowerDown)*0.5)
	d.SetC(MouthX,
		(d.GetU(MouthUpperRight)+d.GetU(MouthLowerRight)-
			d.GetU(MouthUpperLeft)-d.GetU(MouthLowerLeft))*0.5)

	d.SetC(JawX, d.GetU(JawRight)-d.GetU(JawLeft))
	d.SetC(JawZ, d.GetU(JawForward)-d.GetU(JawBackward))

	puckerLeft := (d.GetU(LipPuckerLowerLeft) + d.GetU(LipPuckerUpperLeft)) * 0.5
	puckerRight := (d.GetU(LipPuckerLowerRight) + d.GetU(LipPuckerUpperRight)) * 0.5
	d.SetC(LipPuckerUpper, (d.GetU(LipPuckerUpperLeft)+d.GetU(LipPuckerUpperRight))*0.5)
	d.SetC(LipPuckerLower, (d.GetU(LipPuckerLowerLeft)+d.GetU(LipPuckerLowerRight))*0.5)
	d.SetC(LipPucker, (puckerLeft+puckerRight)*0.5)

	funnelUpper := (d.GetU(LipFunnelUpperLeft) + d.GetU(LipFunnelUpperRight)) * 0.5
	funnelLower := (d.GetU(LipFunnelLowerLeft) + d.GetU(LipFunnelLowerRight)) * 0.5
	d.SetC(LipFunnelUpper, funnelUpper)
	d.SetC(LipFunnelLower, funnelLower)
	d.SetC(LipFunnel, (funnelUpper+funnelLower)*0.5)

	d.SetC(MouthPress, (d.GetU(MouthPressLeft)+d.GetU(MouthPressRight))*0.5)
	d.SetC(NoseSneer, (d.GetU(NoseSneerLeft)+d.GetU(NoseSneerRight))*0.5)

	d.SetC(EarLeft, clampSym(
		d.GetU(BrowInnerUpLeft)+d.GetU(EyeWideLeft)-
			d.GetU(EyeSquintLeft)-d.GetU(BrowPinchLeft)))
	d.SetC(EarRight, clampSym(
		d.GetU(BrowInnerUpLeft)+d.GetU(EyeWideRight)-
			d.GetU(EyeSquintRight)-d.GetU(BrowPinchRight)))

	d.integrateBlush(env)
}

// integrateBlush charges Blush at 0.10/s while a trigger is active and
// discharges at 0.05/s otherwise. Looking up past the gaze threshold
// counts as a trigger.
func (d *TrackingData) integrateBlush(env DeriveEnv) {
	active := env.BlushHint
	if e := d.Eyes[0]; e != nil && e.Y() > blushGazeThreshold {
		active = true
	}

	rate := float32(-0.05)
	if active {
		rate = 0.10
	}
	d.SetC(Blush, clamp01(d.GetC(Blush)+rate*env.DeltaT))
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

func clampSym(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

package expression

// sranipalAliases maps SRanipal-era parameter names onto the canonical
// channels so avatars authored against the older standard keep working.
// Names that collide with canonical names are resolved by ShapeIndex
// already and are not repeated here.
var sranipalAliases = map[string]int{
	"LeftEyeX":           EyeLeftX.Index(),
	"RightEyeX":          EyeRightX.Index(),
	"EyesY":              EyeY.Index(),
	"EyeLeftWide":        EyeWideLeft.Index(),
	"EyeRightWide":       EyeWideRight.Index(),
	"EyeLeftBlink":       EyeClosedLeft.Index(),
	"EyeRightBlink":      EyeClosedRight.Index(),
	"EyeLeftSqueeze":     EyeSquintLeft.Index(),
	"EyeRightSqueeze":    EyeSquintRight.Index(),
	"CheekSuck":          CheekSuckLeft.Index(),
	"MouthApeShape":      MouthClosed.Index(),
	"MouthUpperInside":   LipSuckUpper.Index(),
	"MouthLowerInside":   LipSuckLower.Index(),
	"MouthUpperOverturn": LipFunnelUpper.Index(),
	"MouthLowerOverturn": LipFunnelLower.Index(),
	"MouthPout":          LipPucker.Index(),
	"MouthLowerOverlay":  MouthRaiserLower.Index(),
	"TongueLongStep1":    TongueOut.Index(),
}

// ResolveShapeName resolves a parameter base name to a shape index,
// accepting both canonical names and SRanipal aliases.
func ResolveShapeName(name string) (int, bool) {
	if idx, ok := shapeIndexByName[name]; ok {
		return idx, true
	}
	idx, ok := sranipalAliases[name]
	return idx, ok
}

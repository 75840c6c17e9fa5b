package expression

// Combined identifies a derived expression channel computed from the
// unified channels each tick. Combined channels share the Shapes array
// with the unified channels and start right after them.
type Combined int

const (
	EyeLidLeft Combined = Combined(UnifiedCount) + iota
	EyeLidRight
	EyeLid
	EyeSquint
	JawX
	JawZ
	BrowDownLeft
	BrowDownRight
	BrowOuterUp
	BrowInnerUp
	BrowUp
	BrowExpressionLeft
	BrowExpressionRight
	BrowExpression
	MouthX
	MouthUpperX
	MouthLowerX
	MouthUpperUp
	MouthLowerDown
	MouthOpen
	MouthSmileLeft
	MouthSmileRight
	MouthSadLeft
	MouthSadRight
	MouthStretchTightenLeft
	MouthStretchTightenRight
	MouthStretch
	MouthTightener
	MouthDimple
	MouthPress
	SmileFrownLeft
	SmileFrownRight
	SmileFrown
	SmileSadLeft
	SmileSadRight
	SmileSad
	LipSuckUpper
	LipSuckLower
	LipSuck
	LipFunnelUpper
	LipFunnelLower
	LipFunnel
	LipPuckerUpper
	LipPuckerLower
	LipPucker
	NoseSneer
	CheekPuffSuckLeft
	CheekPuffSuckRight
	CheekPuffSuck
	CheekSquint

	// Non-standard channels.
	EarLeft
	EarRight
	Blush

	// CombinedCount is the number of combined channels.
	CombinedCount = int(iota)
)

// NumShapes is the total channel count: unified plus combined.
const NumShapes = UnifiedCount + CombinedCount

// Index returns the channel's position in TrackingData.Shapes.
func (c Combined) Index() int { return int(c) }

// String returns the channel's canonical parameter name.
func (c Combined) String() string {
	i := int(c) - UnifiedCount
	if i < 0 || i >= CombinedCount {
		return "Combined(invalid)"
	}
	return combinedNames[i]
}

var combinedNames = [CombinedCount]string{
	"EyeLidLeft",
	"EyeLidRight",
	"EyeLid",
	"EyeSquint",
	"JawX",
	"JawZ",
	"BrowDownLeft",
	"BrowDownRight",
	"BrowOuterUp",
	"BrowInnerUp",
	"BrowUp",
	"BrowExpressionLeft",
	"BrowExpressionRight",
	"BrowExpression",
	"MouthX",
	"MouthUpperX",
	"MouthLowerX",
	"MouthUpperUp",
	"MouthLowerDown",
	"MouthOpen",
	"MouthSmileLeft",
	"MouthSmileRight",
	"MouthSadLeft",
	"MouthSadRight",
	"MouthStretchTightenLeft",
	"MouthStretchTightenRight",
	"MouthStretch",
	"MouthTightener",
	"MouthDimple",
	"MouthPress",
	"SmileFrownLeft",
	"SmileFrownRight",
	"SmileFrown",
	"SmileSadLeft",
	"SmileSadRight",
	"SmileSad",
	"LipSuckUpper",
	"LipSuckLower",
	"LipSuck",
	"LipFunnelUpper",
	"LipFunnelLower",
	"LipFunnel",
	"LipPuckerUpper",
	"LipPuckerLower",
	"LipPucker",
	"NoseSneer",
	"CheekPuffSuckLeft",
	"CheekPuffSuckRight",
	"CheekPuffSuck",
	"CheekSquint",
	"EarLeft",
	"EarRight",
	"Blush",
}

// ShapeName returns the canonical name for any shape index, unified or
// combined. Returns the empty string for out-of-range indices.
func ShapeName(idx int) string {
	switch {
	case idx >= 0 && idx < UnifiedCount:
		return unifiedNames[idx]
	case idx >= UnifiedCount && idx < NumShapes:
		return combinedNames[idx-UnifiedCount]
	default:
		return ""
	}
}

var shapeIndexByName = func() map[string]int {
	m := make(map[string]int, NumShapes)
	for i, name := range unifiedNames {
		m[name] = i
	}
	for i, name := range combinedNames {
		m[name] = UnifiedCount + i
	}
	return m
}()

// ShapeIndex resolves a canonical channel name to its shape index.
func ShapeIndex(name string) (int, bool) {
	idx, ok := shapeIndexByName[name]
	return idx, ok
}

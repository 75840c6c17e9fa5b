package params

import (
	"log/slog"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360/facebridge/bundle"
	"github.com/c360/facebridge/errors"
	"github.com/c360/facebridge/expression"
	"github.com/c360/facebridge/oscquery"
)

// ftParamPattern splits a discovered parameter name into its channel
// base and an optional "Negative" or bit-weight suffix.
var ftParamPattern = regexp.MustCompile(`^(.+?)(Negative|\d+)?$`)

// Table maps every expression channel to its transmission descriptor,
// nil for channels the current avatar does not accept.
type Table struct {
	slots  [expression.NumShapes]*Descriptor
	logger *slog.Logger
}

// NewTable returns an empty table.
func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{logger: logger}
}

// Get returns the descriptor at a shape index, nil when unmapped.
func (t *Table) Get(idx int) *Descriptor {
	if idx < 0 || idx >= expression.NumShapes {
		return nil
	}
	return t.slots[idx]
}

// Set installs a descriptor at a shape index.
func (t *Table) Set(idx int, d *Descriptor) {
	if idx >= 0 && idx < expression.NumShapes {
		t.slots[idx] = d
	}
}

// Active returns the number of mapped channels.
func (t *Table) Active() int {
	n := 0
	for _, d := range t.slots {
		if d != nil {
			n++
		}
	}
	return n
}

// defaultDirectChannels is the pre-discovery parameter set: channels
// published as direct floats under FT/v2/ until a schema says otherwise.
var defaultDirectChannels = []int{
	expression.BrowExpressionLeft.Index(),
	expression.BrowExpressionRight.Index(),
	expression.EyeLidLeft.Index(),
	expression.EyeLidRight.Index(),
	expression.JawX.Index(),
	expression.LipFunnelLower.Index(),
	expression.LipFunnelUpper.Index(),
	expression.LipPucker.Index(),
	expression.MouthLowerDown.Index(),
	expression.MouthStretchTightenLeft.Index(),
	expression.MouthStretchTightenRight.Index(),
	expression.MouthUpperUp.Index(),
	expression.MouthX.Index(),
	expression.SmileSadLeft.Index(),
	expression.SmileSadRight.Index(),
	expression.CheekPuffLeft.Index(),
	expression.CheekPuffRight.Index(),
	expression.EyeSquintLeft.Index(),
	expression.EyeSquintRight.Index(),
	expression.JawOpen.Index(),
	expression.MouthClosed.Index(),
}

// Defaults resets the table to the pre-discovery default set.
func (t *Table) Defaults() {
	t.clear()
	for _, idx := range defaultDirectChannels {
		name := expression.ShapeName(idx)
		t.slots[idx] = &Descriptor{
			Name:        name,
			MainAddress: "FT/v2/" + name,
		}
	}
}

func (t *Table) clear() {
	for i := range t.slots {
		t.slots[i] = nil
	}
}

// Rebuild replaces the whole table from a discovered avatar schema.
// The table is cleared first so addresses from the previous avatar
// never leak into the new one.
func (t *Table) Rebuild(root *oscquery.Node) error {
	t.clear()

	parameters := root.Get("parameters")
	if parameters == nil {
		return errors.WrapInvalid(errors.ErrEmptySchema, "params", "Rebuild", "parameter namespace lookup")
	}

	t.walk("parameters", parameters)

	t.logParams()
	return nil
}

func (t *Table) walk(name string, node *oscquery.Node) {
	if !node.IsLeaf() {
		for childName, child := range node.Contents {
			t.walk(childName, child)
		}
		return
	}

	m := ftParamPattern.FindStringSubmatch(name)
	if m == nil {
		return
	}
	base, suffix := m[1], m[2]

	idx, ok := expression.ResolveShapeName(base)
	if !ok {
		return
	}

	addr := strings.TrimPrefix(node.FullPath, bundle.ParamPrefix)

	d := t.slots[idx]
	if d == nil {
		d = &Descriptor{Name: base}
		t.slots[idx] = d
	}

	switch {
	case suffix == "":
		d.MainAddress = addr

	case suffix == "Negative":
		d.NegAddress = addr

	default:
		weight, err := strconv.Atoi(suffix)
		if err != nil || weight <= 0 || weight&(weight-1) != 0 {
			t.logger.Warn("parameter bit weight is not a power of two",
				"parameter", name, "weight", suffix)
			return
		}
		bit := bits.TrailingZeros(uint(weight))
		if bit >= MaxBits {
			t.logger.Warn("parameter bit weight out of range",
				"parameter", name, "weight", suffix)
			return
		}
		d.BitAddresses[bit] = addr
		if bit+1 > d.NumBits {
			d.NumBits = bit + 1
		}
	}
}

// Encode walks the snapshot and appends every due parameter update.
func (t *Table) Encode(data *expression.TrackingData, b *bundle.Bundle) {
	for idx, d := range t.slots {
		if d != nil {
			d.Encode(data.Shapes[idx], b)
		}
	}
}

func (t *Table) logParams() {
	for _, d := range t.slots {
		if d == nil {
			continue
		}
		if d.Direct() {
			t.logger.Debug("parameter mapped", "name", d.Name, "mode", "float")
		} else {
			t.logger.Debug("parameter mapped",
				"name", d.Name, "mode", "packed",
				"bits", d.NumBits, "signed", d.NegAddress != "")
		}
	}
}

// Package params maintains the adaptive encoding table: which OSC
// addresses the current avatar accepts for each expression channel, and
// how each channel is transmitted (direct float or bit-packed booleans
// with an optional sign parameter).
package params

import (
	"math"

	"github.com/c360/facebridge/bundle"
)

// MaxBits bounds the bit-packed precision an avatar can declare.
const MaxBits = 8

// directThreshold is the minimum change worth retransmitting in direct
// float mode.
const directThreshold = 0.01

// Descriptor describes how one expression channel reaches the consumer.
// Discovery fills the address fields; Encode maintains the diff caches.
type Descriptor struct {
	// Name is the canonical channel name the addresses resolved to.
	Name string

	// MainAddress, when set, selects direct float mode and the other
	// address fields are ignored.
	MainAddress string

	// NegAddress carries the value's sign when the avatar packs the
	// magnitude into unsigned bits.
	NegAddress string

	// BitAddresses[k] carries bit k of the quantized magnitude.
	BitAddresses [MaxBits]string

	// NumBits is the declared precision: one more than the highest
	// bit index seen during discovery.
	NumBits int

	// Diff caches. Valid flags distinguish "never sent" from a cached
	// zero so the first encode always transmits.
	lastValue  float32
	valueValid bool
	lastNeg    bool
	negValid   bool
	lastBits   [MaxBits]bool
	bitsValid  bool
}

// Encode appends the messages needed to bring the consumer's copy of
// the channel up to date with value.
func (d *Descriptor) Encode(value float32, b *bundle.Bundle) {
	if d.MainAddress != "" {
		if d.valueValid && abs32(value-d.lastValue) <= directThreshold {
			return
		}
		b.SendParameter(d.MainAddress, value)
		d.lastValue = value
		d.valueValid = true
		return
	}

	if d.NumBits == 0 {
		return
	}

	if d.NegAddress != "" {
		neg := value < 0
		if !d.negValid || neg != d.lastNeg {
			b.SendParameter(d.NegAddress, neg)
			d.lastNeg = neg
			d.negValid = true
		}
		if neg {
			value = -value
		}
	} else if value < 0 {
		value = 0
	}

	maxQ := (1 << d.NumBits) - 1
	q := int(math.Round(float64(value) * float64(maxQ)))
	if q < 0 {
		q = 0
	} else if q > maxQ {
		q = maxQ
	}

	for i := 0; i < d.NumBits && i < MaxBits; i++ {
		if d.BitAddresses[i] == "" {
			continue
		}
		bit := q&(1<<i) != 0
		if d.bitsValid && d.lastBits[i] == bit {
			continue
		}
		b.SendParameter(d.BitAddresses[i], bit)
		d.lastBits[i] = bit
	}
	d.bitsValid = true
}

// Direct reports whether the channel transmits as a plain float.
func (d *Descriptor) Direct() bool { return d.MainAddress != "" }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

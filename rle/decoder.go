package rle

import "github.com/anthropics/rlestream/bitstream"

// Decoder pulls values one at a time from a hybrid RLE stream, expanding
// literal and repeated runs transparently. The stream does not carry the
// logical value count, so exhaustion, truncation, and malformed indicators
// all surface the same way: Get returns false.
type Decoder struct {
	bitWidth int
	r        bitstream.Reader

	// Active run. At most one of repeatCount and literalCount is nonzero
	// between calls.
	currentValue uint64
	repeatCount  int
	literalCount int
}

// NewDecoder returns a Decoder reading bitWidth-wide values from buf.
// The buffer is treated as immutable input and must outlive the Decoder.
// bitWidth must be in [0, 64].
func NewDecoder(buf []byte, bitWidth int) *Decoder {
	d := &Decoder{}
	d.Reset(buf, bitWidth)
	return d
}

// Reset re-points the Decoder at a new buffer and bit width, discarding
// any in-progress run. A zero-value Decoder is usable after Reset.
func (d *Decoder) Reset(buf []byte, bitWidth int) {
	if bitWidth < 0 || bitWidth > 64 {
		panic("rle: bit width out of range")
	}
	d.bitWidth = bitWidth
	d.r.Reset(buf)
	d.currentValue = 0
	d.repeatCount = 0
	d.literalCount = 0
}

// Get returns the next value. It returns false when the stream is
// exhausted.
func (d *Decoder) Get() (uint64, bool) {
	// The shape of this check is deliberate: one comparison guards each
	// hot path, and the run-transition branch stays out of the way.
	if d.repeatCount == 0 {
		if d.literalCount == 0 {
			if !d.nextCounts() {
				return 0, false
			}
		}
	}

	if d.repeatCount > 0 {
		d.repeatCount--
		return d.currentValue, true
	}

	assert(d.literalCount > 0, "no active run after nextCounts")
	v, ok := d.r.GetValue(d.bitWidth)
	if !ok {
		return 0, false
	}
	d.literalCount--
	return v, true
}

// GetBatch fills out with decoded values and returns how many were
// produced; a short count means the stream ran out.
func (d *Decoder) GetBatch(out []uint64) int {
	for i := range out {
		v, ok := d.Get()
		if !ok {
			return i
		}
		out[i] = v
	}
	return len(out)
}

// nextCounts reads the next run's indicator and primes repeatCount or
// literalCount. It returns false at end of stream or on a malformed
// indicator (zero count, or a repeated value cut short).
func (d *Decoder) nextCounts() bool {
	indicator, ok := d.r.GetVlqInt()
	if !ok {
		return false
	}

	if indicator&1 == 1 {
		d.literalCount = int(indicator>>1) * 8
		return d.literalCount != 0
	}

	d.repeatCount = int(indicator >> 1)
	if d.repeatCount == 0 {
		return false
	}
	v, ok := d.r.GetAligned(bytesFor(d.bitWidth))
	if !ok {
		d.repeatCount = 0
		return false
	}
	d.currentValue = v
	return true
}

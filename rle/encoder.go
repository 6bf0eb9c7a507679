package rle

import "github.com/anthropics/rlestream/bitstream"

// Encoder incrementally builds a hybrid RLE stream in a preallocated
// buffer. Values arrive one at a time through Put; Flush finalizes the
// stream. The Encoder never allocates and never writes past the buffer:
// once the remaining capacity cannot hold another worst-case run it goes
// sticky-full and rejects further values.
type Encoder struct {
	bitWidth int
	w        *bitstream.Writer

	// Sticky once the next worst-case run no longer fits. Checked after
	// every run flush so the inner packing loops need no per-value bounds
	// checks.
	bufferFull     bool
	maxRunByteSize int

	// Up to one group of values awaiting the literal-vs-repeat decision.
	buffered    [8]uint64
	numBuffered int

	// Last value seen and the length of its trailing repetition.
	// Maintained even inside a literal run so a long enough repeat can
	// switch modes.
	currentValue uint64
	repeatCount  int

	// Values already committed to the open literal run, always a multiple
	// of 8. Excludes buffered: only once a group is complete do we know
	// whether it extends the literal run or starts a repeat.
	literalCount int

	// Offset of the reserved indicator byte, -1 while no literal run is
	// open. Reserved as soon as a literal run starts, patched when the run
	// closes and its group count is known.
	indicatorOffset int
}

// NewEncoder returns an Encoder writing bitWidth-wide values into buf.
// The buffer is borrowed for the Encoder's lifetime and must be at least
// MinBufferSize(bitWidth) bytes. bitWidth must be in [0, 64].
func NewEncoder(buf []byte, bitWidth int) *Encoder {
	if bitWidth < 0 || bitWidth > 64 {
		panic("rle: bit width out of range")
	}
	if len(buf) < MinBufferSize(bitWidth) {
		panic("rle: buffer smaller than MinBufferSize")
	}
	e := &Encoder{
		bitWidth:       bitWidth,
		w:              bitstream.NewWriter(buf),
		maxRunByteSize: MinBufferSize(bitWidth),
	}
	e.Clear()
	return e
}

// Put offers the next value, which must be representable in bitWidth
// bits. It returns false once the buffer is full; the value is then not
// recorded and the caller should finalize this buffer and start another.
// Every accepted value is guaranteed to fit through Flush.
func (e *Encoder) Put(value uint64) bool {
	assert(e.bitWidth == 64 || value < 1<<uint(e.bitWidth), "value wider than bit width")
	if e.bufferFull {
		return false
	}

	if e.currentValue == value {
		e.repeatCount++
		if e.repeatCount > 8 {
			// Continuation of a long repeated run; the value is already
			// accounted for by repeatCount. This is the fast path.
			return true
		}
	} else {
		if e.repeatCount >= 8 {
			// The run was long enough to encode as a repeat, and it just
			// ended.
			assert(e.literalCount == 0, "literal run open across a repeated run")
			e.flushRepeatedRun()
		}
		e.repeatCount = 1
		e.currentValue = value
	}

	e.buffered[e.numBuffered] = value
	e.numBuffered++
	if e.numBuffered == 8 {
		assert(e.literalCount%8 == 0, "literal count misaligned")
		e.flushBufferedValues(false)
	}
	return true
}

// flushBufferedValues decides, at a full 8-value group (or at
// finalization), whether the buffered group belongs to a repeated or a
// literal run. done forces the open literal run closed.
func (e *Encoder) flushBufferedValues(done bool) {
	if e.repeatCount >= 8 {
		// The buffered values are the head of the repeated run; drop them
		// so they are not also written as literals.
		e.numBuffered = 0
		if e.literalCount != 0 {
			// The open literal run ends here; its values are all written,
			// only the indicator is outstanding.
			e.flushLiteralRun(true)
		}
		return
	}

	e.literalCount += e.numBuffered
	numGroups := e.literalCount / 8
	if numGroups+1 >= 1<<6 {
		// Another group would overflow the single reserved indicator
		// byte; close the run now.
		e.flushLiteralRun(true)
	} else {
		e.flushLiteralRun(done)
	}
	e.repeatCount = 0
}

// flushLiteralRun writes the buffered values as bit-packed literals. When
// updateIndicator is set the run is complete: the reserved indicator byte
// is patched with the final group count and the run is closed.
func (e *Encoder) flushLiteralRun(updateIndicator bool) {
	if e.indicatorOffset < 0 {
		off, ok := e.w.ReserveByte()
		assert(ok, "indicator reservation failed despite capacity check")
		e.indicatorOffset = off
	}

	for i := 0; i < e.numBuffered; i++ {
		ok := e.w.PutValue(e.buffered[i], e.bitWidth)
		assert(ok, "literal write failed despite capacity check")
	}
	e.numBuffered = 0

	if updateIndicator {
		numGroups := e.literalCount / 8
		assert(numGroups <= maxGroupsPerLiteralRun, "group count overflows indicator byte")
		e.w.WriteAt(e.indicatorOffset, byte(numGroups<<1|1))
		e.indicatorOffset = -1
		e.literalCount = 0
		e.checkBufferFull()
	}
}

// flushRepeatedRun emits the current repeat as an indicator VLQ followed
// by the value padded to a byte boundary.
func (e *Encoder) flushRepeatedRun() {
	assert(e.repeatCount > 0, "empty repeated run")
	ok := e.w.PutVlqInt(uint32(e.repeatCount) << 1)
	ok = e.w.PutAligned(e.currentValue, bytesFor(e.bitWidth)) && ok
	assert(ok, "repeated run write failed despite capacity check")
	e.numBuffered = 0
	e.repeatCount = 0
	e.checkBufferFull()
}

// Flush commits all pending state and returns the total byte length of
// the stream. It is called once, after the last Put, and Put is not called
// again until Clear. The Encoder does not detect a Put after Flush, not
// even under debugAsserts.
func (e *Encoder) Flush() int {
	if e.literalCount > 0 || e.repeatCount > 0 || e.numBuffered > 0 {
		allRepeat := e.literalCount == 0 &&
			(e.repeatCount == e.numBuffered || e.numBuffered == 0)
		if e.repeatCount > 0 && allRepeat {
			e.flushRepeatedRun()
		} else {
			assert(e.literalCount%8 == 0, "literal count misaligned")
			// Pad the final group to 8 with zeros.
			for e.numBuffered != 0 && e.numBuffered < 8 {
				e.buffered[e.numBuffered] = 0
				e.numBuffered++
			}
			e.literalCount += e.numBuffered
			e.flushLiteralRun(true)
			e.repeatCount = 0
		}
	}
	e.w.Flush()
	return e.w.BytesWritten()
}

// checkBufferFull marks the Encoder full when the next worst-case run
// could overrun the buffer. Deliberately pessimistic: reserving a whole
// run up front is what lets the write paths skip per-value bounds checks.
func (e *Encoder) checkBufferFull() {
	if e.w.BytesWritten()+e.maxRunByteSize > e.w.Cap() {
		e.bufferFull = true
	}
}

// Clear resets the Encoder, including a sticky-full condition, for reuse
// over the same buffer.
func (e *Encoder) Clear() {
	e.bufferFull = false
	e.currentValue = 0
	e.repeatCount = 0
	e.numBuffered = 0
	e.literalCount = 0
	e.indicatorOffset = -1
	e.w.Clear()
}

// Buffer returns the underlying output buffer.
func (e *Encoder) Buffer() []byte {
	return e.w.Buffer()
}

// Len returns the number of bytes written so far, counting any partial
// trailing byte.
func (e *Encoder) Len() int {
	return e.w.BytesWritten()
}

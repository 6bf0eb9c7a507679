// Package rle implements hybrid run-length / bit-packed encoding for
// sequences of fixed-width unsigned integers, the storage format used by
// columnar data pages for definition levels, repetition levels, dictionary
// indices, and booleans.
//
// A stream is a back-to-back concatenation of runs. Each run opens with a
// VLQ indicator whose least-significant bit selects the run type:
//
//	encoded-block := run*
//	run           := literal-run | repeated-run
//	literal-run   := vlq(numGroups<<1 | 1) <numGroups groups of 8 bit-packed values>
//	repeated-run  := vlq(numRepeats<<1)    <one value, padded to a byte boundary>
//
// Literal bodies pack values LSB-first with no padding between groups, so
// a group always ends on a byte boundary regardless of bit width; repeated
// bodies are little-endian and byte-aligned for single-load decoding. The
// final literal group of a stream may hold fewer than 8 logical values,
// padded with zeros. The stream alone does not carry the logical value
// count; the caller conveys it out of band.
//
// The Encoder buffers 8 values at a time to decide between the two run
// types; sufficiently long repeats bypass the buffer entirely. Neither the
// Encoder nor the Decoder allocates: both operate over caller-owned
// buffers, and neither is safe for concurrent use.
package rle

import "github.com/anthropics/rlestream/bitstream"

const (
	// A literal run's single reserved indicator byte holds the literal flag
	// in bit 0 and the group count in bits 1-6 (bit 7 is the VLQ
	// continuation bit), capping a run at 63 groups.
	maxGroupsPerLiteralRun = 1<<6 - 1
	maxValuesPerLiteralRun = maxGroupsPerLiteralRun * 8
)

// debugAsserts gates contract checks that would slow the hot paths.
// Production builds keep it off; flip it on for fuzzing and bring-up.
const debugAsserts = false

func assert(cond bool, msg string) {
	if debugAsserts && !cond {
		panic("rle: " + msg)
	}
}

// MinBufferSize returns the smallest output buffer usable with an Encoder
// of the given bit width: the worst-case byte size of a single run, either
// a full literal run behind a one-byte indicator or a maximal repeated run
// behind a full-width VLQ.
func MinBufferSize(bitWidth int) int {
	maxLiteralRunSize := 1 + bytesFor(maxValuesPerLiteralRun*bitWidth)
	maxRepeatedRunSize := bitstream.MaxVLQByteLen + bytesFor(bitWidth)
	return max(maxLiteralRunSize, maxRepeatedRunSize)
}

// MaxBufferSize returns an upper bound on the encoded size of numValues
// values at the given bit width, whatever their arrangement.
//
// The Encoder keeps room for one worst-case run in reserve, so a buffer of
// exactly this size can go full before numValues values are accepted;
// MaxBufferSize(bitWidth, numValues) + MinBufferSize(bitWidth) bytes
// accept them all.
func MaxBufferSize(bitWidth, numValues int) int {
	numGroups := (numValues + 7) / 8

	// Worst literal layout: every group of 8 values is its own literal run
	// (as when single literal groups alternate with short repeats), paying
	// an indicator byte on top of bitWidth bytes of packed values.
	literalMax := numGroups * (1 + bitWidth)

	// Worst repetition, not best: a concatenation of repeated runs of
	// exactly 8 values, each paying an indicator byte plus the padded
	// value. It equals the literal bound at width 0 and is below it at
	// every other width.
	minRepeatedRunSize := 1 + bytesFor(bitWidth)
	repeatedMax := numGroups * minRepeatedRunSize

	return max(literalMax, repeatedMax, MinBufferSize(bitWidth))
}

func bytesFor(bits int) int {
	return (bits + 7) / 8
}

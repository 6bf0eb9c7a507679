package rle

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func maxValue(bitWidth int) uint64 {
	if bitWidth >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(bitWidth) - 1
}

func TestRoundTripAcrossWidths(t *testing.T) {
	widths := []int{1, 2, 3, 4, 5, 7, 8, 10, 13, 16, 20, 24, 32, 48, 64}
	rng := rand.New(rand.NewSource(42))

	for _, bw := range widths {
		bw := bw
		t.Run(fmt.Sprintf("width_%d", bw), func(t *testing.T) {
			patterns := map[string][]uint64{
				"constant":   repeated(maxValue(bw), 1000),
				"sequential": make([]uint64, 1000),
				"random":     make([]uint64, 1000),
				"runs":       make([]uint64, 1000),
			}
			for i := range patterns["sequential"] {
				patterns["sequential"][i] = uint64(i) & maxValue(bw)
			}
			for i := range patterns["random"] {
				patterns["random"][i] = rng.Uint64() & maxValue(bw)
			}
			// Mixed short and long runs exercise both mode switches.
			v := uint64(0)
			for i := range patterns["runs"] {
				if i%17 == 0 {
					v = rng.Uint64() & maxValue(bw)
				}
				patterns["runs"][i] = v
			}

			for name, values := range patterns {
				data := encodeAll(t, bw, values)
				require.Equal(t, values, decodeAll(t, bw, data, len(values)),
					"pattern %q", name)
			}
		})
	}
}

func TestRoundTripZeroBitWidth(t *testing.T) {
	for _, n := range []int{1, 8, 100, 5000} {
		data := encodeAll(t, 0, repeated(0, n))
		require.Equal(t, repeated(0, n), decodeAll(t, 0, data, n), "n=%d", n)
	}
}

func TestRoundTripShortSequences(t *testing.T) {
	// Lengths around the group size cover literal tail padding.
	rng := rand.New(rand.NewSource(7))
	for n := 0; n <= 20; n++ {
		values := make([]uint64, n)
		for i := range values {
			values[i] = rng.Uint64() & 0x7
		}
		data := encodeAll(t, 3, values)
		require.Equal(t, values, decodeAll(t, 3, data, n), "n=%d", n)

		if n == 0 {
			require.Empty(t, data)
			dec := NewDecoder(data, 3)
			_, ok := dec.Get()
			require.False(t, ok)
		}
	}
}

func TestRoundTripRepeatBoundaryAtFlush(t *testing.T) {
	// The finalize path classifies pending values as one repeat when the
	// trailing repetition covers the whole buffer. Pin the boundary at
	// repetition lengths around the group size, with and without a mixed
	// prefix.
	prefixes := [][]uint64{
		nil,
		{1, 2, 3},
		{1, 2, 3, 4, 5},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	}
	for _, k := range []int{1, 2, 7, 8, 9, 15, 16, 17} {
		for pi, prefix := range prefixes {
			values := append(append([]uint64{}, prefix...), repeated(6, k)...)
			data := encodeAll(t, 4, values)
			require.Equal(t, values, decodeAll(t, 4, data, len(values)),
				"k=%d prefix=%d", k, pi)
		}
	}
}

func TestRoundTripLargeMixed(t *testing.T) {
	// Long stretches of every mode back to back, spanning many runs and
	// several literal-run closures.
	var values []uint64
	values = append(values, repeated(3, 1000)...)
	for i := 0; i < 1200; i++ {
		values = append(values, uint64(i%31))
	}
	values = append(values, repeated(0, 9)...)
	for i := 0; i < 600; i++ {
		values = append(values, uint64(i%2))
	}

	data := encodeAll(t, 5, values)
	require.Equal(t, values, decodeAll(t, 5, data, len(values)))
}

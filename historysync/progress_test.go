// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ref(height int32) BlockRef {
	return BlockRef{Height: height}
}

// TestProgressStep ensures the notification step is a thousandth of the
// catch-up distance with a floor of ten blocks.
func TestProgressStep(t *testing.T) {
	tests := []struct {
		local, remote int32
		want          int32
	}{
		{0, 25, 10},
		{-1, 0, 10},
		{0, 9999, 10},
		{0, 20000, 20},
		{100000, 800000, 700},
		{500, 100, 10},
	}

	for i, test := range tests {
		got := progressStep(ref(test.local), ref(test.remote))
		require.Equal(t, test.want, got, "test #%d", i)
	}
}

// TestProgressValue ensures the completion value is rendered with six
// decimals, clamped and defined for a remote chain at height zero.
func TestProgressValue(t *testing.T) {
	tests := []struct {
		local, remote int32
		want          string
	}{
		{0, 25, "0.000000"},
		{10, 25, "0.400000"},
		{1, 3, "0.333333"},
		{25, 25, "1.000000"},
		{30, 25, "1.000000"},
		{-1, 25, "0.000000"},
		{-1, 0, "0.000000"},
		{0, 0, "1.000000"},
	}

	for i, test := range tests {
		got := progressValue(ref(test.local), ref(test.remote))
		require.Equal(t, test.want, got, "test #%d", i)
	}
}

// TestProgressThrottle ensures notifications fire only once the local height
// advanced by a full step and that each crossing fires once.
func TestProgressThrottle(t *testing.T) {
	remote := ref(25)
	p := newProgressTracker(ref(0), remote)
	require.EqualValues(t, 10, p.step)
	require.EqualValues(t, 0, p.latest)
	require.Empty(t, p.value)

	var fired []string
	for h := int32(1); h <= 25; h++ {
		if p.update(ref(h), remote) {
			fired = append(fired, p.value)
			require.Equal(t, h, p.latest)
		}
		if h < 10 {
			require.Empty(t, fired, "height %d", h)
		}
	}
	require.Equal(t, []string{"0.400000", "0.800000", "1.000000"}, fired)
}

// TestProgressComplete ensures a complete value always fires, even without
// a full step of advancement.
func TestProgressComplete(t *testing.T) {
	p := newProgressTracker(ref(20), ref(25))
	require.False(t, p.update(ref(21), ref(25)))
	require.True(t, p.update(ref(21), ref(21)))
	require.Equal(t, progressComplete, p.value)
	require.True(t, p.update(ref(21), ref(21)))
}

// TestProgressMonotonic ensures the value never decreases while the local
// tip advances toward a fixed remote tip.
func TestProgressMonotonic(t *testing.T) {
	remote := ref(777)
	p := newProgressTracker(ref(0), remote)

	last := progressNone
	for h := int32(0); h <= remote.Height; h++ {
		p.update(ref(h), remote)
		require.GreaterOrEqual(t, p.value, last)
		last = p.value
	}
	require.Equal(t, progressComplete, last)
}

// TestProgressEmptyStore ensures an empty store against a genesis only chain
// never divides by zero.
func TestProgressEmptyStore(t *testing.T) {
	p := newProgressTracker(EmptyBlockRef, ref(0))
	require.False(t, p.update(EmptyBlockRef, ref(0)))
	require.Equal(t, progressNone, p.value)
	require.True(t, p.update(ref(0), ref(0)))
	require.Equal(t, progressComplete, p.value)
}

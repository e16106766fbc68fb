package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateQuarterTurnCycles(t *testing.T) {
	s := DefaultTransformState()

	want := []int{90, 180, 270, 0}
	for i, w := range want {
		got := s.RotateQuarterTurn()
		assert.Equal(t, w, got.Rotation, "turn %d", i+1)
	}
	assert.True(t, s.IsIdentity())
}

func TestRotateNormalizesTurns(t *testing.T) {
	tests := []struct {
		name  string
		start int
		turns int
		want  int
	}{
		{name: "one", start: 0, turns: 1, want: 90},
		{name: "five", start: 0, turns: 5, want: 90},
		{name: "counter-clockwise", start: 0, turns: -1, want: 270},
		{name: "wraps from 270", start: 270, turns: 2, want: 90},
		{name: "zero", start: 180, turns: 0, want: 180},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultTransformState()
			s.Rotation = tc.start
			assert.Equal(t, tc.want, s.Rotate(tc.turns).Rotation)
			require.NoError(t, s.Validate())
		})
	}
}

func TestToggleFlipIsInvolution(t *testing.T) {
	s := DefaultTransformState()
	assert.True(t, s.ToggleFlip().Flipped)
	assert.False(t, s.ToggleFlip().Flipped)
}

func TestSetToneRejectsNegative(t *testing.T) {
	s := DefaultTransformState()

	_, err := s.SetBrightness(-1)
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = s.SetContrast(-5)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, DefaultTransformState(), s)

	got, err := s.SetBrightness(400)
	require.NoError(t, err)
	assert.Equal(t, 400, got.Brightness, "no upper clamp")
}

func TestToneIsCommutative(t *testing.T) {
	a := DefaultTransformState()
	_, err := a.SetBrightness(150)
	require.NoError(t, err)
	_, err = a.SetContrast(120)
	require.NoError(t, err)

	b := DefaultTransformState()
	_, err = b.SetContrast(120)
	require.NoError(t, err)
	_, err = b.SetBrightness(150)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.InDelta(t, 1.8, a.ToneFactor(), 1e-9)
}

func TestSettingSameValueTwiceChangesNothing(t *testing.T) {
	s := DefaultTransformState()
	first, err := s.SetBrightness(80)
	require.NoError(t, err)
	second, err := s.SetBrightness(80)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultTransformState().Validate())

	bad := []TransformState{
		{Rotation: 45, Brightness: 100, Contrast: 100},
		{Rotation: 360, Brightness: 100, Contrast: 100},
		{Rotation: 0, Brightness: -1, Contrast: 100},
		{Rotation: 0, Brightness: 100, Contrast: -1},
	}
	for _, s := range bad {
		require.ErrorIs(t, s.Validate(), ErrInvalidParameter, "%+v", s)
	}
}

func TestSwapsAxes(t *testing.T) {
	for rotation, want := range map[int]bool{0: false, 90: true, 180: false, 270: true} {
		s := TransformState{Rotation: rotation}
		assert.Equal(t, want, s.SwapsAxes(), "rotation %d", rotation)
	}
}

package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIdentityMatchesSource(t *testing.T) {
	src := testSource(7, 5)

	out := Render(src, domain.DefaultTransformState())

	require.Equal(t, src.Image.Bounds(), out.Image.Bounds())
	assert.Equal(t, src.Image.Pix, out.Image.Pix)
	assert.NotSame(t, &src.Image.Pix[0], &out.Image.Pix[0], "render must not alias the source")
}

func TestRenderGeometryMatchesImaging(t *testing.T) {
	src := testSource(6, 4)

	tests := []struct {
		name    string
		turns   int
		flipped bool
		want    *image.NRGBA
	}{
		{name: "rotate 90", turns: 1, want: imaging.Rotate270(src.Image)},
		{name: "rotate 180", turns: 2, want: imaging.Rotate180(src.Image)},
		{name: "rotate 270", turns: 3, want: imaging.Rotate90(src.Image)},
		{name: "flip", flipped: true, want: imaging.FlipH(src.Image)},
		{name: "flip rotate 90", turns: 1, flipped: true, want: imaging.Rotate270(imaging.FlipH(src.Image))},
		{name: "flip rotate 180", turns: 2, flipped: true, want: imaging.FlipV(src.Image)},
		{name: "flip rotate 270", turns: 3, flipped: true, want: imaging.Rotate90(imaging.FlipH(src.Image))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state := domain.DefaultTransformState()
			state.Rotate(tc.turns)
			state.Flipped = tc.flipped

			out := Render(src, state)
			require.Equal(t, tc.want.Bounds(), out.Image.Bounds())
			assert.Equal(t, tc.want.Pix, out.Image.Pix)
		})
	}
}

func TestRenderRotate90Clockwise(t *testing.T) {
	src := testSource(100, 50)
	state := domain.DefaultTransformState()
	state.RotateQuarterTurn()

	out := Render(src, state)

	assert.Equal(t, 50, out.Width())
	assert.Equal(t, 100, out.Height())
	// The source's top-left pixel ends up in the top-right corner.
	assert.Equal(t, src.Image.NRGBAAt(0, 0), out.Image.NRGBAAt(49, 0))
	assert.Equal(t, src.Image.NRGBAAt(99, 49), out.Image.NRGBAAt(0, 99))
}

func TestRenderToneClampsAndKeepsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 10, A: 128})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 255, B: 50, A: 255})
	src := domain.PixelSource{Image: img}

	state := domain.DefaultTransformState()
	_, err := state.SetBrightness(150)
	require.NoError(t, err)
	_, err = state.SetContrast(120)
	require.NoError(t, err)

	out := Render(src, state)

	assert.Equal(t, color.NRGBA{R: 255, G: 180, B: 18, A: 128}, out.Image.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 90, A: 255}, out.Image.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 10, A: 128}, src.Image.NRGBAAt(0, 0), "source untouched")
}

func TestRenderToneZeroBlackens(t *testing.T) {
	src := testSource(3, 3)
	state := domain.DefaultTransformState()
	_, err := state.SetBrightness(0)
	require.NoError(t, err)

	out := Render(src, state)
	for i := 0; i < len(out.Image.Pix); i += 4 {
		assert.Equal(t, []uint8{0, 0, 0, 255}, out.Image.Pix[i:i+4])
	}
}

func TestRenderToneOrderIndependent(t *testing.T) {
	src := testSource(8, 8)

	a := domain.DefaultTransformState()
	_, _ = a.SetBrightness(150)
	_, _ = a.SetContrast(120)

	b := domain.DefaultTransformState()
	_, _ = b.SetContrast(120)
	_, _ = b.SetBrightness(150)

	assert.Equal(t, Render(src, a).Image.Pix, Render(src, b).Image.Pix)
}

func TestRenderIsDeterministic(t *testing.T) {
	src := testSource(9, 4)
	state := domain.DefaultTransformState()
	state.RotateQuarterTurn()
	state.ToggleFlip()
	_, _ = state.SetContrast(80)

	first := Render(src, state)
	second := Render(src, state)
	assert.Equal(t, first.Image.Pix, second.Image.Pix)
	assert.Equal(t, state, first.State)
}

func TestRenderFullCycleReturnsSource(t *testing.T) {
	src := testSource(5, 3)
	state := domain.DefaultTransformState()
	for i := 0; i < 4; i++ {
		state.RotateQuarterTurn()
	}
	state.ToggleFlip()
	state.ToggleFlip()

	assert.Equal(t, src.Image.Pix, Render(src, state).Image.Pix)
}

func TestOutputBounds(t *testing.T) {
	state := domain.DefaultTransformState()
	assert.Equal(t, image.Rect(0, 0, 100, 50), OutputBounds(100, 50, state))
	state.RotateQuarterTurn()
	assert.Equal(t, image.Rect(0, 0, 50, 100), OutputBounds(100, 50, state))
}

func testSource(w, h int) domain.PixelSource {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: uint8((x*31 + y*17) % 256),
				A: 255,
			})
		}
	}
	return domain.PixelSource{Image: img, Format: domain.FormatPNG}
}

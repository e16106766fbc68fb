package pipeline

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/pixeledit/internal/domain"
	"golang.org/x/image/math/f64"
)

// Render applies state to source and returns a new buffer. The result depends
// only on its two arguments; the source image is never written.
func Render(source domain.PixelSource, state domain.TransformState) domain.RenderedBuffer {
	out := renderGeometry(source.Image, state)
	if state.HasTone() {
		out = applyTone(out, state.ToneFactor())
	}
	return domain.RenderedBuffer{Image: out, State: state}
}

// OutputBounds is the rendered bounding box for a source of size w x h.
func OutputBounds(w, h int, state domain.TransformState) image.Rectangle {
	if state.SwapsAxes() {
		w, h = h, w
	}
	return image.Rect(0, 0, w, h)
}

// renderGeometry samples every destination pixel centre from the source
// through the inverse of T(dstCentre) * R(theta) * S(flip) * T(-srcCentre).
func renderGeometry(src *image.NRGBA, state domain.TransformState) *image.NRGBA {
	sb := src.Bounds()
	srcW, srcH := sb.Dx(), sb.Dy()
	dst := image.NewNRGBA(OutputBounds(srcW, srcH, state))
	dstW, dstH := dst.Rect.Dx(), dst.Rect.Dy()

	inv := inverseTransform(srcW, srcH, dstW, dstH, state)

	for dy := 0; dy < dstH; dy++ {
		py := float64(dy) + 0.5
		row := dst.PixOffset(0, dy)
		for dx := 0; dx < dstW; dx++ {
			px := float64(dx) + 0.5
			sx := int(math.Floor(inv[0]*px + inv[1]*py + inv[2]))
			sy := int(math.Floor(inv[3]*px + inv[4]*py + inv[5]))
			if sx < 0 || sy < 0 || sx >= srcW || sy >= srcH {
				continue
			}
			si := src.PixOffset(sb.Min.X+sx, sb.Min.Y+sy)
			di := row + dx*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

func inverseTransform(srcW, srcH, dstW, dstH int, state domain.TransformState) f64.Aff3 {
	m := translate(float64(srcW)/2, float64(srcH)/2)
	if state.Flipped {
		m = multiply(m, scale(-1, 1))
	}
	m = multiply(m, rotate(-state.QuarterTurns()))
	return multiply(m, translate(-float64(dstW)/2, -float64(dstH)/2))
}

// quarterTurnSinCos is exact so sampling lands on pixel centres.
var quarterTurnSinCos = [4][2]float64{
	{0, 1},
	{1, 0},
	{0, -1},
	{-1, 0},
}

// rotate returns a clockwise rotation by n quarter turns in y-down space.
func rotate(n int) f64.Aff3 {
	sc := quarterTurnSinCos[((n%4)+4)%4]
	sin, cos := sc[0], sc[1]
	return f64.Aff3{
		cos, -sin, 0,
		sin, cos, 0,
	}
}

func translate(tx, ty float64) f64.Aff3 {
	return f64.Aff3{
		1, 0, tx,
		0, 1, ty,
	}
}

func scale(sx, sy float64) f64.Aff3 {
	return f64.Aff3{
		sx, 0, 0,
		0, sy, 0,
	}
}

// multiply returns a*b, the transform that applies b first.
func multiply(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// applyTone scales R, G and B by factor and clamps to [0,255]. Alpha is kept.
func applyTone(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: scaleChannel(c.R, factor),
			G: scaleChannel(c.G, factor),
			B: scaleChannel(c.B, factor),
			A: c.A,
		}
	})
}

func scaleChannel(v uint8, factor float64) uint8 {
	scaled := math.Round(float64(v) * factor)
	if scaled > 255 {
		return 255
	}
	if scaled < 0 {
		return 0
	}
	return uint8(scaled)
}

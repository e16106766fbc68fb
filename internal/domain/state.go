package domain

import "fmt"

const (
	DefaultBrightness = 100
	DefaultContrast   = 100
)

// TransformState is the composed set of edits applied to the current image.
// Rotation is clockwise degrees, always one of 0, 90, 180 or 270.
type TransformState struct {
	Rotation   int  `json:"rotation"`
	Flipped    bool `json:"flipped"`
	Brightness int  `json:"brightness"`
	Contrast   int  `json:"contrast"`
}

func DefaultTransformState() TransformState {
	return TransformState{
		Brightness: DefaultBrightness,
		Contrast:   DefaultContrast,
	}
}

func (s *TransformState) Reset() TransformState {
	*s = DefaultTransformState()
	return *s
}

func (s *TransformState) RotateQuarterTurn() TransformState {
	s.Rotation = (s.Rotation + 90) % 360
	return *s
}

// Rotate applies n clockwise quarter turns; negative n turns counter-clockwise.
func (s *TransformState) Rotate(n int) TransformState {
	turns := ((n % 4) + 4) % 4
	s.Rotation = (s.Rotation + turns*90) % 360
	return *s
}

func (s *TransformState) ToggleFlip() TransformState {
	s.Flipped = !s.Flipped
	return *s
}

func (s *TransformState) SetBrightness(pct int) (TransformState, error) {
	if pct < 0 {
		return *s, fmt.Errorf("%w: brightness must be >= 0, got %d", ErrInvalidParameter, pct)
	}
	s.Brightness = pct
	return *s, nil
}

func (s *TransformState) SetContrast(pct int) (TransformState, error) {
	if pct < 0 {
		return *s, fmt.Errorf("%w: contrast must be >= 0, got %d", ErrInvalidParameter, pct)
	}
	s.Contrast = pct
	return *s, nil
}

// QuarterTurns returns the rotation as a count of clockwise quarter turns.
func (s TransformState) QuarterTurns() int {
	return s.Rotation / 90
}

// SwapsAxes reports whether the rendered width and height are exchanged.
func (s TransformState) SwapsAxes() bool {
	return s.Rotation == 90 || s.Rotation == 270
}

func (s TransformState) HasTone() bool {
	return s.Brightness != DefaultBrightness || s.Contrast != DefaultContrast
}

func (s TransformState) IsIdentity() bool {
	return s.Rotation == 0 && !s.Flipped && !s.HasTone()
}

// ToneFactor is the per-channel multiplier for R, G and B.
func (s TransformState) ToneFactor() float64 {
	return float64(s.Brightness) / 100 * float64(s.Contrast) / 100
}

func (s TransformState) Validate() error {
	if s.Rotation < 0 || s.Rotation >= 360 || s.Rotation%90 != 0 {
		return fmt.Errorf("%w: rotation must be a multiple of 90 in [0,360), got %d", ErrInvalidParameter, s.Rotation)
	}
	if s.Brightness < 0 {
		return fmt.Errorf("%w: brightness must be >= 0, got %d", ErrInvalidParameter, s.Brightness)
	}
	if s.Contrast < 0 {
		return fmt.Errorf("%w: contrast must be >= 0, got %d", ErrInvalidParameter, s.Contrast)
	}
	return nil
}

package captcha

import "math"

// Geometry is the puzzle layout in the server's reference resolution.
type Geometry struct {
	CanvasWidth  int
	CanvasHeight int
	PuzzleSize   int
	PuzzleY      int
}

// ScaleFactor relates the on-screen render width to the server's reference
// canvas width. It is recomputed whenever the render surface resizes. Every
// server-bound position must be converted through it; drift here breaks
// verification no matter how precisely the user dragged.
func ScaleFactor(containerWidth float64, canvasWidth int) float64 {
	if canvasWidth <= 0 || containerWidth <= 0 {
		return 1
	}
	return containerWidth / float64(canvasWidth)
}

// ToOriginal converts a scaled (on-screen) position to the server's reference
// space, rounding to the nearest pixel.
func ToOriginal(scaled, factor float64) int {
	if factor == 0 {
		return int(math.Round(scaled))
	}
	return int(math.Round(scaled / factor))
}

// ToScaled converts a reference-space position to on-screen pixels.
func ToScaled(original int, factor float64) float64 {
	return float64(original) * factor
}

// MaxScaledOffset is the largest slider offset in scaled space: the piece may
// travel the canvas width minus its own size.
func (g Geometry) MaxScaledOffset(factor float64) float64 {
	max := float64(g.CanvasWidth-g.PuzzleSize) * factor
	if max < 0 {
		return 0
	}
	return max
}

// ClampScaled bounds a scaled-space offset to the travel range.
func (g Geometry) ClampScaled(pos, factor float64) float64 {
	if pos < 0 {
		return 0
	}
	if max := g.MaxScaledOffset(factor); pos > max {
		return max
	}
	return pos
}

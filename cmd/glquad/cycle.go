//go:build cgo

package main

const colorStep = 0.05

// colorCycle sweeps red up while blue goes down, reversing direction
// once either channel leaves [0, 1].
type colorCycle struct {
	r, g, b float32
	inc     float32
}

func newColorCycle() *colorCycle {
	return &colorCycle{b: 1, inc: colorStep}
}

// Next returns the current color and advances the cycle.
func (c *colorCycle) Next() (r, g, b, a float32) {
	r, g, b, a = c.r, c.g, c.b, 1
	switch {
	case c.r > 1 || c.b > 1:
		c.inc = -colorStep
	case c.r < 0 || c.b < 0:
		c.inc = colorStep
	}
	c.r += c.inc
	c.b -= c.inc
	return r, g, b, a
}

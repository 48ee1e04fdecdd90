package slot

// Vector is a pair of scale components.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Flags holds one boolean per axis.
type Flags struct {
	X bool `json:"x"`
	Y bool `json:"y"`
}

// Mirror layers toggled flips on top of a fixed base orientation.
type Mirror struct {
	base     Vector
	mirrored Flags
}

// NewMirror returns an unmirrored vector with the given base.
func NewMirror(base Vector) Mirror {
	return Mirror{base: base}
}

// Base returns the configured orientation. It never changes.
func (m Mirror) Base() Vector { return m.base }

// Mirrored returns the toggled flags.
func (m Mirror) Mirrored() Flags { return m.mirrored }

func (m *Mirror) ToggleX() { m.mirrored.X = !m.mirrored.X }
func (m *Mirror) ToggleY() { m.mirrored.Y = !m.mirrored.Y }

// Reset clears both flags.
func (m *Mirror) Reset() { m.mirrored = Flags{} }

// X is the effective horizontal scale.
func (m Mirror) X() float64 { return flip(m.base.X, m.mirrored.X) }

// Y is the effective vertical scale.
func (m Mirror) Y() float64 { return flip(m.base.Y, m.mirrored.Y) }

func flip(v float64, mirrored bool) float64 {
	if mirrored {
		return -v
	}
	return v
}

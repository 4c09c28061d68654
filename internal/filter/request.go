package filter

// A Request selects one operation and carries its parameter.
type Request interface {
	apply(e *Engine, buf Buffer) error
	String() string
}

// Brightness requests Engine.Brightness.
type Brightness struct{ Factor float32 }

// Invert requests Engine.Invert.
type Invert struct{}

// Noise requests Engine.Noise.
type Noise struct{ Level int }

func (r Brightness) apply(e *Engine, buf Buffer) error { return e.Brightness(buf, r.Factor) }
func (Invert) apply(e *Engine, buf Buffer) error       { return e.Invert(buf) }
func (r Noise) apply(e *Engine, buf Buffer) error      { return e.Noise(buf, r.Level) }

func (Brightness) String() string { return "brightness" }
func (Invert) String() string     { return "invert" }
func (Noise) String() string      { return "noise" }

// Apply runs the operation selected by req.
func (e *Engine) Apply(buf Buffer, req Request) error {
	return req.apply(e, buf)
}

package metrics

import (
	"math"

	"github.com/san-kum/demsim/internal/sim"
)

// Contacts counts active ball-ball and ball-wall contacts at the last step.
type Contacts struct {
	name  string
	value int
}

func NewContacts() *Contacts {
	return &Contacts{name: "contacts"}
}

func (c *Contacts) Name() string { return c.name }

func (c *Contacts) Observe(f sim.Frame) {
	if f.Report == nil {
		return
	}
	c.value = f.Report.Contacts + f.Report.WallContacts
}

func (c *Contacts) Value() float64 { return float64(c.value) }
func (c *Contacts) Reset()         { c.value = 0 }

// MaxIndentation is the deepest ball-ball or ball-wall overlap seen over the run.
type MaxIndentation struct {
	name string
	max  float64
}

func NewMaxIndentation() *MaxIndentation {
	return &MaxIndentation{name: "max_indentation"}
}

func (m *MaxIndentation) Name() string { return m.name }

func (m *MaxIndentation) Observe(f sim.Frame) {
	if f.Report == nil {
		return
	}
	m.max = math.Max(m.max, math.Max(f.Report.MaxIndentation, f.Report.MaxWallIndentation))
}

func (m *MaxIndentation) Value() float64 { return m.max }
func (m *MaxIndentation) Reset()         { m.max = 0 }

// WallLoad is the mean magnitude of the force the particles put on the walls.
type WallLoad struct {
	name    string
	sum     float64
	samples int
}

func NewWallLoad() *WallLoad {
	return &WallLoad{name: "wall_load"}
}

func (w *WallLoad) Name() string { return w.name }

func (w *WallLoad) Observe(f sim.Frame) {
	if f.Mesh == nil {
		return
	}
	w.sum += f.Mesh.TotalReaction().Len()
	w.samples++
}

func (w *WallLoad) Value() float64 {
	if w.samples == 0 {
		return 0
	}
	return w.sum / float64(w.samples)
}

func (w *WallLoad) Reset() {
	w.sum = 0
	w.samples = 0
}

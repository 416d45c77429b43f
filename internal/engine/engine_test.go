package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/contact"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/search"
	"github.com/san-kum/demsim/internal/wall"
)

const young = 1e6

func testMaterial() *material.Material {
	return &material.Material{ID: 1, Density: 1000, Young: young, Poisson: 0.3}
}

func setup(t *testing.T, opts Options, ps []*particle.Particle, mesh *wall.Mesh) *Engine {
	t.Helper()
	if opts.Dt == 0 {
		opts.Dt = 1e-4
	}
	e, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	reg := contact.NewRegistry()
	reg.SetDefault(contact.New(opts.Stiffness, contact.DampingNormalTangential, nil))
	if err := e.Initialize(ps, reg, mesh); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e
}

// link gives every particle all others as neighbors, ordered by ID.
func link(ps ...*particle.Particle) {
	for _, p := range ps {
		p.Neighbors = p.Neighbors[:0]
		for _, q := range ps {
			if q != p {
				p.Neighbors = append(p.Neighbors, q)
			}
		}
	}
}

func close3(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestStep_TwoParticlesClosedForm(t *testing.T) {
	tests := []struct {
		name  string
		model material.StiffnessModel
		want  float64
	}{
		{"linear", material.Linear, young * math.Pi / 8 * 0.1},
		{"hertz", material.Hertz, 4.0 / 3.0 * young / (2 * 0.91) * math.Sqrt(0.5) * math.Pow(0.1, 1.5)},
	}

	for _, tt := range tests {
		for _, mode := range []PairMode{OneSided, BothSides} {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				m := testMaterial()
				a := particle.New(1, m, 1, mgl64.Vec3{0, 0, 0})
				b := particle.New(2, m, 1, mgl64.Vec3{1.9, 0, 0})
				link(a, b)

				e := setup(t, Options{Stiffness: tt.model, PairMode: mode}, []*particle.Particle{a, b}, nil)
				report, err := e.Step([]*particle.Particle{a, b}, dynamo.SearchPerformed)
				if err != nil {
					t.Fatal(err)
				}

				if !close3(a.Acc.Force, mgl64.Vec3{-tt.want, 0, 0}, 1e-9*tt.want) {
					t.Errorf("force on 1 = %v, want %v along -x", a.Acc.Force, tt.want)
				}
				if !close3(b.Acc.Force, mgl64.Vec3{tt.want, 0, 0}, 1e-9*tt.want) {
					t.Errorf("force on 2 = %v, want %v along +x", b.Acc.Force, tt.want)
				}
				if a.Acc.Moment != (mgl64.Vec3{}) || b.Acc.Moment != (mgl64.Vec3{}) {
					t.Errorf("moment without rotation: %v %v", a.Acc.Moment, b.Acc.Moment)
				}

				rec, _ := a.Contacts.Lookup(2)
				if rec.Elastic[1] != 0 || rec.Elastic[2] != 0 {
					t.Errorf("tangential force should be zero, elastic = %v", rec.Elastic)
				}
				if report.Contacts != 1 || math.Abs(report.MaxIndentation-0.1) > 1e-12 {
					t.Errorf("report contacts=%d max=%v", report.Contacts, report.MaxIndentation)
				}
			})
		}
	}
}

func TestStep_SeparatedRecordRetained(t *testing.T) {
	m := testMaterial()
	m.Friction = 0.5
	a := particle.New(1, m, 1, mgl64.Vec3{0, 0, 0})
	b := particle.New(2, m, 1, mgl64.Vec3{1.9, 0, 0})
	b.State.Velocity = mgl64.Vec3{0, 1, 0}
	b.State.DeltaDisplacement = mgl64.Vec3{0, 1e-4, 0}
	link(a, b)
	ps := []*particle.Particle{a, b}

	e := setup(t, Options{}, ps, nil)
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	rec, _ := a.Contacts.Lookup(2)
	if rec.Elastic[1] == 0 {
		t.Fatal("sliding neighbor should build tangential history")
	}

	b.State.Position = mgl64.Vec3{2.1, 0, 0}
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	rec, ok := a.Contacts.Lookup(2)
	if !ok {
		t.Fatal("record dropped while the search still reports the neighbor")
	}
	if rec.Elastic != (mgl64.Vec3{}) || rec.Total != (mgl64.Vec3{}) {
		t.Errorf("separated contact carries force %v / %v", rec.Elastic, rec.Total)
	}
	if a.Acc.Force != (mgl64.Vec3{}) || b.Acc.Force != (mgl64.Vec3{}) {
		t.Errorf("separated particles feel %v / %v", a.Acc.Force, b.Acc.Force)
	}

	a.Neighbors, b.Neighbors = nil, nil
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Contacts.Lookup(2); ok {
		t.Error("record survived removal from the neighbor list")
	}
}

func TestStep_ResumeMatchesContinuousRun(t *testing.T) {
	m := testMaterial()
	m.Friction = 0.5
	shear := mgl64.Vec3{0, 1e-4, 0}

	pair := func() []*particle.Particle {
		a := particle.New(1, m, 1, mgl64.Vec3{0, 0, 0})
		b := particle.New(2, m, 1, mgl64.Vec3{1.9, 0, 0})
		b.State.Velocity = mgl64.Vec3{0, 1, 0}
		link(a, b)
		return []*particle.Particle{a, b}
	}
	// stands in for the integrator: particle 2 slides by a fixed amount
	integrate := func(ps []*particle.Particle) {
		b := ps[1]
		b.State.Position = b.State.Position.Add(shear)
		b.State.DeltaDisplacement = shear
	}
	step := func(e *Engine, ps []*particle.Particle) {
		t.Helper()
		if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
			t.Fatal(err)
		}
	}

	ps := pair()
	e := setup(t, Options{}, ps, nil)
	step(e, ps)
	integrate(ps)
	step(e, ps)
	integrate(ps)
	snap := particle.Capture(ps)

	step(e, ps)
	want, _ := ps[0].Contacts.Lookup(2)

	resumed := pair()
	e2 := setup(t, Options{}, resumed, nil)
	if err := particle.Restore(resumed, snap); err != nil {
		t.Fatal(err)
	}
	step(e2, resumed)
	got, _ := resumed[0].Contacts.Lookup(2)

	if want.Elastic[1] == 0 {
		t.Fatal("continuous run built no tangential force")
	}
	if !close3(got.Elastic, want.Elastic, 1e-12*want.Elastic.Len()) {
		t.Errorf("resumed elastic = %v, continuous = %v", got.Elastic, want.Elastic)
	}
	if !close3(resumed[1].Acc.Force, ps[1].Acc.Force, 1e-12*ps[1].Acc.Force.Len()) {
		t.Errorf("resumed force = %v, continuous = %v", resumed[1].Acc.Force, ps[1].Acc.Force)
	}
}

func TestStep_BothNewSkipped(t *testing.T) {
	m := testMaterial()
	a := particle.New(1, m, 1, mgl64.Vec3{0, 0, 0})
	b := particle.New(2, m, 1, mgl64.Vec3{1.9, 0, 0})
	a.New, b.New = true, true
	link(a, b)
	ps := []*particle.Particle{a, b}

	e := setup(t, Options{}, ps, nil)
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	if a.Acc.Force != (mgl64.Vec3{}) || b.Acc.Force != (mgl64.Vec3{}) {
		t.Errorf("both new: forces %v / %v", a.Acc.Force, b.Acc.Force)
	}
	if a.New || b.New {
		t.Error("new flags should clear after a step")
	}

	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	if a.Acc.Force[0] >= 0 || b.Acc.Force[0] <= 0 {
		t.Errorf("contact not evaluated on the next step: %v / %v", a.Acc.Force, b.Acc.Force)
	}
}

func TestStep_AsymmetricNeighborEvaluatedLocally(t *testing.T) {
	m := testMaterial()
	a := particle.New(1, m, 1, mgl64.Vec3{0, 0, 0})
	b := particle.New(2, m, 1, mgl64.Vec3{1.9, 0, 0})
	b.Neighbors = []*particle.Particle{a}
	ps := []*particle.Particle{a, b}

	e := setup(t, Options{}, ps, nil)
	report, err := e.Step(ps, dynamo.SearchPerformed)
	if err != nil {
		t.Fatal(err)
	}

	want := young * math.Pi / 8 * 0.1
	if !close3(b.Acc.Force, mgl64.Vec3{want, 0, 0}, 1e-9*want) {
		t.Errorf("collector force = %v, want %v", b.Acc.Force, want)
	}
	if len(report.Diagnostics) != 1 || report.Diagnostics[0].Kind != dynamo.DiagAsymmetricNeighbor {
		t.Errorf("diagnostics = %v", report.Diagnostics)
	}
}

func TestStep_AsymmetricNeighborReportedByOwner(t *testing.T) {
	for _, mode := range []PairMode{OneSided, BothSides} {
		t.Run(mode.String(), func(t *testing.T) {
			m := testMaterial()
			a := particle.New(1, m, 1, mgl64.Vec3{0, 0, 0})
			b := particle.New(2, m, 1, mgl64.Vec3{1.9, 0, 0})
			a.Neighbors = []*particle.Particle{b}
			ps := []*particle.Particle{a, b}

			e := setup(t, Options{PairMode: mode}, ps, nil)
			report, err := e.Step(ps, dynamo.SearchPerformed)
			if err != nil {
				t.Fatal(err)
			}

			if a.Acc.Force[0] >= 0 {
				t.Errorf("owner force = %v, want repulsion along -x", a.Acc.Force)
			}
			if b.Acc.Force != (mgl64.Vec3{}) {
				t.Errorf("unlisted side got force %v", b.Acc.Force)
			}
			if len(report.Diagnostics) != 1 {
				t.Fatalf("diagnostics = %v", report.Diagnostics)
			}
			d := report.Diagnostics[0]
			if d.Kind != dynamo.DiagAsymmetricNeighbor || d.Particle != 1 || d.Neighbor != 2 {
				t.Errorf("diagnostic = %+v", d)
			}
		})
	}
}

func TestStep_DegenerateContacts(t *testing.T) {
	m := testMaterial()
	a := particle.New(1, m, 1, mgl64.Vec3{1, 1, 1})
	b := particle.New(2, m, 1, mgl64.Vec3{1, 1, 1})
	c := particle.New(3, m, 1, mgl64.Vec3{5, 0, 0})
	link(a, b)
	c.Neighbors = []*particle.Particle{c}
	ps := []*particle.Particle{a, b, c}

	e := setup(t, Options{}, ps, nil)
	report, err := e.Step(ps, dynamo.SearchPerformed)
	if err != nil {
		t.Fatalf("degeneracies must not fail the step: %v", err)
	}

	kinds := map[dynamo.DiagnosticKind]int{}
	for _, d := range report.Diagnostics {
		kinds[d.Kind]++
	}
	if kinds[dynamo.DiagCoincidentCenters] != 1 || kinds[dynamo.DiagSelfNeighbor] != 1 {
		t.Errorf("diagnostics = %v", report.Diagnostics)
	}
	for _, p := range ps {
		if p.Acc.Force != (mgl64.Vec3{}) || !geom.Finite(p.Acc.Force) {
			t.Errorf("particle %d force = %v", p.ID, p.Acc.Force)
		}
	}
}

func TestStep_NewtonThirdLaw(t *testing.T) {
	for _, mode := range []PairMode{OneSided, BothSides} {
		t.Run(mode.String(), func(t *testing.T) {
			ps := cluster()
			opts := Options{PairMode: mode, Rotation: true, RollingFriction: true, Dt: 1e-4}
			e := setup(t, opts, ps, nil)

			for step := 0; step < 5; step++ {
				if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
					t.Fatal(err)
				}

				var sum mgl64.Vec3
				for _, p := range ps {
					sum = sum.Add(p.Acc.Force)
					for i, n := range p.Neighbors {
						mine := p.Contacts.At(i)
						theirs, ok := n.Contacts.Lookup(p.ID)
						if !ok {
							t.Fatalf("pair %d-%d missing", p.ID, n.ID)
						}
						tol := 1e-9 * (1 + mine.Total.Len())
						if !close3(mine.Total, theirs.Total.Mul(-1), tol) {
							t.Errorf("step %d pair %d-%d: %v vs %v", step, p.ID, n.ID, mine.Total, theirs.Total)
						}
					}
				}
				if sum.Len() > 1e-6 {
					t.Errorf("step %d: net internal force %v", step, sum)
				}
				advance(ps, opts.Dt)
			}
		})
	}
}

func cluster() []*particle.Particle {
	m := testMaterial()
	m.Friction = 0.5
	m.LnRestitution = math.Log(0.7)
	m.RollingFriction = 0.1

	pos := []mgl64.Vec3{{0, 0, 0}, {1.8, 0.2, 0}, {0.9, 1.6, 0.1}, {1.0, 0.5, 1.5}}
	vel := []mgl64.Vec3{{0.3, 0, 0}, {-0.2, 0.1, 0}, {0, -0.4, 0.2}, {0.1, 0.1, -0.3}}
	spin := []mgl64.Vec3{{0, 0, 1}, {2, 0, 0}, {0, -1, 0.5}, {0.3, 0.3, 0.3}}

	ps := make([]*particle.Particle, len(pos))
	for i := range pos {
		p := particle.New(i+1, m, 1, pos[i])
		p.State.Velocity = vel[i]
		p.State.AngularVelocity = spin[i]
		ps[i] = p
	}
	link(ps...)
	return ps
}

func advance(ps []*particle.Particle, dt float64) {
	for _, p := range ps {
		d := p.State.Velocity.Mul(dt)
		p.State.Position = p.State.Position.Add(d)
		p.State.DeltaDisplacement = d
	}
}

func TestRollingResistance_Bound(t *testing.T) {
	tests := []struct {
		name    string
		moment  mgl64.Vec3
		initial mgl64.Vec3
		axis    mgl64.Vec3
		normal  float64
		coeff   float64
	}{
		{"weak resistance", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, 0, 1}, 10, 0.01},
		{"strong resistance", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{0, 0, 1}, 100, 1},
		{"skewed", mgl64.Vec3{0.2, -0.3, 0.1}, mgl64.Vec3{1, 2, -1}, mgl64.Vec3{0.6, 0, 0.8}, 50, 0.05},
		{"spin along normal", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1}, 10, 0.1},
		{"at rest", mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 10, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RollingResistance(tt.moment, tt.initial, tt.axis, tt.normal, tt.coeff)
			if !ok {
				t.Fatal("unexpected overflow")
			}
			added := got.Sub(tt.moment)
			bound := tt.initial.Add(tt.moment).Len()
			if added.Len() > bound+1e-12 {
				t.Errorf("resisting moment %v exceeds bound %v", added.Len(), bound)
			}
		})
	}

	got, ok := RollingResistance(mgl64.Vec3{math.Inf(1), 0, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1}, 1, 1)
	if ok || got != (mgl64.Vec3{0, -1, 0}) {
		t.Errorf("overflow should cancel the initial moment, got %v ok=%v", got, ok)
	}
}

func TestStep_RollingFrictionStopsSpin(t *testing.T) {
	m := testMaterial()
	m.RollingFriction = 0.5
	a := particle.New(1, m, 1, mgl64.Vec3{0, 0, 0})
	b := particle.New(2, m, 1, mgl64.Vec3{0, 0, 1.9})
	a.State.AngularVelocity = mgl64.Vec3{1e-6, 0, 0}
	link(a, b)
	ps := []*particle.Particle{a, b}

	e := setup(t, Options{Rotation: true, RollingFriction: true, Dt: 1e-4}, ps, nil)
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	// a slow spin against a large resistance is cancelled exactly
	want := a.Acc.InitialRotationMoment.Mul(-1)
	if !close3(a.Acc.Moment, want, 1e-15) {
		t.Errorf("moment = %v, want %v", a.Acc.Moment, want)
	}
}

func triangleMesh(m *material.Material) (*wall.Mesh, *wall.Face) {
	vs := []*wall.Vertex{
		{ID: 0, Position: mgl64.Vec3{-5, -5, 0}},
		{ID: 1, Position: mgl64.Vec3{5, -5, 0}},
		{ID: 2, Position: mgl64.Vec3{0, 5, 0}},
	}
	f := &wall.Face{ID: 100, Vertices: vs, Material: m}
	return &wall.Mesh{Vertices: vs, Faces: []*wall.Face{f}}, f
}

func attach(t *testing.T, p *particle.Particle, f *wall.Face) {
	t.Helper()
	g, err := geom.Classify(f.Positions(), p.State.Position, p.Radius)
	if err != nil {
		t.Fatal(err)
	}
	p.Walls = []particle.WallNeighbor{{Face: f, Geometry: g}}
}

func TestStep_WallFaceContact(t *testing.T) {
	m := testMaterial()
	mesh, f := triangleMesh(m)
	p := particle.New(1, m, 1, mgl64.Vec3{1, 1, 0.9})
	attach(t, p, f)
	ps := []*particle.Particle{p}

	e := setup(t, Options{}, ps, mesh)
	report, err := e.Step(ps, dynamo.SearchPerformed)
	if err != nil {
		t.Fatal(err)
	}

	want := young * math.Pi / 4 * 0.1
	if !close3(p.Acc.Force, mgl64.Vec3{0, 0, want}, 1e-9*want) {
		t.Errorf("force = %v, want %v along +z", p.Acc.Force, want)
	}
	if !close3(mesh.TotalReaction(), mgl64.Vec3{0, 0, -want}, 1e-9*want) {
		t.Errorf("wall reaction = %v", mesh.TotalReaction())
	}
	if !close3(p.Acc.WallReaction, mgl64.Vec3{0, 0, -want}, 1e-9*want) {
		t.Errorf("accumulated reaction = %v", p.Acc.WallReaction)
	}
	if report.WallContacts != 1 || math.Abs(report.MaxWallIndentation-0.1) > 1e-12 {
		t.Errorf("report = %+v", report)
	}
}

func TestStep_WallVertexAtZeroIndentation(t *testing.T) {
	m := testMaterial()
	vs := []*wall.Vertex{
		{Position: mgl64.Vec3{0, 0, 0}},
		{Position: mgl64.Vec3{4, 0, 0}},
		{Position: mgl64.Vec3{0, 4, 0}},
	}
	f := &wall.Face{ID: 7, Vertices: vs, Material: m}
	mesh := &wall.Mesh{Vertices: vs, Faces: []*wall.Face{f}}

	frame, err := geom.NewFrame(mgl64.Vec3{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	cached := geom.WallContact{Frame: frame, Distance: 1, Type: geom.ContactVertex}
	cached.Weights = [geom.MaxFaceVertices]float64{1, 0, 0, 0}

	p := particle.New(1, m, 1, mgl64.Vec3{0, 0, 1})
	p.Walls = []particle.WallNeighbor{{Face: f, Geometry: cached}}
	ps := []*particle.Particle{p}

	e := setup(t, Options{}, ps, mesh)
	for step := 0; step < 2; step++ {
		if _, err := e.Step(ps, dynamo.SearchSkipped); err != nil {
			t.Fatal(err)
		}
		if p.Acc.Force != (mgl64.Vec3{}) {
			t.Errorf("step %d: force = %v", step, p.Acc.Force)
		}
		rec, ok := p.WallContacts.Lookup(7)
		if !ok || rec.Geometry.Type != geom.ContactVertex {
			t.Fatalf("step %d: vertex contact dropped: %+v", step, rec)
		}
		if rec.Geometry.Weights != cached.Weights {
			t.Errorf("weights = %v", rec.Geometry.Weights)
		}
	}

	p.State.Position = mgl64.Vec3{0, 0, 1.5}
	if _, err := e.Step(ps, dynamo.SearchSkipped); err != nil {
		t.Fatal(err)
	}
	rec, _ := p.WallContacts.Lookup(7)
	if p.Acc.Force != (mgl64.Vec3{}) {
		t.Errorf("separated particle should carry no force, got %v", p.Acc.Force)
	}
	if !rec.Geometry.Active() || math.Abs(rec.Geometry.Distance-1.5) > 1e-12 {
		t.Errorf("slot should follow the particle until the next search: %+v", rec.Geometry)
	}
}

func TestStep_WallContactInsideSearchTolerance(t *testing.T) {
	m := testMaterial()
	mesh, _ := triangleMesh(m)
	p := particle.New(1, m, 1, mgl64.Vec3{1, 1, 1.001})
	ps := []*particle.Particle{p}

	finder := search.NewBruteForce(0.002, 10)
	if err := finder.Search(ps, mesh); err != nil {
		t.Fatal(err)
	}
	if len(p.Walls) != 1 {
		t.Fatalf("face inside the tolerance band not found: %d walls", len(p.Walls))
	}

	e := setup(t, Options{}, ps, mesh)
	if _, err := e.Step(ps, finder.Control(0)); err != nil {
		t.Fatal(err)
	}

	heights := []float64{1.0005, 0.95, 0.95, 0.95}
	for i, z := range heights {
		step := i + 1
		p.State.Position = mgl64.Vec3{1, 1, z}
		control := finder.Control(step)
		if control != dynamo.SearchSkipped {
			t.Fatalf("step %d: control = %v", step, control)
		}
		if _, err := e.Step(ps, control); err != nil {
			t.Fatal(err)
		}

		rec, ok := p.WallContacts.Lookup(100)
		if !ok || rec.Geometry.Type != geom.ContactFace {
			t.Fatalf("step %d: face contact lost: %+v", step, rec.Geometry)
		}
		want := 0.0
		if z < 1 {
			want = young * math.Pi / 4 * (1 - z)
		}
		if !close3(p.Acc.Force, mgl64.Vec3{0, 0, want}, 1e-9*math.Max(want, 1)) {
			t.Errorf("step %d at z=%v: force = %v, want %v along +z", step, z, p.Acc.Force, want)
		}
	}
}

func TestStep_AbsorbInitialOverlap(t *testing.T) {
	m := testMaterial()
	mesh, f := triangleMesh(m)
	p := particle.New(1, m, 1, mgl64.Vec3{1, 1, 0.9})
	attach(t, p, f)
	ps := []*particle.Particle{p}

	e := setup(t, Options{AbsorbInitialOverlap: true}, ps, mesh)
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	if p.Acc.Force != (mgl64.Vec3{}) {
		t.Errorf("initial overlap should not push, force = %v", p.Acc.Force)
	}

	p.State.Position = mgl64.Vec3{1, 1, 0.85}
	attach(t, p, f)
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	want := young * math.Pi / 4 * 0.05
	if math.Abs(p.Acc.Force[2]-want) > 1e-6*want {
		t.Errorf("force after further overlap = %v, want %v", p.Acc.Force[2], want)
	}
}

func TestStep_WallWear(t *testing.T) {
	m := testMaterial()
	m.Friction = 0.1
	mesh, f := triangleMesh(m)
	f.Wear = wall.WearProperties{Severity: 1, ImpactSeverity: 1, BrinellHardness: 1e3}

	p := particle.New(1, m, 1, mgl64.Vec3{1, 1, 0.95})
	p.State.Velocity = mgl64.Vec3{50, 0, -1}
	attach(t, p, f)
	ps := []*particle.Particle{p}

	e := setup(t, Options{Wear: true, Dt: 1e-3}, ps, mesh)
	if _, err := e.Step(ps, dynamo.SearchPerformed); err != nil {
		t.Fatal(err)
	}
	volume, impact := mesh.TotalWear()
	if volume <= 0 || impact <= 0 {
		t.Errorf("wear volume=%v impact=%v", volume, impact)
	}
}

func TestContactWear(t *testing.T) {
	props := wall.WearProperties{Severity: 2, ImpactSeverity: 3, BrinellHardness: 4}

	w := ContactWear(props, 1000, 1, mgl64.Vec3{0, 0, -2}, mgl64.Vec3{}, 10, false)
	if want := 0.5 * 3.0 / 4.0 * 1000 * 4; math.Abs(w.Impact-want) > 1e-9 {
		t.Errorf("head-on impact = %v, want %v", w.Impact, want)
	}
	if w.Volume != 0 {
		t.Errorf("sticking contact wore %v", w.Volume)
	}

	w = ContactWear(props, 1000, 1, mgl64.Vec3{}, mgl64.Vec3{0.3, 0.4, 0}, 10, true)
	if want := 2.0 / 4.0 / (4.0 / 3.0 * math.Pi) * 10 * 0.5; math.Abs(w.Volume-want) > 1e-12 {
		t.Errorf("sliding wear = %v, want %v", w.Volume, want)
	}
	if w.Impact != 0 {
		t.Errorf("resting particle impact wear %v", w.Impact)
	}
}

func TestInverseDistanceWeights(t *testing.T) {
	pts := []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}}

	w := InverseDistanceWeights(pts, mgl64.Vec3{0.5, 0, 0})
	sum := w[0] + w[1] + w[2]
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("weights sum to %v", sum)
	}
	if !(w[0] > w[1] && w[0] > w[2]) {
		t.Errorf("nearest vertex should weigh most: %v", w)
	}

	w = InverseDistanceWeights(pts, mgl64.Vec3{2, 0, 0})
	if w[1] != 1 || w[0] != 0 || w[2] != 0 {
		t.Errorf("point on vertex: %v", w)
	}
}

func TestInitialize_Errors(t *testing.T) {
	m := testMaterial()
	reg := contact.NewRegistry()
	reg.Register(1, contact.New(material.Linear, contact.DampingNone, nil))

	e, err := New(Options{Dt: 1e-4}, nil)
	if err != nil {
		t.Fatal(err)
	}

	other := &material.Material{ID: 2, Density: 1000, Young: 1e6, Poisson: 0.2}
	tests := []struct {
		name string
		ps   []*particle.Particle
		want error
	}{
		{"missing law", []*particle.Particle{particle.New(1, other, 1, mgl64.Vec3{})}, dynamo.ErrMissingLaw},
		{"zero radius", []*particle.Particle{{ID: 1, Material: m}}, dynamo.ErrInvalidParticle},
		{"duplicate id", []*particle.Particle{particle.New(1, m, 1, mgl64.Vec3{}), particle.New(1, m, 1, mgl64.Vec3{3, 0, 0})}, dynamo.ErrInvalidParticle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Initialize(tt.ps, reg, nil); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero dt", Options{}},
		{"rolling without rotation", Options{Dt: 1, RollingFriction: true}},
		{"bad pair mode", Options{Dt: 1, PairMode: PairMode(7)}},
		{"bad stiffness", Options{Dt: 1, Stiffness: material.StiffnessModel(3)}},
	}
	for _, tt := range tests {
		if _, err := New(tt.opts, nil); !errors.Is(err, dynamo.ErrInvalidConfig) {
			t.Errorf("%s: got %v", tt.name, err)
		}
	}
}

func BenchmarkStep(b *testing.B) {
	m := testMaterial()
	var ps []*particle.Particle
	id := 1
	for x := 0; x < 6; x++ {
		for y := 0; y < 6; y++ {
			for z := 0; z < 6; z++ {
				ps = append(ps, particle.New(id, m, 0.5, mgl64.Vec3{float64(x) * 0.95, float64(y) * 0.95, float64(z) * 0.95}))
				id++
			}
		}
	}
	for _, p := range ps {
		for _, q := range ps {
			if p != q && p.State.Position.Sub(q.State.Position).Len() < 1.1 {
				p.Neighbors = append(p.Neighbors, q)
			}
		}
	}

	e, _ := New(Options{Dt: 1e-5, Rotation: true}, nil)
	reg := contact.NewRegistry()
	reg.SetDefault(contact.New(material.Linear, contact.DampingNormalTangential, nil))
	if err := e.Initialize(ps, reg, nil); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Step(ps, dynamo.SearchSkipped); err != nil {
			b.Fatal(err)
		}
	}
}

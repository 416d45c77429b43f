package contact

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/material"
)

func testEquivalent() material.Equivalent {
	return material.Equivalent{
		Kn:             1000,
		Kt:             400,
		DampNormal:     10,
		DampTangential: 5,
		Friction:       0.5,
		Radius:         1,
		Mass:           1,
		Cohesion:       2,
	}
}

func TestNormalForce(t *testing.T) {
	tests := []struct {
		name        string
		model       material.StiffnessModel
		indentation float64
		want        float64
	}{
		{"linear", material.Linear, 0.1, 100},
		{"linear separated", material.Linear, -0.1, 0},
		{"linear touching", material.Linear, 0, 0},
		{"hertz", material.Hertz, 0.04, 1000 * 0.04 * 0.2},
		{"hertz separated", material.Hertz, -0.01, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			law := New(tt.model, DampingNone, nil)
			law.InitializeContact(testEquivalent())
			got := law.NormalForce(tt.indentation)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("NormalForce(%v) = %v, want %v", tt.indentation, got, tt.want)
			}
		})
	}
}

func TestTangentialForce_Coulomb(t *testing.T) {
	law := New(material.Linear, DampingNone, nil)
	law.InitializeContact(testEquivalent())

	elastic := mgl64.Vec3{0, 0, 100}
	if sliding := law.TangentialForce(&elastic, mgl64.Vec3{0.01, 0, 0}, 0.1); sliding {
		t.Fatal("small displacement should stick")
	}
	if math.Abs(elastic[0]+4) > 1e-12 {
		t.Errorf("stick force = %v, want -4", elastic[0])
	}

	if sliding := law.TangentialForce(&elastic, mgl64.Vec3{0.3, 0.4, 0}, 0.1); !sliding {
		t.Fatal("large displacement should slide")
	}
	ft := math.Hypot(elastic[0], elastic[1])
	if math.Abs(ft-50) > 1e-9 {
		t.Errorf("sliding force magnitude = %v, want mu*Fn = 50", ft)
	}
	if elastic[2] != 100 {
		t.Errorf("normal component changed to %v", elastic[2])
	}
}

func TestTangentialForce_NegativeNormal(t *testing.T) {
	law := New(material.Linear, DampingNone, nil)
	law.InitializeContact(testEquivalent())

	elastic := mgl64.Vec3{1, 0, -5}
	if !law.TangentialForce(&elastic, mgl64.Vec3{}, 0.1) {
		t.Error("net tensile contact cannot carry shear")
	}
	if elastic[0] != 0 || elastic[1] != 0 {
		t.Errorf("shear should vanish, got %v", elastic)
	}
}

func TestTangentialForce_PathIndependent(t *testing.T) {
	total := mgl64.Vec3{0.002, -0.001, 0}

	for _, model := range []material.StiffnessModel{material.Linear, material.Hertz} {
		for _, steps := range []int{1, 2, 5, 17} {
			law := New(model, DampingNormalTangential, nil)
			law.InitializeContact(testEquivalent())

			elastic := mgl64.Vec3{0, 0, 100}
			inc := total.Mul(1 / float64(steps))
			for i := 0; i < steps; i++ {
				law.TangentialForce(&elastic, inc, 0.04)
			}

			one := New(model, DampingNormalTangential, nil)
			one.InitializeContact(testEquivalent())
			ref := mgl64.Vec3{0, 0, 100}
			one.TangentialForce(&ref, total, 0.04)

			if math.Abs(elastic[0]-ref[0]) > 1e-12 || math.Abs(elastic[1]-ref[1]) > 1e-12 {
				t.Errorf("%v split %d: %v != %v", model, steps, elastic, ref)
			}
		}
	}
}

func TestViscoDamping(t *testing.T) {
	vel := mgl64.Vec3{1, 2, 3}
	tests := []struct {
		mode    DampingMode
		sliding bool
		want    mgl64.Vec3
	}{
		{DampingNone, false, mgl64.Vec3{}},
		{DampingNormal, false, mgl64.Vec3{0, 0, -30}},
		{DampingNormalTangential, false, mgl64.Vec3{-5, -10, -30}},
		{DampingNormalTangential, true, mgl64.Vec3{0, 0, -30}},
	}

	for _, tt := range tests {
		law := New(material.Linear, tt.mode, nil)
		law.InitializeContact(testEquivalent())
		if got := law.ViscoDamping(vel, tt.sliding); got != tt.want {
			t.Errorf("%v sliding=%v: got %v, want %v", tt.mode, tt.sliding, got, tt.want)
		}
	}
}

func TestCohesion(t *testing.T) {
	eq := testEquivalent()
	tests := []struct {
		name string
		want float64
	}{
		{"none", 0},
		{"constant", 2 * math.Pi * 1 * 0.1},
		{"dmt", 2 * math.Pi * 2 * 1},
	}
	for _, tt := range tests {
		c, err := ParseCohesion(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		law := New(material.Linear, DampingNone, c)
		law.InitializeContact(eq)
		if got := law.CohesiveForce(0.1); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: cohesive force = %v, want %v", tt.name, got, tt.want)
		}
		if got := law.CohesiveForce(-0.1); got != 0 {
			t.Errorf("%s: separated contact attracts with %v", tt.name, got)
		}
	}
	if _, err := ParseCohesion("jkr"); err == nil {
		t.Error("expected unknown cohesion error")
	}
}

func TestElasticEnergy(t *testing.T) {
	lin := New(material.Linear, DampingNone, nil)
	lin.InitializeContact(testEquivalent())
	if got := lin.ElasticEnergy(mgl64.Vec3{4, 0, 100}, 0.1); math.Abs(got-(5+0.02)) > 1e-12 {
		t.Errorf("linear energy = %v", got)
	}

	hz := New(material.Hertz, DampingNone, nil)
	hz.InitializeContact(testEquivalent())
	fn := hz.NormalForce(0.04)
	// the Hertz normal work is 2/5 Fn delta
	if got := hz.ElasticEnergy(mgl64.Vec3{0, 0, fn}, 0.04); math.Abs(got-0.4*fn*0.04) > 1e-9 {
		t.Errorf("hertz energy = %v, want %v", got, 0.4*fn*0.04)
	}
}

func TestParseDamping(t *testing.T) {
	for in, want := range map[string]DampingMode{
		"none":              DampingNone,
		"normal":            DampingNormal,
		"normal_tangential": DampingNormalTangential,
		"":                  DampingNormalTangential,
	} {
		got, err := ParseDamping(in)
		if err != nil || got != want {
			t.Errorf("ParseDamping(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDamping("shear"); err == nil {
		t.Error("expected error")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(3, New(material.Hertz, DampingNormal, nil))

	a, err := r.Instantiate(3)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.Instantiate(3)
	if a == b {
		t.Fatal("instances must be independent clones")
	}
	a.InitializeContact(testEquivalent())
	if b.NormalForce(0.04) != 0 {
		t.Error("initializing one clone leaked into another")
	}
	if a.Name() != "hertz" {
		t.Errorf("name = %s", a.Name())
	}

	if _, err := r.Instantiate(9); !errors.Is(err, dynamo.ErrMissingLaw) {
		t.Errorf("expected ErrMissingLaw, got %v", err)
	}
	r.SetDefault(New(material.Linear, DampingNone, nil))
	if l, err := r.Instantiate(9); err != nil || l.Name() != "linear" {
		t.Errorf("default prototype not used: %v %v", l, err)
	}
	if ids := r.Materials(); len(ids) != 1 || ids[0] != 3 {
		t.Errorf("materials = %v", ids)
	}
}

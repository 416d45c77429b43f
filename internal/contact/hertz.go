package contact

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HertzViscousCoulomb uses the Hertz 3/2 power normal law; the tangential
// stiffness grows with the square root of the indentation.
type HertzViscousCoulomb struct {
	viscousCoulomb
}

func (h *HertzViscousCoulomb) Name() string { return "hertz" }

func (h *HertzViscousCoulomb) Clone() Law {
	c := *h
	return &c
}

func (h *HertzViscousCoulomb) NormalForce(indentation float64) float64 {
	if indentation <= 0 {
		return 0
	}
	return h.eq.Kn * indentation * math.Sqrt(indentation)
}

func (h *HertzViscousCoulomb) TangentialForce(elastic *mgl64.Vec3, localDisp mgl64.Vec3, indentation float64) bool {
	return h.coulomb(elastic, localDisp, h.tangentialStiffness(indentation))
}

func (h *HertzViscousCoulomb) tangentialStiffness(indentation float64) float64 {
	if indentation <= 0 {
		return 0
	}
	return h.eq.Kt * math.Sqrt(indentation)
}

func (h *HertzViscousCoulomb) ElasticEnergy(elastic mgl64.Vec3, indentation float64) float64 {
	e := tangentialEnergy(elastic, h.tangentialStiffness(indentation))
	if h.eq.Kn > 0 {
		e += 0.4 * math.Pow(math.Abs(elastic[2]), 5.0/3.0) / math.Pow(h.eq.Kn, 2.0/3.0)
	}
	return e
}

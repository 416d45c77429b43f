package contact

import (
	"github.com/go-gl/mathgl/mgl64"
)

// LinearViscousCoulomb is a linear spring-dashpot with Coulomb friction.
type LinearViscousCoulomb struct {
	viscousCoulomb
}

func (l *LinearViscousCoulomb) Name() string { return "linear" }

func (l *LinearViscousCoulomb) Clone() Law {
	c := *l
	return &c
}

func (l *LinearViscousCoulomb) NormalForce(indentation float64) float64 {
	if indentation <= 0 {
		return 0
	}
	return l.eq.Kn * indentation
}

func (l *LinearViscousCoulomb) TangentialForce(elastic *mgl64.Vec3, localDisp mgl64.Vec3, indentation float64) bool {
	return l.coulomb(elastic, localDisp, l.eq.Kt)
}

func (l *LinearViscousCoulomb) ElasticEnergy(elastic mgl64.Vec3, indentation float64) float64 {
	e := tangentialEnergy(elastic, l.eq.Kt)
	if l.eq.Kn > 0 {
		e += 0.5 * elastic[2] * elastic[2] / l.eq.Kn
	}
	return e
}

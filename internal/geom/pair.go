package geom

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Body is the kinematic view of one side of a ball-ball contact.
type Body struct {
	Position          mgl64.Vec3
	Velocity          mgl64.Vec3
	AngularVelocity   mgl64.Vec3
	DeltaDisplacement mgl64.Vec3
	Radius            float64
}

// PairKinematics is everything a contact law needs about the relative motion of two balls.
type PairKinematics struct {
	Current  Frame
	Previous Frame
	Distance float64
	// RelDisplacement and RelVelocity are me minus other, in global coordinates.
	RelDisplacement mgl64.Vec3
	RelVelocity     mgl64.Vec3
}

// Indentation is the overlap for the two radii; positive when touching.
func (k PairKinematics) Indentation(radiusSum float64) float64 {
	return radiusSum - k.Distance
}

// EvaluatePair builds the current and previous-step frames and the relative
// kinematics of me with respect to other. Coincident centers are reported
// as dynamo.ErrDegenerateGeometry.
func EvaluatePair(me, other Body, rotation bool, dt float64) (PairKinematics, error) {
	otherToMe := me.Position.Sub(other.Position)

	current, err := NewFrame(otherToMe)
	if err != nil {
		return PairKinematics{}, err
	}

	oldMe := me.Position.Sub(me.DeltaDisplacement)
	oldOther := other.Position.Sub(other.DeltaDisplacement)
	previous, err := NewFrame(oldMe.Sub(oldOther))
	if err != nil {
		// centers coincided last step only; the current frame is the best estimate
		previous = current
	}

	k := PairKinematics{
		Current:         current,
		Previous:        previous,
		Distance:        otherToMe.Len(),
		RelDisplacement: me.DeltaDisplacement.Sub(other.DeltaDisplacement),
		RelVelocity:     me.Velocity.Sub(other.Velocity),
	}

	if rotation {
		n := previous.Normal()
		// surface velocity at the contact point: me at -R n, other at +R n
		surfaceMe := me.AngularVelocity.Cross(n).Mul(-me.Radius)
		surfaceOther := other.AngularVelocity.Cross(n).Mul(other.Radius)
		spin := surfaceMe.Sub(surfaceOther)

		k.RelVelocity = k.RelVelocity.Add(spin)
		k.RelDisplacement = k.RelDisplacement.Add(spin.Mul(dt))
	}

	return k, nil
}

/*
Copyright © 2019 the MicroMix authors.
This file is part of MicroMix.

MicroMix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MicroMix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MicroMix.  If not, see <http://www.gnu.org/licenses/>.
*/

package micromix

import (
	"fmt"
	"math"
)

// Convention selects the reaction-network convention of the
// incorporation model.
type Convention string

// The recognized reaction-network conventions.
const (
	Original Convention = "original"
	Modified Convention = "modified"
)

// Shape selects the shape of the incorporation function g(t).
type Shape string

// The recognized incorporation-function shapes.
const (
	Linear      Shape = "linear"
	Exponential Shape = "exponential"
)

// Fallback describes an invalid model-configuration selection that was
// resolved by falling back to the modified/linear pair. It is advisory;
// execution continues with the fallback.
type Fallback struct {
	// RequestedConvention and RequestedShape are the values as supplied.
	RequestedConvention, RequestedShape string
}

func (f *Fallback) String() string {
	return fmt.Sprintf("unrecognized model configuration (%q, %q); falling back to (%q, %q)",
		f.RequestedConvention, f.RequestedShape, Modified, Linear)
}

// An IncorporationLaw gives the instantaneous incorporation volume, its
// growth rate, and the total integration horizon for one convention and
// shape. It is the single owner of the convention/shape branching; the
// simulator, the objectives, and the trajectory all go through it.
type IncorporationLaw struct {
	Convention Convention
	Shape      Shape

	// V1 and V2 are the buffer-stream and acid-stream volumetric flow
	// rates [L/s].
	V1, V2 float64
}

// NewIncorporationLaw resolves the requested convention and shape and
// returns the corresponding law. If either value is unrecognized, BOTH
// axes fall back to the modified/linear pair and a non-nil Fallback
// describes the substitution. (The whole-pair fallback on a half-invalid
// selection is deliberate; it reproduces the model's published
// behavior.)
func NewIncorporationLaw(convention, shape string, v1, v2 float64) (*IncorporationLaw, *Fallback) {
	conv := Convention(convention)
	sh := Shape(shape)
	validConv := conv == Original || conv == Modified
	validShape := sh == Linear || sh == Exponential
	if !validConv || !validShape {
		return &IncorporationLaw{Convention: Modified, Shape: Linear, V1: v1, V2: v2},
			&Fallback{RequestedConvention: convention, RequestedShape: shape}
	}
	return &IncorporationLaw{Convention: conv, Shape: sh, V1: v1, V2: v2}, nil
}

// Volume returns the instantaneous incorporation volume v(t) [L/s] and
// the time derivative dg/dt [1/s] of the incorporation function for
// elapsed time t and mixing time tm.
func (l *IncorporationLaw) Volume(t, tm float64) (v, dgdt float64) {
	switch l.Convention {
	case Original:
		// v(t) = V2·g(t)
		switch l.Shape {
		case Exponential:
			g := math.Exp(t / tm)
			return l.V2 * g, g / tm
		default: // linear: g = 1 + t/tm
			return l.V2 * (1 + t/tm), 1 / tm
		}
	default: // modified: v(t) = V2 + V1·g(t)
		switch l.Shape {
		case Exponential:
			// g = 1 − exp(−t/tm)
			e := math.Exp(-t / tm)
			return l.V2 + l.V1*(1-e), e / tm
		default: // linear: g = t/tm
			return l.V2 + l.V1*t/tm, 1 / tm
		}
	}
}

// Horizon returns the total integration time tend [s] for mixing
// time tm. Under the original convention the horizon is the time at
// which the growing volume has swallowed the whole buffer stream; under
// the modified convention it is a fixed multiple of tm.
func (l *IncorporationLaw) Horizon(tm float64) float64 {
	switch l.Convention {
	case Original:
		switch l.Shape {
		case Exponential:
			return math.Log((l.V1+l.V2)/l.V2) * tm
		default:
			return l.V1 / l.V2 * tm
		}
	default:
		switch l.Shape {
		case Exponential:
			return 5 * tm
		default:
			return tm
		}
	}
}

// InletScale returns the factor applied to the inlet-replenishment
// terms of the flux system: V2/V1 under the original convention, 1
// under the modified convention.
func (l *IncorporationLaw) InletScale() float64 {
	if l.Convention == Original {
		return l.V2 / l.V1
	}
	return 1
}

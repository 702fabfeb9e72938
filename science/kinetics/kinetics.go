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

// Package kinetics contains the rate model for the parallel
// acid–base/iodine test reactions:
//
//	H+ + TRIS   ⇌ TRISH+                 (buffer equilibrium)
//	IO3- + 5I- + 6H+ → 3I2 + 3H2O        (Dushman reaction)
//	I- + I2     ⇌ I3-                    (triiodide equilibrium)
//
// The Dushman rate constant depends on ionic strength through an
// activity-coefficient correction, which makes it a function of the
// instantaneous composition rather than a literal constant.
package kinetics

import (
	"errors"
	"fmt"
	"math"

	"github.com/reactormodel/micromix"
)

// rate constants at 25 °C
const (
	// Buffer protonation, near diffusion-limited [L/(mol·s)], and the
	// TRIS acid dissociation constant (pKa 8.1).
	kBufferForward = 1.0e10
	pKaTRIS        = 8.1

	// Dushman reaction at zero ionic strength [L⁴/(mol⁴·s)].
	kDushman0 = 1.906e9

	// Triiodide formation [L/(mol·s)] and dissociation [1/s].
	kTriiodideForward  = 5.6e9
	kTriiodideBackward = 7.5e6

	// Debye–Hückel constant for water at 25 °C [√(L/mol)].
	debyeHuckelA = 0.509
)

// kBufferBackward is the buffer deprotonation rate [1/s], fixed by the
// forward rate and the TRIS equilibrium.
var kBufferBackward = kBufferForward * math.Pow(10, -pKaTRIS)

// ErrNegativeIonicStrength reports an ionic strength computed as
// negative, which indicates a corrupted state upstream. It is fatal to
// the evaluation that produced it, not to the process.
var ErrNegativeIonicStrength = errors.New("kinetics: negative ionic strength")

// IonicStrength returns the ionic strength Z [mol/L] of the
// incorporation volume v [L/s] given the current species fluxes n and
// the inlet reference n0 [mol/s]. All charged species carry unit
// charge, so Z is half the summed charged-species concentration.
func IonicStrength(n, n0 micromix.State, v float64) (float64, error) {
	var sum float64
	for _, i := range []int{micromix.IH, micromix.ITRISH, micromix.II, micromix.IIO3, micromix.II3} {
		sum += n[i] + n0[i]
	}
	z := sum / (2 * v)
	if z < 0 {
		return 0, fmt.Errorf("%w: Z=%g with v=%g", ErrNegativeIonicStrength, z, v)
	}
	return z, nil
}

// DushmanRateConstant returns the ionic-strength-corrected rate
// constant of the Dushman reaction [L⁴/(mol⁴·s)], using a Davies-type
// activity correction:
//
//	log10 k = log10 k0 − 4·A·(√Z/(1+√Z) − 0.3·Z)
func DushmanRateConstant(z float64) float64 {
	s := math.Sqrt(z)
	return kDushman0 * math.Pow(10, -4*debyeHuckelA*(s/(1+s)-0.3*z))
}

// Mechanism implements the github.com/reactormodel/micromix.Mechanism
// interface for the TRIS-buffered iodide–iodate system.
type Mechanism struct{}

// Len returns the number of chemical species in this mechanism (8).
func (Mechanism) Len() int { return micromix.NumSpecies }

// Rates returns the three elementary reaction rates [mol/s] for species
// fluxes n, inlet reference n0, and incorporation volume v. Flux/volume
// ratios are concentrations, so each rate divides by v once per
// concentration factor: the fourth-order Dushman term carries 1/v⁴.
func (Mechanism) Rates(n, n0 micromix.State, v float64) (micromix.ReactionRates, error) {
	var r micromix.ReactionRates
	z, err := IonicStrength(n, n0, v)
	if err != nil {
		return r, err
	}
	k2 := DushmanRateConstant(z)

	r.Buffer = kBufferForward*n[micromix.IH]*n[micromix.ITRIS]/v -
		kBufferBackward*n[micromix.ITRISH]
	r.Main = k2 * n[micromix.IH] * n[micromix.IH] *
		n[micromix.II] * n[micromix.II] * n[micromix.IIO3] / (v * v * v * v)
	r.Triiodide = kTriiodideForward*n[micromix.II]*n[micromix.II2]/v -
		kTriiodideBackward*n[micromix.II3]
	return r, nil
}

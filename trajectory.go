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

import "github.com/reactormodel/micromix/ode"

// A Trajectory is the result of one forward simulation: the species
// fluxes at every accepted integrator step, together with the inputs
// needed to derive the observable series.
type Trajectory struct {
	// Times [s] and States [mol/s] are the accepted integrator samples,
	// in time order. Times[0] is always 0.
	Times  []float64
	States []State

	// N0 is the inlet flux reference the run was made with.
	N0 State

	// Law and TM are the incorporation law and mixing time of the run.
	Law *IncorporationLaw
	TM  float64

	// Stats reports the integrator's work.
	Stats ode.Statistics
}

// Yst returns the stoichiometric maximum yield: the iodine yield that
// total segregation of the acid stream would produce.
func (tr *Trajectory) Yst() float64 {
	return 6 * tr.N0[IIO3] / (6*tr.N0[IIO3] + tr.N0[ITRIS])
}

// yield returns the actual iodine yield for state n.
func (tr *Trajectory) yield(n State) float64 {
	return 2 * (n[II2] + n[II3]) / tr.N0[IH]
}

// SegregationIndex returns the segregation index Xs = Y/Yst at every
// sample time.
func (tr *Trajectory) SegregationIndex() []float64 {
	yst := tr.Yst()
	o := make([]float64, len(tr.States))
	for i, n := range tr.States {
		o[i] = tr.yield(n) / yst
	}
	return o
}

// FinalSegregation returns the segregation index at the end of the
// integration horizon.
func (tr *Trajectory) FinalSegregation() float64 {
	return tr.yield(tr.States[len(tr.States)-1]) / tr.Yst()
}

// Volumes returns the incorporation volume v(t) [L/s] at every sample
// time.
func (tr *Trajectory) Volumes() []float64 {
	o := make([]float64, len(tr.Times))
	for i, t := range tr.Times {
		o[i], _ = tr.Law.Volume(t, tr.TM)
	}
	return o
}

// FinalTriiodide returns the triiodide concentration [mol/L] in the
// combined outflow at the end of the integration horizon.
func (tr *Trajectory) FinalTriiodide() float64 {
	n := tr.States[len(tr.States)-1]
	return n[II3] / (tr.Law.V1 + tr.Law.V2)
}

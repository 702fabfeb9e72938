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
	"math"
	"testing"
)

var testC0 = []float64{0.03, 0.0898, 0.0898, 0.03197, 6.34e-3, 0, 0, 0}

// fixedMech returns constant reaction rates, which makes the assembled
// flux derivatives checkable by hand.
type fixedMech struct {
	r ReactionRates
}

func (m fixedMech) Rates(n, n0 State, v float64) (ReactionRates, error) { return m.r, nil }
func (fixedMech) Len() int                                              { return NumSpecies }

func testSimulator(m Mechanism) *Simulator {
	law, _ := NewIncorporationLaw("modified", "exponential", testV1, testV2)
	return &Simulator{
		Mech:   m,
		Law:    law,
		C0:     testC0,
		RelTol: 1e-8,
		AbsTol: 1e-14,
	}
}

func TestInletFlux(t *testing.T) {
	s := testSimulator(fixedMech{})
	n0 := s.InletFlux()
	if got, want := n0[IH], testC0[IH]*testV2; got != want {
		t.Errorf("H+ inlet flux = %g, want %g (acid stream)", got, want)
	}
	for _, i := range []int{ITRIS, ITRISH, II, IIO3} {
		if got, want := n0[i], testC0[i]*testV1; got != want {
			t.Errorf("species %d inlet flux = %g, want %g (buffer stream)", i, got, want)
		}
	}
	for _, i := range []int{II2, IH2O, II3} {
		if n0[i] != 0 {
			t.Errorf("species %d inlet flux = %g, want 0", i, n0[i])
		}
	}
}

// The right-hand side must satisfy the stoichiometric balances by
// construction: H+ consumption equals buffer rate plus six times the
// main rate, and the elemental totals change only through the inlet
// terms.
func TestDerivativeStoichiometry(t *testing.T) {
	r := ReactionRates{Buffer: 2, Main: 3, Triiodide: 5}
	s := testSimulator(fixedMech{r: r})
	n0 := s.InletFlux()
	f := s.derivative(0.2, n0)

	y := make([]float64, NumSpecies)
	dy := make([]float64, NumSpecies)
	const tt = 0.05
	if err := f(tt, y, dy); err != nil {
		t.Fatal(err)
	}

	if got, want := dy[IH], -(r.Buffer + 6*r.Main); got != want {
		t.Errorf("d(H+)/dt = %g, want %g", got, want)
	}
	if got, want := dy[IH2O], 3*r.Main; got != want {
		t.Errorf("d(H2O)/dt = %g, want %g", got, want)
	}

	_, dgdt := s.Law.Volume(tt, 0.2)
	repl := s.Law.InletScale() * dgdt

	// TRIS is conserved up to replenishment: d(TRIS + TRISH+).
	trisIn := (n0[ITRIS] + n0[ITRISH]) * repl
	if got := dy[ITRIS] + dy[ITRISH]; math.Abs(got-trisIn) > 1e-12 {
		t.Errorf("TRIS balance = %g, want %g", got, trisIn)
	}
	// Protons: d(H+ + TRISH+ + 2·H2O) balances to the TRISH+ inlet.
	hIn := n0[ITRISH] * repl
	if got := dy[IH] + dy[ITRISH] + 2*dy[IH2O]; math.Abs(got-hIn) > 1e-12 {
		t.Errorf("proton balance = %g, want %g", got, hIn)
	}
	// Iodine atoms: d(I- + IO3- + 2·I2 + 3·I3-) balances to the inlet.
	iodineIn := (n0[II] + n0[IIO3]) * repl
	if got := dy[II] + dy[IIO3] + 2*dy[II2] + 3*dy[II3]; math.Abs(got-iodineIn) > 1e-12 {
		t.Errorf("iodine balance = %g, want %g", got, iodineIn)
	}
}

func TestDerivativeInletScale(t *testing.T) {
	r := ReactionRates{}
	law, _ := NewIncorporationLaw("original", "linear", 2*testV1, testV2)
	s := &Simulator{Mech: fixedMech{r: r}, Law: law, C0: testC0}
	n0 := s.InletFlux()
	f := s.derivative(0.2, n0)

	y := make([]float64, NumSpecies)
	dy := make([]float64, NumSpecies)
	if err := f(0.05, y, dy); err != nil {
		t.Fatal(err)
	}
	_, dgdt := law.Volume(0.05, 0.2)
	want := n0[ITRIS] * law.V2 / (2 * testV1) * dgdt
	if math.Abs(dy[ITRIS]-want) > 1e-15 {
		t.Errorf("original-convention TRIS replenishment = %g, want %g", dy[ITRIS], want)
	}
}

func TestRunValidation(t *testing.T) {
	s := testSimulator(fixedMech{})
	if _, err := s.Run(0); err == nil {
		t.Error("tm=0 should fail")
	}
	if _, err := s.Run(-0.1); err == nil {
		t.Error("tm<0 should fail")
	}

	s = testSimulator(fixedMech{})
	s.C0 = []float64{1, 2}
	if _, err := s.Run(0.2); err == nil {
		t.Error("wrong concentration count should fail")
	}

	s = testSimulator(fixedMech{})
	s.C0 = append([]float64(nil), testC0...)
	s.C0[3] = -1
	if _, err := s.Run(0.2); err == nil {
		t.Error("negative concentration should fail")
	}

	s = testSimulator(fixedMech{})
	s.Law = nil
	if _, err := s.Run(0.2); err == nil {
		t.Error("missing law should fail")
	}

	s = testSimulator(fixedMech{})
	s.Mech = nil
	if _, err := s.Run(0.2); err == nil {
		t.Error("missing mechanism should fail")
	}
}

// With zero reaction rates the species simply accumulate with the
// growing volume; the final buffer-species fluxes approach their inlet
// values as g → 1.
func TestRunReplenishmentOnly(t *testing.T) {
	const tm = 0.2
	s := testSimulator(fixedMech{})
	traj, err := s.Run(tm)
	if err != nil {
		t.Fatal(err)
	}
	if traj.Times[0] != 0 {
		t.Errorf("trajectory starts at t=%g, want 0", traj.Times[0])
	}
	if got, want := traj.Times[len(traj.Times)-1], s.Law.Horizon(tm); math.Abs(got-want) > 1e-12 {
		t.Errorf("trajectory ends at t=%g, want %g", got, want)
	}
	// g(5·tm) = 1 − exp(−5) ≈ 0.99326.
	g := 1 - math.Exp(-5)
	final := traj.States[len(traj.States)-1]
	for _, i := range []int{ITRIS, II, IIO3} {
		want := traj.N0[i] * g
		if math.Abs(final[i]-want) > 1e-6*want {
			t.Errorf("species %d final flux = %g, want %g", i, final[i], want)
		}
	}
	// H+ is untouched by a zero-rate mechanism.
	if got, want := final[IH], traj.N0[IH]; math.Abs(got-want) > 1e-9*want {
		t.Errorf("final H+ flux = %g, want %g", got, want)
	}
}

func TestTrajectoryDerived(t *testing.T) {
	law, _ := NewIncorporationLaw("modified", "linear", testV1, testV2)
	n0 := State{3e-6, 8e-6, 8e-6, 1e-6, 2e-7, 0, 0, 0}
	traj := &Trajectory{
		Times:  []float64{0, 0.1},
		States: []State{make(State, NumSpecies), {1e-6, 0, 0, 0, 0, 2e-7, 0, 1e-7}},
		N0:     n0,
		Law:    law,
		TM:     0.2,
	}
	wantYst := 6 * n0[IIO3] / (6*n0[IIO3] + n0[ITRIS])
	if got := traj.Yst(); got != wantYst {
		t.Errorf("Yst = %g, want %g", got, wantYst)
	}
	wantXs := 2 * (2e-7 + 1e-7) / n0[IH] / wantYst
	if got := traj.FinalSegregation(); math.Abs(got-wantXs) > 1e-12 {
		t.Errorf("Xs = %g, want %g", got, wantXs)
	}
	if got, want := traj.FinalTriiodide(), 1e-7/(testV1+testV2); math.Abs(got-want) > 1e-12*want {
		t.Errorf("triiodide = %g, want %g", got, want)
	}
	vs := traj.Volumes()
	if v0, _ := law.Volume(0, 0.2); vs[0] != v0 {
		t.Errorf("v(0) = %g, want %g", vs[0], v0)
	}
	xs := traj.SegregationIndex()
	if xs[0] != 0 {
		t.Errorf("Xs(0) = %g, want 0", xs[0])
	}
	if math.Abs(xs[1]-wantXs) > 1e-12 {
		t.Errorf("Xs series final = %g, want %g", xs[1], wantXs)
	}
}

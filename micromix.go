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

// Package micromix models the progressive incorporation of a buffered
// iodide–iodate stream into an acid stream in a continuous two-stream
// reactor. The reaction network runs in a control volume that grows as
// fresh fluid is incorporated, at a rate set by the micro-mixing time.
// Integrating the resulting stiff species-flux system forward yields the
// segregation index and triiodide concentration that are measured
// experimentally; package estimate inverts the model to recover the
// micro-mixing time from those measurements.
package micromix

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/reactormodel/micromix/ode"
)

// Version gives the version number.
const Version = "1.2.0"

// Indices of the individual species in state vectors.
const (
	IH int = iota // H+
	ITRIS
	ITRISH // TRISH+
	II     // I-
	IIO3   // IO3-
	II2
	IH2O
	II3 // I3-
)

// NumSpecies is the number of chemical species in the reaction network.
const NumSpecies = 8

// State is a vector of species molar fluxes [mol/s], ordered by the
// species index constants.
type State []float64

// Clone returns a copy of s.
func (s State) Clone() State {
	o := make(State, len(s))
	copy(o, s)
	return o
}

// valid reports whether every component of s is finite.
func (s State) valid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ReactionRates holds the instantaneous rates of the three elementary
// reactions [mol/s].
type ReactionRates struct {
	// Buffer is the rate of the buffer equilibrium H+ + TRIS ⇌ TRISH+.
	Buffer float64
	// Main is the rate of the conversion reaction
	// IO3- + 5I- + 6H+ → 3I2 + 3H2O.
	Main float64
	// Triiodide is the rate of the equilibrium I- + I2 ⇌ I3-.
	Triiodide float64
}

// Mechanism is an interface for reaction-rate models of the
// acid–base/iodine network.
type Mechanism interface {
	// Rates returns the elementary reaction rates for the current
	// species fluxes n, the inlet flux reference n0, and the current
	// incorporation volume v [L/s].
	Rates(n, n0 State, v float64) (ReactionRates, error)

	// Len returns the number of species the mechanism operates on.
	Len() int
}

// A Simulator holds the fixed inputs of forward simulations of the
// incorporation model. The micro-mixing time is supplied per run so that
// one Simulator can serve repeated objective evaluations.
type Simulator struct {
	// Mech computes the elementary reaction rates.
	Mech Mechanism

	// Law is the incorporation law governing control-volume growth.
	Law *IncorporationLaw

	// C0 holds the initial concentrations of all species [mol/L],
	// ordered by the species index constants.
	C0 []float64

	// RelTol and AbsTol are the integrator tolerances. Zero values
	// select the defaults in package ode.
	RelTol, AbsTol float64

	// MaxSteps caps the number of integrator steps per run. Zero
	// selects the default in package ode.
	MaxSteps int

	// Log receives advisory diagnostics. If nil, the logrus standard
	// logger is used.
	Log logrus.FieldLogger
}

// InletFlux returns the inlet flux reference n0 [mol/s]: H+ enters with
// the acid stream (V2) and every other species with the buffer
// stream (V1).
func (s *Simulator) InletFlux() State {
	n0 := make(State, NumSpecies)
	for i, c := range s.C0 {
		if i == IH {
			n0[i] = c * s.Law.V2
		} else {
			n0[i] = c * s.Law.V1
		}
	}
	return n0
}

func (s *Simulator) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Simulator) check(tm float64) error {
	if s.Mech == nil {
		return fmt.Errorf("micromix: simulator is missing a mechanism")
	}
	if s.Law == nil {
		return fmt.Errorf("micromix: simulator is missing an incorporation law")
	}
	if s.Mech.Len() != NumSpecies {
		return fmt.Errorf("micromix: mechanism has %d species; want %d", s.Mech.Len(), NumSpecies)
	}
	if len(s.C0) != NumSpecies {
		return fmt.Errorf("micromix: %d initial concentrations; want %d", len(s.C0), NumSpecies)
	}
	for i, c := range s.C0 {
		if c < 0 || math.IsNaN(c) {
			return fmt.Errorf("micromix: initial concentration %d is %g; want >= 0", i, c)
		}
	}
	if tm <= 0 || math.IsNaN(tm) {
		return fmt.Errorf("micromix: mixing time is %g; want > 0", tm)
	}
	if s.Law.V1 <= 0 || s.Law.V2 <= 0 {
		return fmt.Errorf("micromix: flow rates are (%g, %g); want > 0", s.Law.V1, s.Law.V2)
	}
	return nil
}

// derivative returns the right-hand side of the species-flux system for
// mixing time tm and inlet reference n0. The inlet-replenishment terms
// are proportional to the growth-rate dgdt; under the original
// convention they carry an additional factor V2/V1.
func (s *Simulator) derivative(tm float64, n0 State) ode.Func {
	scale := s.Law.InletScale()
	return func(t float64, y, dy []float64) error {
		v, dgdt := s.Law.Volume(t, tm)
		r, err := s.Mech.Rates(State(y), n0, v)
		if err != nil {
			return err
		}
		repl := scale * dgdt
		dy[IH] = -r.Buffer - 6*r.Main
		dy[ITRIS] = -r.Buffer + n0[ITRIS]*repl
		dy[ITRISH] = r.Buffer + n0[ITRISH]*repl
		dy[II] = -5*r.Main - r.Triiodide + n0[II]*repl
		dy[IIO3] = -r.Main + n0[IIO3]*repl
		dy[II2] = 3*r.Main - r.Triiodide
		dy[IH2O] = 3 * r.Main
		dy[II3] = r.Triiodide
		return nil
	}
}

// Run integrates the species-flux system over [0, tend] for mixing time
// tm [s], where tend is set by the incorporation law. The returned
// trajectory samples the state at every accepted integrator step.
func (s *Simulator) Run(tm float64) (*Trajectory, error) {
	if err := s.check(tm); err != nil {
		return nil, err
	}

	n0 := s.InletFlux()

	// H+ enters pre-mixed with the acid stream at t=0; everything else
	// arrives through volume-growth replenishment.
	y0 := make(State, NumSpecies)
	y0[IH] = n0[IH]

	traj := &Trajectory{
		N0:  n0,
		Law: s.Law,
		TM:  tm,
	}
	observe := func(t float64, y []float64) {
		traj.Times = append(traj.Times, t)
		traj.States = append(traj.States, State(y).Clone())
	}

	solver := &ode.Rosenbrock23{Config: ode.Config{
		RelTol:   s.RelTol,
		AbsTol:   s.AbsTol,
		MaxSteps: s.MaxSteps,
	}}
	stats, err := solver.Integrate(s.derivative(tm, n0), 0, s.Law.Horizon(tm), y0, observe)
	traj.Stats = stats
	if err != nil {
		return nil, fmt.Errorf("micromix: integrating to tend=%g s with tm=%g s: %w",
			s.Law.Horizon(tm), tm, err)
	}
	if n := len(traj.States); n == 0 || !traj.States[n-1].valid() {
		return nil, fmt.Errorf("micromix: non-finite final state with tm=%g s", tm)
	}
	return traj, nil
}

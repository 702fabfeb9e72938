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

// Package estimate inverts the micromix forward model: it searches for
// the micro-mixing time whose simulated observable best matches an
// experimentally measured triiodide concentration or segregation index.
//
// Each objective evaluation costs one full stiff integration, so the
// search is derivative-free (Nelder–Mead on the single mixing-time
// coordinate). Failed integrations score as +Inf, steering the
// minimizer away from degenerate parameter regions instead of aborting
// the estimation run.
package estimate

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/optimize"

	"github.com/reactormodel/micromix"
)

// An Objective is a scalar squared-residual function of the mixing
// time [s].
type Objective func(tm float64) float64

// Default search settings.
const (
	// DefaultTolerance is the relative objective-improvement tolerance
	// below which the search terminates.
	DefaultTolerance = 1e-8

	// maxIterations caps the simplex iterations of one estimation run.
	// A run that exhausts the cap reports Converged=false with its
	// last iterate rather than failing.
	maxIterations = 400

	// convergeIterations is the number of consecutive iterations over
	// which the objective must improve by less than the tolerance.
	convergeIterations = 20
)

// A Simulation bundles the fixed inputs of one estimation run: the
// mechanism, model configuration, flow rates [L/s], and initial
// concentrations [mol/L]. Invalid configuration selections fall back to
// the modified/linear pair with a logged advisory.
type Simulation struct {
	Mech micromix.Mechanism

	// Convention and Shape select the incorporation-law variant.
	Convention, Shape string

	// V1 and V2 are the buffer-stream and acid-stream volumetric flow
	// rates [L/s], already converted from user-facing units.
	V1, V2 float64

	// C0 holds initial concentrations [mol/L] in species order.
	C0 []float64

	// RelTol, AbsTol, and MaxSteps configure the stiff integrator.
	// Zero values select the defaults in package ode.
	RelTol, AbsTol float64
	MaxSteps       int

	// Log receives advisory diagnostics. If nil, the logrus standard
	// logger is used.
	Log logrus.FieldLogger
}

func (s *Simulation) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Simulator resolves the incorporation law (logging any configuration
// fallback) and returns a ready-to-run forward simulator.
func (s *Simulation) Simulator() *micromix.Simulator {
	law, fb := micromix.NewIncorporationLaw(s.Convention, s.Shape, s.V1, s.V2)
	if fb != nil {
		s.logger().WithFields(logrus.Fields{
			"convention": fb.RequestedConvention,
			"shape":      fb.RequestedShape,
		}).Warn(fb.String())
	}
	return &micromix.Simulator{
		Mech:     s.Mech,
		Law:      law,
		C0:       s.C0,
		RelTol:   s.RelTol,
		AbsTol:   s.AbsTol,
		MaxSteps: s.MaxSteps,
		Log:      s.Log,
	}
}

// objective builds a squared-residual objective around the given
// final-state observable.
func (s *Simulation) objective(name string, observable func(*micromix.Trajectory) float64, target float64) Objective {
	sim := s.Simulator()
	log := s.logger()
	return func(tm float64) float64 {
		traj, err := sim.Run(tm)
		if err != nil {
			// A failed integration is fatal to this evaluation only.
			log.WithFields(logrus.Fields{
				"tm_ms":     tm * 1000,
				"objective": name,
			}).Warnf("evaluation failed: %v", err)
			return math.Inf(1)
		}
		r := observable(traj) - target
		res := r * r
		log.WithFields(logrus.Fields{
			"tm_ms":     tm * 1000,
			"residual":  res,
			"objective": name,
		}).Info("objective evaluated")
		return res
	}
}

// TriiodideObjective returns the squared deviation of the simulated
// final triiodide concentration from the experimental value
// [mol/L]. The result has units of (mol/L)².
func (s *Simulation) TriiodideObjective(experimental float64) Objective {
	return s.objective("triiodide", (*micromix.Trajectory).FinalTriiodide, experimental)
}

// SegregationObjective returns the squared deviation of the simulated
// final segregation index from the experimental value (dimensionless).
func (s *Simulation) SegregationObjective(experimental float64) Objective {
	return s.objective("segregation", (*micromix.Trajectory).FinalSegregation, experimental)
}

// A FitResult is the outcome of one estimation run.
type FitResult struct {
	// TM is the best mixing time found [s].
	TM float64

	// Objective is the objective value at TM.
	Objective float64

	// Converged is false when the run exhausted its evaluation budget
	// before meeting the tolerance; TM is then the last iterate, not a
	// converged result.
	Converged bool

	// Evaluations counts objective evaluations performed.
	Evaluations int
}

// Fit searches for the mixing time minimizing obj, starting from
// guess [s]. tol is the relative objective-improvement tolerance; if
// zero, DefaultTolerance is used. Fit does not guarantee a global
// minimum; distant guesses may converge to different local minima.
func Fit(obj Objective, guess, tol float64) (FitResult, error) {
	if guess <= 0 || math.IsNaN(guess) {
		return FitResult{}, fmt.Errorf("estimate: initial guess is %g; want > 0", guess)
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 { return obj(x[0]) },
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Relative:   tol,
			Iterations: convergeIterations,
		},
		MajorIterations: maxIterations,
	}

	result, err := optimize.Minimize(problem, []float64{guess}, settings, &optimize.NelderMead{})
	if result == nil {
		return FitResult{TM: guess}, fmt.Errorf("estimate: minimization failed: %w", err)
	}
	o := FitResult{
		TM:          result.X[0],
		Objective:   result.F,
		Converged:   err == nil && result.Status == optimize.FunctionConvergence,
		Evaluations: result.FuncEvaluations,
	}
	return o, nil
}

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

// Package ode integrates stiff initial-value problems.
//
// The solver is the semi-implicit Rosenbrock pair of Shampine and
// Reichelt (the method behind MATLAB's ode23s): L-stable, second order
// with a third-order error estimate, one Jacobian factorization and
// three linear solves per step. It suits systems whose timescales span
// many orders of magnitude, where explicit methods would be driven to
// vanishing steps by stability rather than accuracy.
package ode

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Func evaluates the right-hand side dy/dt = f(t, y), storing the
// result in dy. A returned error aborts the integration.
type Func func(t float64, y, dy []float64) error

// Config holds integration settings. Zero values select defaults.
type Config struct {
	// RelTol and AbsTol control the local error per step: a step is
	// accepted when the weighted RMS of the error estimate, with
	// weights AbsTol + RelTol·|y|, is at most one.
	RelTol, AbsTol float64

	// InitialStep is the first trial step size. If zero, a small
	// fraction of the integration interval is used.
	InitialStep float64

	// MaxStep caps the step size. If zero, only the remaining interval
	// limits the step.
	MaxStep float64

	// MaxSteps caps the total number of step attempts (accepted plus
	// rejected). If zero, DefaultMaxSteps is used.
	MaxSteps int
}

// Default tolerances and step budget.
const (
	DefaultRelTol   = 1e-15
	DefaultAbsTol   = 1e-18
	DefaultMaxSteps = 1000000
)

// Statistics reports the work performed by an integration.
type Statistics struct {
	Steps       int // accepted steps
	Rejected    int // rejected step attempts
	Evaluations int // right-hand-side evaluations
	Jacobians   int // Jacobian evaluations
	LastStep    float64
}

// The integration failure classes.
var (
	ErrStepTooSmall = errors.New("ode: step size underflow")
	ErrMaxSteps     = errors.New("ode: maximum number of steps exceeded")
	ErrNonFinite    = errors.New("ode: non-finite value encountered")
	ErrSingular     = errors.New("ode: singular iteration matrix")
)

// Rosenbrock23 is an adaptive stiff integrator.
type Rosenbrock23 struct {
	Config
}

// Method constants of the Shampine–Reichelt pair.
var (
	rosD   = 1 / (2 + math.Sqrt2)
	rosE32 = 6 + math.Sqrt2
)

func (c *Config) defaults() Config {
	o := *c
	if o.RelTol <= 0 {
		o.RelTol = DefaultRelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = DefaultAbsTol
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	return o
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Integrate advances y from t0 to tEnd. The observer, if non-nil, is
// called with (t0, y0) and after every accepted step; it must copy the
// state slice if it retains it.
func (r *Rosenbrock23) Integrate(f Func, t0, tEnd float64, y0 []float64, observe func(t float64, y []float64)) (Statistics, error) {
	var stats Statistics
	cfg := r.Config.defaults()
	n := len(y0)
	if n == 0 {
		return stats, fmt.Errorf("ode: empty state vector")
	}
	if tEnd <= t0 {
		return stats, fmt.Errorf("ode: integration interval [%g, %g] is empty", t0, tEnd)
	}

	const sqrtEps = 1.4901161193847656e-08 // sqrt(machine epsilon)

	t := t0
	y := append([]float64(nil), y0...)
	ynew := make([]float64, n)
	f0 := make([]float64, n)
	f1 := make([]float64, n)
	f2 := make([]float64, n)
	ft := make([]float64, n)
	dT := make([]float64, n)
	yp := make([]float64, n)
	fp := make([]float64, n)
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	rhs := mat.NewVecDense(n, nil)
	sol := mat.NewVecDense(n, nil)
	jac := mat.NewDense(n, n, nil)
	w := mat.NewDense(n, n, nil)
	var lu mat.LU

	span := tEnd - t0
	h := cfg.InitialStep
	if h <= 0 {
		h = 1e-6 * span
	}
	if cfg.MaxStep > 0 && h > cfg.MaxStep {
		h = cfg.MaxStep
	}

	eval := func(tt float64, yy, dd []float64) error {
		stats.Evaluations++
		if err := f(tt, yy, dd); err != nil {
			return err
		}
		return nil
	}

	if observe != nil {
		observe(t, y)
	}

	for t < tEnd {
		// Derivative, Jacobian, and ∂f/∂t at the current point. These
		// are reused across rejected attempts from the same point.
		if err := eval(t, y, f0); err != nil {
			return stats, err
		}
		if !finite(f0) {
			return stats, fmt.Errorf("%w at t=%g", ErrNonFinite, t)
		}
		ynorm := 0.0
		for _, v := range y {
			if a := math.Abs(v); a > ynorm {
				ynorm = a
			}
		}
		for j := 0; j < n; j++ {
			copy(yp, y)
			d := sqrtEps * math.Max(math.Abs(y[j]), math.Max(ynorm, sqrtEps))
			yp[j] += d
			if err := eval(t, yp, fp); err != nil {
				return stats, err
			}
			for i := 0; i < n; i++ {
				jac.Set(i, j, (fp[i]-f0[i])/d)
			}
		}
		stats.Jacobians++
		td := sqrtEps * math.Max(math.Abs(t), h)
		if err := eval(t+td, y, ft); err != nil {
			return stats, err
		}
		for i := 0; i < n; i++ {
			dT[i] = (ft[i] - f0[i]) / td
		}

	attempt:
		for {
			if stats.Steps+stats.Rejected >= cfg.MaxSteps {
				return stats, fmt.Errorf("%w (%d) at t=%g", ErrMaxSteps, cfg.MaxSteps, t)
			}
			hmin := 16 * 2.220446049250313e-16 * math.Max(math.Abs(t), math.Abs(tEnd))
			if h >= tEnd-t {
				// The final step is allowed to undershoot hmin.
				h = tEnd - t
			} else if h < hmin {
				return stats, fmt.Errorf("%w (h=%g) at t=%g", ErrStepTooSmall, h, t)
			}

			// W = I − h·d·J
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					v := -h * rosD * jac.At(i, j)
					if i == j {
						v++
					}
					w.Set(i, j, v)
				}
			}
			lu.Factorize(w)
			if math.Abs(lu.Det()) == 0 || math.IsNaN(lu.Det()) {
				stats.Rejected++
				h /= 2
				continue attempt
			}

			// k1 = W⁻¹(f0 + h·d·T)
			for i := 0; i < n; i++ {
				rhs.SetVec(i, f0[i]+h*rosD*dT[i])
			}
			if err := lu.SolveVecTo(sol, false, rhs); err != nil {
				stats.Rejected++
				h /= 2
				continue attempt
			}
			for i := 0; i < n; i++ {
				k1[i] = sol.AtVec(i)
				yp[i] = y[i] + 0.5*h*k1[i]
			}

			if err := eval(t+0.5*h, yp, f1); err != nil || !finite(f1) {
				stats.Rejected++
				h /= 4
				continue attempt
			}

			// k2 = W⁻¹(f1 − k1) + k1
			for i := 0; i < n; i++ {
				rhs.SetVec(i, f1[i]-k1[i])
			}
			if err := lu.SolveVecTo(sol, false, rhs); err != nil {
				stats.Rejected++
				h /= 2
				continue attempt
			}
			for i := 0; i < n; i++ {
				k2[i] = sol.AtVec(i) + k1[i]
				ynew[i] = y[i] + h*k2[i]
			}
			if !finite(ynew) {
				stats.Rejected++
				h /= 4
				continue attempt
			}

			if err := eval(t+h, ynew, f2); err != nil || !finite(f2) {
				stats.Rejected++
				h /= 4
				continue attempt
			}

			// k3 = W⁻¹(f2 − e32·(k2 − f1) − 2·(k1 − f0) + h·d·T)
			for i := 0; i < n; i++ {
				rhs.SetVec(i, f2[i]-rosE32*(k2[i]-f1[i])-2*(k1[i]-f0[i])+h*rosD*dT[i])
			}
			if err := lu.SolveVecTo(sol, false, rhs); err != nil {
				stats.Rejected++
				h /= 2
				continue attempt
			}
			for i := 0; i < n; i++ {
				k3[i] = sol.AtVec(i)
			}

			// Third-order error estimate, weighted RMS norm.
			var sum float64
			for i := 0; i < n; i++ {
				e := h / 6 * (k1[i] - 2*k2[i] + k3[i])
				wgt := cfg.AbsTol + cfg.RelTol*math.Max(math.Abs(y[i]), math.Abs(ynew[i]))
				q := e / wgt
				sum += q * q
			}
			norm := math.Sqrt(sum / float64(n))

			if math.IsNaN(norm) || norm > 1 {
				stats.Rejected++
				fac := 0.5
				if !math.IsNaN(norm) {
					fac = math.Max(0.1, 0.8*math.Pow(norm, -1.0/3.0))
					fac = math.Min(fac, 0.5)
				}
				h *= fac
				continue attempt
			}

			// Accept.
			stats.Steps++
			stats.LastStep = h
			t += h
			copy(y, ynew)
			if observe != nil {
				observe(t, y)
			}

			fac := 0.8 * math.Pow(math.Max(norm, 1e-10), -1.0/3.0)
			h *= math.Min(5, math.Max(0.2, fac))
			if cfg.MaxStep > 0 && h > cfg.MaxStep {
				h = cfg.MaxStep
			}
			break attempt
		}
	}
	return stats, nil
}

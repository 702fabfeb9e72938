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

package micromixutil

import "github.com/ctessum/unit"

// volumeFlow is the dimension set of a volumetric flow rate [m³/s].
var volumeFlow = unit.Dimensions{unit.LengthDim: 3, unit.TimeDim: -1}

// FlowRate returns the dimensioned volumetric flow corresponding to a
// user-facing flow rate in mL/min. This is the single point where
// user-facing flow units enter the model; everything downstream works
// in consistent volume-per-second units.
func FlowRate(mLPerMin float64) *unit.Unit {
	const (
		m3PerML       = 1.0e-6
		secondsPerMin = 60.0
	)
	return unit.New(mLPerMin*m3PerML/secondsPerMin, volumeFlow)
}

// LitersPerSecond returns the value of the volumetric flow u in the
// model's internal L/s units.
func LitersPerSecond(u *unit.Unit) (float64, error) {
	if err := u.Check(volumeFlow); err != nil {
		return 0, err
	}
	return u.Value() * 1000, nil // m³/s → L/s
}

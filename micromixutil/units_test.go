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

import (
	"math"
	"testing"

	"github.com/ctessum/unit"
)

func TestFlowRate(t *testing.T) {
	// 2 mL/min = 2e-6/60 m³/s = 2/60000 L/s.
	got, err := LitersPerSecond(FlowRate(2))
	if err != nil {
		t.Fatal(err)
	}
	want := 2.0 / 60000
	if math.Abs(got-want) > 1e-20 {
		t.Errorf("2 mL/min = %g L/s, want %g", got, want)
	}
}

func TestLitersPerSecondDimensions(t *testing.T) {
	mass := unit.New(1, unit.Dimensions{unit.MassDim: 1})
	if _, err := LitersPerSecond(mass); err == nil {
		t.Error("a mass is not a volumetric flow; want an error")
	}
}

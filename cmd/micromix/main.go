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

// Command micromix is a command-line interface for the MicroMix
// micro-mixing time estimator.
package main

import (
	"fmt"
	"os"

	"github.com/reactormodel/micromix/micromixutil"
)

func main() {
	if err := micromixutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
